package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"motomarket/internal/app/policies"
)

const defaultQueue = "default"

// AsynqClient enqueues jobs into redis for an AsynqServer to run.
type AsynqClient struct {
	client   *asynq.Client
	MaxRetry int
	Timeout  time.Duration
}

func NewAsynqClient(redisURL string) (*AsynqClient, error) {
	opt, err := redisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return &AsynqClient{client: asynq.NewClient(opt), MaxRetry: 5, Timeout: time.Minute}, nil
}

func (a *AsynqClient) Enqueue(ctx context.Context, taskType string, payload []byte) error {
	if taskType == "" {
		return errors.New("asynq: task type is required")
	}
	opts := []asynq.Option{asynq.Queue(defaultQueue)}
	if a.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(a.MaxRetry))
	}
	if a.Timeout > 0 {
		opts = append(opts, asynq.Timeout(a.Timeout))
	}
	if _, err := a.client.EnqueueContext(ctx, asynq.NewTask(taskType, payload), opts...); err != nil {
		return fmt.Errorf("asynq: enqueue %s: %w", taskType, err)
	}
	return nil
}

func (a *AsynqClient) Close() error {
	return a.client.Close()
}

// AsynqServer runs registered job handlers.
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewAsynqServer(redisURL string, concurrency int, logger *slog.Logger) (*AsynqServer, error) {
	opt, err := redisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{defaultQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("job failed", "task", task.Type(), "error", err)
		}),
	})
	return &AsynqServer{server: srv, mux: asynq.NewServeMux()}, nil
}

func (s *AsynqServer) Register(taskType string, h policies.JobHandler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, t.Payload())
	})
}

// Run starts processing and blocks until ctx is cancelled.
func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}

func redisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return opt, nil
}

var _ policies.JobQueue = (*AsynqClient)(nil)
