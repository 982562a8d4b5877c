package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"motomarket/internal/app/policies"
)

// Inline runs jobs synchronously in the enqueuing goroutine. It backs the
// job queue when no redis is configured.
type Inline struct {
	Logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]policies.JobHandler
}

func NewInline(logger *slog.Logger) *Inline {
	return &Inline{Logger: logger, handlers: make(map[string]policies.JobHandler)}
}

func (q *Inline) Register(taskType string, h policies.JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

func (q *Inline) Enqueue(ctx context.Context, taskType string, payload []byte) error {
	q.mu.RLock()
	h, ok := q.handlers[taskType]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("queue: no handler for %s", taskType)
	}
	if err := h(ctx, payload); err != nil {
		if q.Logger != nil {
			q.Logger.Error("job failed", "task", taskType, "error", err)
		}
		return fmt.Errorf("queue: %s: %w", taskType, err)
	}
	return nil
}

var _ policies.JobQueue = (*Inline)(nil)
