package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"motomarket/internal/app/policies"
)

// Cache satisfies policies.Cache on top of a go-redis client. Keys are
// namespaced with Prefix.
type Cache struct {
	client *goredis.Client
	Prefix string
}

// New dials url (redis://...) and checks the connection.
func New(ctx context.Context, url string) (*Cache, error) {
	if url == "" {
		return nil, errors.New("redis: url is required")
	}
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := goredis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Cache{client: c, Prefix: "motomarket:"}, nil
}

func (r *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := r.client.Get(ctx, r.Prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, policies.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.Prefix+key, value, ttl).Err()
}

func (r *Cache) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, r.Prefix+key).Result()
}

func (r *Cache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Cache) Close() error {
	return r.client.Close()
}

var _ policies.Cache = (*Cache)(nil)
