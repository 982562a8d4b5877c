package listings

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"motomarket/internal/app/dto"
	"motomarket/internal/app/policies"
	"motomarket/internal/app/queries"
)

const catalogGenerationKey = "catalog:generation"

// CachedCatalog serves catalog pages from a cache. Entries are keyed by a
// generation counter that Invalidate bumps, so stale pages simply expire.
type CachedCatalog struct {
	Next   queries.Handler[SearchCatalogQuery, dto.ListingCatalog]
	Cache  policies.Cache
	TTL    time.Duration
	Logger *slog.Logger
}

func (c *CachedCatalog) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	if c.Cache == nil {
		return c.Next.Handle(ctx, q)
	}
	key, err := c.key(ctx, q)
	if err != nil {
		c.warn("catalog cache key failed", err)
		return c.Next.Handle(ctx, q)
	}
	if raw, err := c.Cache.Get(ctx, key); err == nil {
		var cached dto.ListingCatalog
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, policies.ErrCacheMiss) {
		c.warn("catalog cache read failed", err)
	}

	result, err := c.Next.Handle(ctx, q)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	if raw, err := json.Marshal(result); err == nil {
		if err := c.Cache.Set(ctx, key, raw, c.ttl()); err != nil {
			c.warn("catalog cache write failed", err)
		}
	}
	return result, nil
}

// Invalidate drops every cached page.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	if c.Cache == nil {
		return nil
	}
	_, err := c.Cache.Incr(ctx, catalogGenerationKey)
	return err
}

func (c *CachedCatalog) key(ctx context.Context, q SearchCatalogQuery) (string, error) {
	generation := "0"
	raw, err := c.Cache.Get(ctx, catalogGenerationKey)
	switch {
	case err == nil:
		generation = string(raw)
	case !errors.Is(err, policies.ErrCacheMiss):
		return "", err
	}
	if _, err := strconv.ParseInt(generation, 10, 64); err != nil {
		generation = "0"
	}
	params, err := json.Marshal(q.Params())
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(params)
	return fmt.Sprintf("catalog:%s:%s", generation, hex.EncodeToString(sum[:])), nil
}

func (c *CachedCatalog) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return time.Minute
}

func (c *CachedCatalog) warn(msg string, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, "error", err)
	}
}

var _ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*CachedCatalog)(nil)
