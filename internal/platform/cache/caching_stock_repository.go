// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/domain/filter"
	"stock_screener/internal/feature/stocks/usecase"
)

// CachingStockRepository decorates a StockRepository with Redis caching of
// listing results. Writes go straight to the inner repository and bump the
// listing generation, which is part of every listing key. A listing read that
// raced a write stores its result under the old generation, where no later
// read looks. Point reads are never cached.
type CachingStockRepository struct {
	inner     usecase.StockRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	group     singleflight.Group
}

var _ usecase.StockRepository = (*CachingStockRepository)(nil)

// NewCachingStockRepository decorates a StockRepository with Redis caching.
// If ttl is 0, it defaults to 1 minute. If namespace is empty, it uses "stocks".
func NewCachingStockRepository(rdb *redis.Client, ttl time.Duration, inner usecase.StockRepository, namespace string) *CachingStockRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if namespace == "" {
		namespace = "stocks"
	}
	return &CachingStockRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Insert stores the stock and invalidates cached listings.
func (c *CachingStockRepository) Insert(ctx context.Context, symbol string) (uint, error) {
	id, err := c.inner.Insert(ctx, symbol)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx)
	return id, nil
}

// Update writes the stock and invalidates cached listings.
func (c *CachingStockRepository) Update(ctx context.Context, s entity.Stock) error {
	if err := c.inner.Update(ctx, s); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// GetByID always reads through to the inner repository.
func (c *CachingStockRepository) GetByID(ctx context.Context, id uint) (entity.Stock, error) {
	return c.inner.GetByID(ctx, id)
}

// ListPending always reads through to the inner repository.
func (c *CachingStockRepository) ListPending(ctx context.Context, limit int) ([]entity.Stock, error) {
	return c.inner.ListPending(ctx, limit)
}

// ListWhere retrieves a listing, checking cache first then falling back to the database.
// Concurrent misses for the same predicate share one database query.
func (c *CachingStockRepository) ListWhere(ctx context.Context, p filter.Predicate) ([]entity.Stock, error) {
	if c.rdb == nil {
		return c.inner.ListWhere(ctx, p)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("stock listing cache unavailable")
		return c.inner.ListWhere(ctx, p)
	}
	key := c.cacheKey(gen, p)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Stock
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		out, err := c.inner.ListWhere(ctx, p)
		if err != nil {
			return nil, err
		}
		// 3) Store in cache (best effort)
		if b, err := json.Marshal(out); err == nil {
			_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.Stock), nil
}

// invalidate advances the listing generation and drops cached listings.
// Failures are logged and otherwise ignored.
func (c *CachingStockRepository) invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to advance stock listing generation")
	}
	if err := c.deleteByPattern(ctx, c.listPrefix()+"*"); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate stock listing cache")
	}
}

// generation returns the current listing generation. A missing counter is generation 0.
func (c *CachingStockRepository) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// cacheKey generates a cache key for a specific listing predicate.
func (c *CachingStockRepository) cacheKey(gen int64, p filter.Predicate) string {
	return c.listPrefix() + strconv.FormatInt(gen, 10) + ":" + safe(p.Key())
}

func (c *CachingStockRepository) generationKey() string {
	return c.namespace + ":gen"
}

func (c *CachingStockRepository) listPrefix() string {
	return c.namespace + ":list:"
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingStockRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
