package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	stockadapters "stock_screener/internal/feature/stocks/adapters"
	"stock_screener/internal/feature/stocks/usecase"
	"stock_screener/internal/platform/cache"
)

// NewStockRepository creates a StockRepository implementation.
// If Redis is available, listings are cached in Redis in front of the database.
// Otherwise, the database repository is returned as is.
func NewStockRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration, namespace string) usecase.StockRepository {
	repo := stockadapters.NewStockRepository(db)
	if rdb != nil {
		return cache.NewCachingStockRepository(rdb, ttl, repo, namespace)
	}
	return repo
}
