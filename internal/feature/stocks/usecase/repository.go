// Package usecase は銘柄登録・一覧・エンリッチメントのビジネスロジックを実装します。
package usecase

import (
	"context"

	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/domain/filter"
)

// StockRepository は銘柄ストアを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type StockRepository interface {
	// Insert stores a new stock with only the symbol set and returns its id.
	Insert(ctx context.Context, symbol string) (uint, error)
	// GetByID returns domain.ErrStockNotFound when no row exists.
	GetByID(ctx context.Context, id uint) (entity.Stock, error)
	// Update writes every numeric field of s in one atomic statement.
	Update(ctx context.Context, s entity.Stock) error
	// ListWhere returns stocks matching p ordered by id.
	ListWhere(ctx context.Context, p filter.Predicate) ([]entity.Stock, error)
	// ListPending returns stocks that have no market data yet, at most limit rows (0 = no limit).
	ListPending(ctx context.Context, limit int) ([]entity.Stock, error)
}

// MarketDataClient は外部のマーケットデータ提供元を抽象化します。
// 失敗時は *domain.FetchError を返し、内部でリトライはしません。
type MarketDataClient interface {
	Fetch(ctx context.Context, symbol string) (entity.Snapshot, error)
}

// Dispatcher runs enrichment for a stock id without blocking the caller.
type Dispatcher interface {
	Schedule(id uint)
}
