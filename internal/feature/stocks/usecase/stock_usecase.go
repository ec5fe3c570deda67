package usecase

import (
	"context"
	"strings"

	"stock_screener/internal/feature/stocks/domain"
	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/domain/filter"
	"stock_screener/internal/platform/logger"
)

// StockUsecase は銘柄の登録・取得・一覧のユースケースを提供します。
type StockUsecase struct {
	repo     StockRepository
	dispatch Dispatcher
	enrich   *EnrichUsecase
}

// NewStockUsecase creates a StockUsecase. enrich is used only by EnrichPending
// and may be nil when that operation is not needed.
func NewStockUsecase(repo StockRepository, dispatch Dispatcher, enrich *EnrichUsecase) *StockUsecase {
	return &StockUsecase{repo: repo, dispatch: dispatch, enrich: enrich}
}

// Create は銘柄を登録し、エンリッチメントをスケジュールして即座にIDを返します。
// 登録の失敗は呼び出し元に返しますが、エンリッチメントの結果は待ちません。
func (u *StockUsecase) Create(ctx context.Context, symbol string) (uint, error) {
	if strings.TrimSpace(symbol) == "" {
		return 0, domain.ErrEmptySymbol
	}

	id, err := u.repo.Insert(ctx, symbol)
	if err != nil {
		return 0, err
	}

	u.dispatch.Schedule(id)
	logger.FromContext(ctx).Info().Uint("stock_id", id).Str("symbol", symbol).Msg("stock created, enrichment scheduled")
	return id, nil
}

// Get returns a single stock by id.
func (u *StockUsecase) Get(ctx context.Context, id uint) (entity.Stock, error) {
	return u.repo.GetByID(ctx, id)
}

// List returns the stocks that satisfy the given filters.
func (u *StockUsecase) List(ctx context.Context, params filter.Params) ([]entity.Stock, error) {
	return u.repo.ListWhere(ctx, filter.Build(params))
}

// EnrichPending は未エンリッチの銘柄を同期的に再エンリッチし、指標が入った件数を返します。
// 個々の失敗や指標が1つも取れなかった銘柄はログに記録して処理を継続します。
func (u *StockUsecase) EnrichPending(ctx context.Context, limit int) (int, error) {
	pending, err := u.repo.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, s := range pending {
		if err := ctx.Err(); err != nil {
			return enriched, err
		}
		updated, err := u.enrich.enrich(ctx, s.ID)
		if err != nil {
			logger.FromContext(ctx).Error().Err(err).Uint("stock_id", s.ID).Str("symbol", s.Symbol).Msg("failed to enrich pending stock")
			continue
		}
		if !updated.Enriched() {
			logger.FromContext(ctx).Warn().Uint("stock_id", s.ID).Str("symbol", s.Symbol).Msg("no metrics returned, stock stays pending")
			continue
		}
		enriched++
	}
	return enriched, nil
}

// EnrichOne enriches a single stock synchronously and returns the error, if any.
func (u *StockUsecase) EnrichOne(ctx context.Context, id uint) error {
	return u.enrich.Enrich(ctx, id)
}
