package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock_screener/internal/feature/stocks/domain"
	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/platform/logger"
)

const (
	// DefaultFetchTimeout bounds a single provider call.
	DefaultFetchTimeout = 15 * time.Second
	// DefaultRetryBackoff is the wait before the second fetch attempt; it doubles per attempt.
	DefaultRetryBackoff = 500 * time.Millisecond
)

// EnrichConfig はエンリッチメント処理の設定です。
type EnrichConfig struct {
	FetchTimeout time.Duration // 1回の外部API呼び出しの上限時間
	MaxAttempts  int           // 取得の最大試行回数（1 = リトライなし）
	RetryBackoff time.Duration // 初回リトライまでの待機時間
}

// EnrichUsecase は銘柄IDを受け取り、外部APIから指標を取得して銘柄を更新します。
type EnrichUsecase struct {
	repo   StockRepository
	market MarketDataClient
	cfg    EnrichConfig
}

// NewEnrichUsecase は新しい EnrichUsecase を作成します。
// 未設定の値にはデフォルトを適用します。
func NewEnrichUsecase(repo StockRepository, market MarketDataClient, cfg EnrichConfig) *EnrichUsecase {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &EnrichUsecase{repo: repo, market: market, cfg: cfg}
}

// Enrich loads the stock, fetches a snapshot for its symbol, maps the snapshot
// onto the stock and persists the result in a single write. On any failure
// the stored stock is left unchanged.
func (u *EnrichUsecase) Enrich(ctx context.Context, id uint) error {
	_, err := u.enrich(ctx, id)
	return err
}

// enrich is Enrich returning the stock as written. A snapshot without any
// field yields a stock that is still pending.
func (u *EnrichUsecase) enrich(ctx context.Context, id uint) (entity.Stock, error) {
	stock, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return entity.Stock{}, err
	}

	snap, err := u.fetch(ctx, stock.Symbol)
	if err != nil {
		return entity.Stock{}, err
	}

	updated := snap.ApplyTo(stock)
	if err := u.repo.Update(ctx, updated); err != nil {
		return entity.Stock{}, err
	}
	return updated, nil
}

// Run は Dispatcher から呼ばれるエントリポイントです。
// 呼び出し元は待っていないため、エラーはログに記録するだけで返しません。
func (u *EnrichUsecase) Run(ctx context.Context, id uint) {
	l := logger.FromContext(ctx)
	start := time.Now()
	stock, err := u.enrich(ctx, id)

	var fetchErr *domain.FetchError
	switch {
	case err == nil && !stock.Enriched():
		l.Warn().Uint("stock_id", id).Str("symbol", stock.Symbol).Msg("enrichment returned no metrics, stock stays pending")
	case err == nil:
		l.Info().Uint("stock_id", id).Dur("elapsed", time.Since(start)).Msg("stock enriched")
	case errors.Is(err, domain.ErrStockNotFound):
		l.Warn().Uint("stock_id", id).Msg("enrichment skipped: stock not found")
	case errors.As(err, &fetchErr):
		l.Error().Err(fetchErr.Err).Uint("stock_id", id).Str("symbol", fetchErr.Symbol).Msg("enrichment failed: market data unavailable")
	default:
		l.Error().Err(err).Uint("stock_id", id).Msg("enrichment failed")
	}
}

// fetch calls the market data client with a per-attempt timeout, retrying
// with exponential backoff when MaxAttempts > 1. Unknown symbols are not retried.
func (u *EnrichUsecase) fetch(ctx context.Context, symbol string) (entity.Snapshot, error) {
	backoff := u.cfg.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		snap, err := u.fetchOnce(ctx, symbol)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrSymbolUnknown) || attempt == u.cfg.MaxAttempts {
			break
		}

		logger.FromContext(ctx).Debug().Err(err).Str("symbol", symbol).Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying market data fetch")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return entity.Snapshot{}, &domain.FetchError{Symbol: symbol, Err: ctx.Err()}
		case <-timer.C:
		}
		backoff *= 2
	}
	return entity.Snapshot{}, lastErr
}

func (u *EnrichUsecase) fetchOnce(ctx context.Context, symbol string) (entity.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.FetchTimeout)
	defer cancel()

	snap, err := u.market.Fetch(ctx, symbol)
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return entity.Snapshot{}, err
		}
		return entity.Snapshot{}, &domain.FetchError{Symbol: symbol, Err: fmt.Errorf("market data client: %w", err)}
	}
	return snap, nil
}
