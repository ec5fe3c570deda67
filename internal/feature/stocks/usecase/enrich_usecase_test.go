package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_screener/internal/feature/stocks/domain"
	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/usecase"
)

func fullSnapshot() entity.Snapshot {
	return entity.Snapshot{
		PreviousClose:        entity.Float(150),
		FiftyDayAverage:      entity.Float(140),
		TwoHundredDayAverage: entity.Float(130),
		ForwardPE:            entity.Float(25),
		ForwardEPS:           entity.Float(6),
		DividendYield:        entity.Float(0.005),
	}
}

func aapl(ctx context.Context, id uint) (entity.Stock, error) {
	return entity.Stock{ID: id, Symbol: "AAPL"}, nil
}

// TestEnrichUsecase_Enrich はエンリッチメントの各ステップの成否とストアへの書き込みを検証します。
func TestEnrichUsecase_Enrich(t *testing.T) {
	t.Parallel()

	fetchFailure := &domain.FetchError{Symbol: "AAPL", Err: errors.New("connection reset")}

	tests := []struct {
		name            string
		getByID         func(ctx context.Context, id uint) (entity.Stock, error)
		fetch           func(ctx context.Context, symbol string) (entity.Snapshot, error)
		update          func(ctx context.Context, s entity.Stock) error
		expectedErr     error
		expectedFetches int
		expectedUpdates int
		verifyUpdated   func(t *testing.T, s entity.Stock)
	}{
		{
			name:    "success: full snapshot is mapped onto the stock",
			getByID: aapl,
			fetch: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
				assert.Equal(t, "AAPL", symbol)
				return fullSnapshot(), nil
			},
			update:          func(ctx context.Context, s entity.Stock) error { return nil },
			expectedFetches: 1,
			expectedUpdates: 1,
			verifyUpdated: func(t *testing.T, s entity.Stock) {
				assert.Equal(t, uint(42), s.ID)
				assert.Equal(t, "AAPL", s.Symbol)
				assert.Equal(t, 150.0, *s.Price)
				assert.Equal(t, 140.0, *s.MA50)
				assert.Equal(t, 130.0, *s.MA200)
				assert.Equal(t, 25.0, *s.ForwardPE)
				assert.Equal(t, 6.0, *s.ForwardEPS)
				assert.Equal(t, 0.5, *s.DividendYield)
			},
		},
		{
			name:    "success: missing dividend yield stays absent",
			getByID: aapl,
			fetch: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
				snap := fullSnapshot()
				snap.DividendYield = nil
				return snap, nil
			},
			update:          func(ctx context.Context, s entity.Stock) error { return nil },
			expectedFetches: 1,
			expectedUpdates: 1,
			verifyUpdated: func(t *testing.T, s entity.Stock) {
				assert.Nil(t, s.DividendYield)
				assert.Equal(t, 150.0, *s.Price)
			},
		},
		{
			name: "error: stock not found aborts before fetching",
			getByID: func(ctx context.Context, id uint) (entity.Stock, error) {
				return entity.Stock{}, domain.ErrStockNotFound
			},
			expectedErr:     domain.ErrStockNotFound,
			expectedFetches: 0,
			expectedUpdates: 0,
		},
		{
			name:    "error: fetch failure leaves the stock untouched",
			getByID: aapl,
			fetch: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
				return entity.Snapshot{}, fetchFailure
			},
			expectedErr:     fetchFailure,
			expectedFetches: 1,
			expectedUpdates: 0,
		},
		{
			name:    "error: update failure is reported as persistence error",
			getByID: aapl,
			fetch: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
				return fullSnapshot(), nil
			},
			update: func(ctx context.Context, s entity.Stock) error {
				return &domain.PersistenceError{Op: "update", Err: ErrDB}
			},
			expectedErr:     ErrDB,
			expectedFetches: 1,
			expectedUpdates: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var updated entity.Stock
			repo := &mockStockRepository{
				GetByIDFunc: tt.getByID,
				UpdateFunc: func(ctx context.Context, s entity.Stock) error {
					updated = s
					return tt.update(ctx, s)
				},
			}
			market := &mockMarketDataClient{FetchFunc: tt.fetch}

			uc := usecase.NewEnrichUsecase(repo, market, usecase.EnrichConfig{})
			err := uc.Enrich(context.Background(), 42)

			if tt.expectedErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
			assert.Equal(t, tt.expectedFetches, market.calls())
			assert.Equal(t, tt.expectedUpdates, repo.UpdateCalls)
			if tt.verifyUpdated != nil {
				tt.verifyUpdated(t, updated)
			}
		})
	}
}

func TestEnrichUsecase_Enrich_WrapsPlainClientErrors(t *testing.T) {
	t.Parallel()

	repo := &mockStockRepository{GetByIDFunc: aapl}
	market := &mockMarketDataClient{
		FetchFunc: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
			return entity.Snapshot{}, errors.New("boom")
		},
	}

	err := usecase.NewEnrichUsecase(repo, market, usecase.EnrichConfig{}).Enrich(context.Background(), 1)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "AAPL", fetchErr.Symbol)
}

// TestEnrichUsecase_Enrich_FetchTimeout は外部API呼び出しにタイムアウトが適用されることを検証します。
func TestEnrichUsecase_Enrich_FetchTimeout(t *testing.T) {
	t.Parallel()

	repo := &mockStockRepository{GetByIDFunc: aapl}
	market := &mockMarketDataClient{
		FetchFunc: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
			<-ctx.Done()
			return entity.Snapshot{}, ctx.Err()
		},
	}

	uc := usecase.NewEnrichUsecase(repo, market, usecase.EnrichConfig{FetchTimeout: 10 * time.Millisecond})
	err := uc.Enrich(context.Background(), 1)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, repo.UpdateCalls)
}

func TestEnrichUsecase_Enrich_Retry(t *testing.T) {
	t.Parallel()

	transient := &domain.FetchError{Symbol: "AAPL", Err: errors.New("503")}
	unknown := &domain.FetchError{Symbol: "AAPL", Err: domain.ErrSymbolUnknown}

	tests := []struct {
		name            string
		maxAttempts     int
		failures        []error
		expectErr       bool
		expectedFetches int
	}{
		{name: "no retry by default", maxAttempts: 0, failures: []error{transient}, expectErr: true, expectedFetches: 1},
		{name: "succeeds on third attempt", maxAttempts: 3, failures: []error{transient, transient}, expectErr: false, expectedFetches: 3},
		{name: "gives up after max attempts", maxAttempts: 2, failures: []error{transient, transient, transient}, expectErr: true, expectedFetches: 2},
		{name: "unknown symbol is not retried", maxAttempts: 5, failures: []error{unknown}, expectErr: true, expectedFetches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockStockRepository{
				GetByIDFunc: aapl,
				UpdateFunc:  func(ctx context.Context, s entity.Stock) error { return nil },
			}
			attempt := 0
			market := &mockMarketDataClient{
				FetchFunc: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
					defer func() { attempt++ }()
					if attempt < len(tt.failures) {
						return entity.Snapshot{}, tt.failures[attempt]
					}
					return fullSnapshot(), nil
				},
			}

			uc := usecase.NewEnrichUsecase(repo, market, usecase.EnrichConfig{
				MaxAttempts:  tt.maxAttempts,
				RetryBackoff: time.Millisecond,
			})
			err := uc.Enrich(context.Background(), 1)

			if tt.expectErr {
				assert.Error(t, err)
				assert.Equal(t, 0, repo.UpdateCalls)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, repo.UpdateCalls)
			}
			assert.Equal(t, tt.expectedFetches, market.calls())
		})
	}
}

func TestEnrichUsecase_Enrich_RetryStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	repo := &mockStockRepository{GetByIDFunc: aapl}
	market := &mockMarketDataClient{
		FetchFunc: func(_ context.Context, symbol string) (entity.Snapshot, error) {
			cancel()
			return entity.Snapshot{}, &domain.FetchError{Symbol: symbol, Err: errors.New("503")}
		},
	}

	uc := usecase.NewEnrichUsecase(repo, market, usecase.EnrichConfig{MaxAttempts: 5, RetryBackoff: time.Hour})
	err := uc.Enrich(ctx, 1)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, market.calls())
}

// TestEnrichUsecase_Run はエラーが呼び出し元に伝播せずログのみに記録されることを検証します。
func TestEnrichUsecase_Run(t *testing.T) {
	t.Parallel()

	repo := &mockStockRepository{
		GetByIDFunc: func(ctx context.Context, id uint) (entity.Stock, error) {
			if id == 1 {
				return entity.Stock{}, domain.ErrStockNotFound
			}
			return entity.Stock{ID: id, Symbol: "AAPL"}, nil
		},
		UpdateFunc: func(ctx context.Context, s entity.Stock) error {
			if s.ID == 3 {
				return &domain.PersistenceError{Op: "update", Err: ErrDB}
			}
			return nil
		},
	}
	market := &mockMarketDataClient{
		FetchFunc: func(ctx context.Context, symbol string) (entity.Snapshot, error) {
			return fullSnapshot(), nil
		},
	}
	uc := usecase.NewEnrichUsecase(repo, market, usecase.EnrichConfig{})

	assert.NotPanics(t, func() {
		uc.Run(context.Background(), 1)
		uc.Run(context.Background(), 2)
		uc.Run(context.Background(), 3)
	})
	assert.Equal(t, 2, repo.UpdateCalls)
}
