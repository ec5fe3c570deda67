package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"stock_screener/internal/feature/stocks/domain"
	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/domain/filter"
)

// ErrDB はモックと期待値の間で共有されるセンチネルエラーです。
var ErrDB = errors.New("database error")

// mockStockRepository はStockRepositoryインターフェースのモック実装です。
type mockStockRepository struct {
	InsertFunc      func(ctx context.Context, symbol string) (uint, error)
	GetByIDFunc     func(ctx context.Context, id uint) (entity.Stock, error)
	UpdateFunc      func(ctx context.Context, s entity.Stock) error
	ListWhereFunc   func(ctx context.Context, p filter.Predicate) ([]entity.Stock, error)
	ListPendingFunc func(ctx context.Context, limit int) ([]entity.Stock, error)

	mu          sync.Mutex
	UpdateCalls int
}

func (m *mockStockRepository) Insert(ctx context.Context, symbol string) (uint, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, symbol)
	}
	return 0, errors.New("InsertFunc is not implemented")
}

func (m *mockStockRepository) GetByID(ctx context.Context, id uint) (entity.Stock, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return entity.Stock{}, errors.New("GetByIDFunc is not implemented")
}

func (m *mockStockRepository) Update(ctx context.Context, s entity.Stock) error {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, s)
	}
	return errors.New("UpdateFunc is not implemented")
}

func (m *mockStockRepository) ListWhere(ctx context.Context, p filter.Predicate) ([]entity.Stock, error) {
	if m.ListWhereFunc != nil {
		return m.ListWhereFunc(ctx, p)
	}
	return nil, errors.New("ListWhereFunc is not implemented")
}

func (m *mockStockRepository) ListPending(ctx context.Context, limit int) ([]entity.Stock, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, limit)
	}
	return nil, errors.New("ListPendingFunc is not implemented")
}

// mockMarketDataClient はMarketDataClientインターフェースのモック実装です。
type mockMarketDataClient struct {
	FetchFunc func(ctx context.Context, symbol string) (entity.Snapshot, error)

	mu         sync.Mutex
	FetchCalls int
}

func (m *mockMarketDataClient) Fetch(ctx context.Context, symbol string) (entity.Snapshot, error) {
	m.mu.Lock()
	m.FetchCalls++
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol)
	}
	return entity.Snapshot{}, errors.New("FetchFunc is not implemented")
}

func (m *mockMarketDataClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls
}

// mockDispatcher records scheduled ids without running anything.
type mockDispatcher struct {
	Scheduled []uint
}

func (m *mockDispatcher) Schedule(id uint) {
	m.Scheduled = append(m.Scheduled, id)
}

// memoryRepository is an in-memory StockRepository used by the end-to-end scenarios.
type memoryRepository struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]entity.Stock
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: map[uint]entity.Stock{}}
}

func (r *memoryRepository) Insert(_ context.Context, symbol string) (uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.rows[r.nextID] = entity.Stock{ID: r.nextID, Symbol: symbol}
	return r.nextID, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uint) (entity.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return entity.Stock{}, domain.ErrStockNotFound
	}
	return s, nil
}

func (r *memoryRepository) Update(_ context.Context, s entity.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[s.ID]; !ok {
		return domain.ErrStockNotFound
	}
	r.rows[s.ID] = s
	return nil
}

func (r *memoryRepository) ListWhere(_ context.Context, p filter.Predicate) ([]entity.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Stock{}
	for _, s := range r.rows {
		if p.Match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) ListPending(ctx context.Context, limit int) ([]entity.Stock, error) {
	all, _ := r.ListWhere(ctx, filter.Predicate{})
	out := []entity.Stock{}
	for _, s := range all {
		if !s.Enriched() {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
