package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/domain/filter"
)

func f(v float64) *float64 { return &v }

// fixtures は各テストで共有する銘柄一覧です。
func fixtures() []entity.Stock {
	return []entity.Stock{
		{ID: 1, Symbol: "PENDING"},
		{ID: 2, Symbol: "CHEAP", Price: f(50), MA50: f(40), MA200: f(60), ForwardPE: f(10), DividendYield: f(3.5)},
		{ID: 3, Symbol: "EDGE", Price: f(100), MA50: f(100), MA200: f(90), ForwardPE: f(20), DividendYield: f(1)},
		{ID: 4, Symbol: "PRICEY", Price: f(300), MA50: f(250), MA200: f(200), ForwardPE: f(35)},
		{ID: 5, Symbol: "NOMA", Price: f(10), ForwardPE: f(5), DividendYield: f(4)},
	}
}

func ids(stocks []entity.Stock, p filter.Predicate) []uint {
	out := []uint{}
	for _, s := range stocks {
		if p.Match(s) {
			out = append(out, s.ID)
		}
	}
	return out
}

// TestBuild はパラメータの組み合わせごとに絞り込み結果を検証します。
func TestBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   filter.Params
		expected []uint
	}{
		{
			name:     "no params matches every stock including pending ones",
			params:   filter.Params{},
			expected: []uint{1, 2, 3, 4, 5},
		},
		{
			name:     "forward_pe is strict less-than",
			params:   filter.Params{ForwardPE: f(20)},
			expected: []uint{2, 5},
		},
		{
			name:     "dividend_yield is strict greater-than and skips absent values",
			params:   filter.Params{DividendYield: f(1)},
			expected: []uint{2, 5},
		},
		{
			name:     "ma50 keeps price above ma50 only",
			params:   filter.Params{MA50: true},
			expected: []uint{2, 4},
		},
		{
			name:     "ma200 keeps price above ma200 only",
			params:   filter.Params{MA200: true},
			expected: []uint{3, 4},
		},
		{
			name:     "forward_pe and dividend_yield intersect",
			params:   filter.Params{ForwardPE: f(15), DividendYield: f(3.8)},
			expected: []uint{5},
		},
		{
			name:     "all filters combined",
			params:   filter.Params{ForwardPE: f(40), DividendYield: f(0), MA50: true, MA200: true},
			expected: []uint{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ids(fixtures(), filter.Build(tt.params))
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestBuild_PendingStockExcludedByEveryFilter は未エンリッチの銘柄がどのフィルタでも除外されることを検証します。
func TestBuild_PendingStockExcludedByEveryFilter(t *testing.T) {
	t.Parallel()

	pending := entity.Stock{ID: 1, Symbol: "AAPL"}
	for _, p := range []filter.Params{
		{ForwardPE: f(1e9)},
		{DividendYield: f(-1e9)},
		{MA50: true},
		{MA200: true},
	} {
		assert.False(t, filter.Build(p).Match(pending), "params %+v should exclude pending stock", p)
	}
}

func TestPredicate_Key(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "all", filter.Build(filter.Params{}).Key())
	assert.Equal(t,
		"forward_pe<20&dividend_yield>2.5&price>ma50&price>ma200",
		filter.Build(filter.Params{ForwardPE: f(20), DividendYield: f(2.5), MA50: true, MA200: true}).Key(),
	)
}

func TestPredicate_AndDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := filter.Predicate{}.And(filter.Less(filter.FieldForwardPE, 10))
	_ = base.And(filter.GreaterThanField(filter.FieldPrice, filter.FieldMA50))
	_ = base.And(filter.Greater(filter.FieldDividendYield, 1))

	assert.Len(t, base.Conditions(), 1)
	assert.False(t, base.Empty())
	assert.True(t, filter.Predicate{}.Empty())
}
