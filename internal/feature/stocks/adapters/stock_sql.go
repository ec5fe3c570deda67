// Package adapters はstocksフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stock_screener/internal/feature/stocks/domain"
	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/domain/filter"
	"stock_screener/internal/feature/stocks/usecase"
)

// numericColumns are written together by Update.
var numericColumns = []string{"price", "ma50", "ma200", "forward_pe", "forward_eps", "dividend_yield"}

// StockModel is the gorm mapping of the stocks table.
type StockModel struct {
	ID            uint      `gorm:"primaryKey"`
	Symbol        string    `gorm:"size:32;not null;index"`
	Price         *float64  `gorm:"column:price"`
	MA50          *float64  `gorm:"column:ma50"`
	MA200         *float64  `gorm:"column:ma200"`
	ForwardPE     *float64  `gorm:"column:forward_pe"`
	ForwardEPS    *float64  `gorm:"column:forward_eps"`
	DividendYield *float64  `gorm:"column:dividend_yield"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (StockModel) TableName() string {
	return "stocks"
}

func toModel(s entity.Stock) StockModel {
	return StockModel{
		ID:            s.ID,
		Symbol:        s.Symbol,
		Price:         s.Price,
		MA50:          s.MA50,
		MA200:         s.MA200,
		ForwardPE:     s.ForwardPE,
		ForwardEPS:    s.ForwardEPS,
		DividendYield: s.DividendYield,
	}
}

func toEntity(m StockModel) entity.Stock {
	return entity.Stock{
		ID:            m.ID,
		Symbol:        m.Symbol,
		Price:         m.Price,
		MA50:          m.MA50,
		MA200:         m.MA200,
		ForwardPE:     m.ForwardPE,
		ForwardEPS:    m.ForwardEPS,
		DividendYield: m.DividendYield,
	}
}

// stockSQL はStockRepositoryインターフェースのgorm実装です（PostgreSQL / SQLite）。
type stockSQL struct {
	db *gorm.DB
}

var _ usecase.StockRepository = (*stockSQL)(nil)

// NewStockRepository は指定されたDB接続でstockSQLリポジトリの新しいインスタンスを生成します。
func NewStockRepository(db *gorm.DB) *stockSQL {
	return &stockSQL{db: db}
}

// Insert stores a stock with only its symbol and returns the assigned id.
func (r *stockSQL) Insert(ctx context.Context, symbol string) (uint, error) {
	m := StockModel{Symbol: symbol}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return 0, &domain.PersistenceError{Op: "insert", Err: err}
	}
	return m.ID, nil
}

// GetByID はIDで銘柄を取得します。存在しない場合は domain.ErrStockNotFound を返します。
func (r *stockSQL) GetByID(ctx context.Context, id uint) (entity.Stock, error) {
	var m StockModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.Stock{}, domain.ErrStockNotFound
		}
		return entity.Stock{}, &domain.PersistenceError{Op: "get", Err: err}
	}
	return toEntity(m), nil
}

// Update は指標カラムを1つのUPDATE文でまとめて書き込みます。
// 行単位の原子性はDBが保証するため、一部のカラムだけが更新されることはありません。
// nil のフィールドは NULL として書き込まれます。
func (r *stockSQL) Update(ctx context.Context, s entity.Stock) error {
	res := r.db.WithContext(ctx).
		Model(&StockModel{ID: s.ID}).
		Select(numericColumns).
		Updates(toModel(s))
	if res.Error != nil {
		return &domain.PersistenceError{Op: "update", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

// ListWhere returns stocks matching p, ordered by id. Comparisons are left to
// SQL, where a NULL operand makes the condition false.
func (r *stockSQL) ListWhere(ctx context.Context, p filter.Predicate) ([]entity.Stock, error) {
	q := r.db.WithContext(ctx).Model(&StockModel{})
	for _, c := range p.Conditions() {
		expr, args, err := conditionSQL(c)
		if err != nil {
			return nil, err
		}
		q = q.Where(expr, args...)
	}

	var rows []StockModel
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	return toEntities(rows), nil
}

// ListPending は指標が1つも設定されていない銘柄をID順に返します。
func (r *stockSQL) ListPending(ctx context.Context, limit int) ([]entity.Stock, error) {
	q := r.db.WithContext(ctx).Model(&StockModel{})
	for _, col := range numericColumns {
		q = q.Where(col + " IS NULL")
	}
	q = q.Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []StockModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "list pending", Err: err}
	}
	return toEntities(rows), nil
}

func toEntities(rows []StockModel) []entity.Stock {
	out := make([]entity.Stock, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out
}

// conditionSQL renders c as a WHERE fragment. Column and operator names come
// from allowlists, never from user input.
func conditionSQL(c filter.Condition) (string, []interface{}, error) {
	col, err := column(c.Field)
	if err != nil {
		return "", nil, err
	}
	if c.Op != filter.OpLess && c.Op != filter.OpGreater {
		return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
	}

	if c.Other != "" {
		other, err := column(c.Other)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s %s", col, c.Op, other), nil, nil
	}
	if c.Value == nil {
		return "", nil, fmt.Errorf("condition on %s has no operand", col)
	}
	return fmt.Sprintf("%s %s ?", col, c.Op), []interface{}{*c.Value}, nil
}

func column(f filter.Field) (string, error) {
	for _, col := range numericColumns {
		if col == string(f) {
			return col, nil
		}
	}
	return "", fmt.Errorf("unknown stock field %q", f)
}
