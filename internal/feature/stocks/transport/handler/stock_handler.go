// Package handler はstocksフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	"stock_screener/internal/feature/stocks/domain"
	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/domain/filter"
	"stock_screener/internal/feature/stocks/transport/http/dto"
	"stock_screener/internal/platform/logger"
)

// StockUsecase は銘柄操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type StockUsecase interface {
	Create(ctx context.Context, symbol string) (uint, error)
	Get(ctx context.Context, id uint) (entity.Stock, error)
	List(ctx context.Context, params filter.Params) ([]entity.Stock, error)
}

// StockHandler は銘柄のHTTPリクエストを処理します。
type StockHandler struct {
	uc StockUsecase
}

// NewStockHandler は指定されたusecaseでStockHandlerの新しいインスタンスを生成します。
func NewStockHandler(uc StockUsecase) *StockHandler {
	return &StockHandler{uc: uc}
}

// Create は銘柄を登録し、エンリッチメントの完了を待たずにIDを返します。
//
// エンドポイント例:
// POST /stock {"symbol": "AAPL"}
func (h *StockHandler) Create(c *gin.Context) {
	var req dto.CreateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "error", Message: "symbol is required"})
		return
	}

	id, err := h.uc.Create(c.Request.Context(), strings.TrimSpace(req.Symbol))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CreateStockResponse{
		Code:    "success",
		Message: "stock was added to the database",
		ID:      id,
	})
}

// List はフィルター条件に一致する銘柄の一覧を返します。
//
// エンドポイント例:
// GET /stocks?forward_pe=20&dividend_yield=2&ma50=on&ma200=on
//
// 空文字のパラメータは未指定として扱い、同じキーが複数ある場合は最後の値を使います。
// ma50 / ma200 は値ではなく有無のみを見ます。
func (h *StockHandler) List(c *gin.Context) {
	q := nonEmpty(c.Request.URL.Query())

	var (
		resp   dto.ListStocksResponse
		params filter.Params
	)
	if err := runtime.BindQueryParameter("form", true, false, "forward_pe", q, &resp.ForwardPE); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "error", Message: "forward_pe must be a number"})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "dividend_yield", q, &resp.DividendYield); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "error", Message: "dividend_yield must be a number"})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "ma50", q, &resp.MA50); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "error", Message: "invalid ma50"})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "ma200", q, &resp.MA200); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "error", Message: "invalid ma200"})
		return
	}

	params.ForwardPE = resp.ForwardPE
	params.DividendYield = resp.DividendYield
	params.MA50 = resp.MA50 != nil
	params.MA200 = resp.MA200 != nil

	stocks, err := h.uc.List(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp.Stocks = make([]dto.StockResponse, 0, len(stocks))
	for _, s := range stocks {
		resp.Stocks = append(resp.Stocks, dto.NewStockResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

// Get は銘柄1件を返します。エンリッチメントの完了確認に使えます。
//
// エンドポイント例:
// GET /stocks/42
func (h *StockHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "error", Message: "invalid stock id"})
		return
	}

	s, err := h.uc.Get(c.Request.Context(), uint(id))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStockResponse(s))
}

// writeError maps domain errors onto HTTP status codes.
func (h *StockHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptySymbol):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "error", Message: err.Error()})
	case errors.Is(err, domain.ErrStockNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: "error", Message: err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: "error", Message: "internal server error"})
	}
}

// nonEmpty keeps the last non-empty value of each parameter. Parameters whose
// values are all empty strings are dropped.
func nonEmpty(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		for i := len(vs) - 1; i >= 0; i-- {
			if vs[i] != "" {
				out[k] = []string{vs[i]}
				break
			}
		}
	}
	return out
}
