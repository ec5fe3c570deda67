// Package dto はstocksフィーチャーのHTTPリクエスト/レスポンスDTOを定義します。
package dto

import "stock_screener/internal/feature/stocks/domain/entity"

// CreateStockRequest は POST /stock のリクエストボディです。
type CreateStockRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// CreateStockResponse は銘柄登録成功時のレスポンスです。
type CreateStockResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ID      uint   `json:"id"`
}

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StockResponse は銘柄1件のレスポンスDTOです。未取得の指標は null になります。
type StockResponse struct {
	ID            uint     `json:"id"`
	Symbol        string   `json:"symbol"`
	Price         *float64 `json:"price"`          // 前日終値
	MA50          *float64 `json:"ma50"`           // 50日移動平均
	MA200         *float64 `json:"ma200"`          // 200日移動平均
	ForwardPE     *float64 `json:"forward_pe"`     // 予想PER
	ForwardEPS    *float64 `json:"forward_eps"`    // 予想EPS
	DividendYield *float64 `json:"dividend_yield"` // 配当利回り（%）
}

// ListStocksResponse は一覧のレスポンスです。適用したフィルター値もそのまま返します。
type ListStocksResponse struct {
	Stocks        []StockResponse `json:"stocks"`
	ForwardPE     *float64        `json:"forward_pe"`
	DividendYield *float64        `json:"dividend_yield"`
	MA50          *string         `json:"ma50"`
	MA200         *string         `json:"ma200"`
}

// NewStockResponse converts a domain stock into its response form.
func NewStockResponse(s entity.Stock) StockResponse {
	return StockResponse{
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
