package router

import (
	"github.com/gin-gonic/gin"

	stockhandler "stock_screener/internal/feature/stocks/transport/handler"
	"stock_screener/internal/platform/http/handler"
	"stock_screener/internal/platform/http/middleware"
)

func NewRouter(stocks *stockhandler.StockHandler, health *handler.HealthHandler) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging("/healthz"),
		middleware.Recovery(),
	)

	// 導通確認用
	r.GET("/healthz", health.Health)
	r.HEAD("/healthz", health.Health)
	r.OPTIONS("/healthz", health.Health)

	// 銘柄の登録（エンリッチメントは非同期）
	r.POST("/stock", stocks.Create)

	// 一覧（フィルター付き）
	r.GET("/", stocks.List)
	r.GET("/stocks", stocks.List)
	r.GET("/stocks/:id", stocks.Get)

	return r
}
