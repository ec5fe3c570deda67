package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stock_screener/internal/app/di"
	"stock_screener/internal/app/router"
	stockhandler "stock_screener/internal/feature/stocks/transport/handler"
	stockusecase "stock_screener/internal/feature/stocks/usecase"
	"stock_screener/internal/platform/config"
	"stock_screener/internal/platform/db"
	"stock_screener/internal/platform/http/handler"
	"stock_screener/internal/platform/logger"
	infraredis "stock_screener/internal/platform/redis"
	"stock_screener/internal/platform/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := logger.Init(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get sql.DB")
	}
	defer func() { _ = sqlDB.Close() }()

	// Redis（任意）
	var rdb *redisv9.Client
	if cfg.Redis.Enabled() {
		if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable. Running without cache.")
		} else {
			rdb = tmp
		}
	}

	// Repository（Redisがあれば一覧をキャッシュ）
	stockRepo := di.NewStockRepository(gdb, rdb, cfg.Cache.TTL, cfg.Cache.Namespace)
	market := di.NewMarketDataClient(cfg.MarketData)

	// Usecase / Dispatcher
	enrichUC := stockusecase.NewEnrichUsecase(stockRepo, market, cfg.Enrichment)
	dispatcher := worker.NewDispatcher(enrichUC.Run, cfg.Workers)
	stockUC := stockusecase.NewStockUsecase(stockRepo, dispatcher, enrichUC)

	// Handler
	stockH := stockhandler.NewStockHandler(stockUC)
	healthH := handler.NewHealthHandler(sqlDB)

	gin.SetMode(cfg.Server.Mode)
	r := router.NewRouter(stockH, healthH)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 新規リクエストを止めてから、実行中のエンリッチメントを待つ
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("enrichment tasks did not finish before shutdown timeout")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
	}
	log.Info().Msg("server stopped")
}
