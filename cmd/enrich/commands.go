package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stock_screener/internal/app/di"
	"stock_screener/internal/feature/stocks/usecase"
	"stock_screener/internal/platform/config"
	"stock_screener/internal/platform/db"
	"stock_screener/internal/platform/logger"
	infraredis "stock_screener/internal/platform/redis"
)

// Enricher is the subset of the stock service used by the CLI.
type Enricher interface {
	EnrichPending(ctx context.Context, limit int) (int, error)
	EnrichOne(ctx context.Context, id uint) error
}

// builder constructs the Enricher once configuration is known.
type builder func(cmd *cobra.Command) (Enricher, error)

// newRootCmd は enrich コマンドツリーを組み立てます。build が nil の場合は
// 設定から実際の依存関係を構築します。
func newRootCmd(build builder) *cobra.Command {
	var (
		envFile string
		timeout time.Duration
	)
	if build == nil {
		build = func(cmd *cobra.Command) (Enricher, error) {
			return buildEnricher(envFile)
		}
	}

	root := &cobra.Command{
		Use:           "enrich",
		Short:         "Re-run market data enrichment for stored stocks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall deadline for the run")

	var limit int
	pending := &cobra.Command{
		Use:   "pending",
		Short: "Enrich every stock that has no metrics yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := build(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			n, err := e.EnrichPending(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enriched %d stock(s)\n", n)
			return nil
		},
	}
	pending.Flags().IntVar(&limit, "limit", 0, "maximum number of stocks to process (0 = all)")

	stock := &cobra.Command{
		Use:   "stock <id>...",
		Short: "Enrich the given stock ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint, 0, len(args))
			for _, a := range args {
				id, err := strconv.ParseUint(a, 10, 64)
				if err != nil || id == 0 {
					return fmt.Errorf("invalid stock id %q", a)
				}
				ids = append(ids, uint(id))
			}

			e, err := build(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			failed := 0
			for _, id := range ids {
				if err := e.EnrichOne(ctx, id); err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "stock %d: %v\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stock %d: enriched\n", id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d stock(s) failed", failed, len(ids))
			}
			return nil
		},
	}

	root.AddCommand(pending, stock)
	return root
}

// buildEnricher wires the real store and market data client.
func buildEnricher(envFile string) (Enricher, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	// サーバーと同じキャッシュを使い、更新時に一覧キャッシュを無効化する
	var rdb *redisv9.Client
	if cfg.Redis.Enabled() {
		if tmp, err := infraredis.NewRedisClient(context.Background(), cfg.Redis); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable. Listing cache will not be invalidated.")
		} else {
			rdb = tmp
		}
	}

	repo := di.NewStockRepository(gdb, rdb, cfg.Cache.TTL, cfg.Cache.Namespace)
	market := di.NewMarketDataClient(cfg.MarketData)
	enrich := usecase.NewEnrichUsecase(repo, market, cfg.Enrichment)

	log.Debug().Str("driver", cfg.Database.Driver).Msg("enrich CLI ready")
	return usecase.NewStockUsecase(repo, nil, enrich), nil
}
