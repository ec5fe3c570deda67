// Command enrich は未エンリッチの銘柄を手動で再エンリッチするCLIです。
//
//	enrich pending [--limit N]
//	enrich stock <id>...
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("enrich failed")
		stop()
		os.Exit(1)
	}
}
