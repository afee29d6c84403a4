// Command rebuild drops read models and replays the event log into them.
// Stop the server's subscribers first; a live projector racing the replay
// would write stale rows.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tavola/internal/app"
	"tavola/internal/orders/projection"
	"tavola/internal/platform/config"
	"tavola/internal/platform/logger"
	pstrings "tavola/pkg/platform/strings"
)

func main() {
	var names string
	var list bool
	flag.StringVar(&names, "projection", "", "comma separated projectors to rebuild (default: all)")
	flag.BoolVar(&list, "list", false, "list projectors")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, names, list); err != nil {
		log.Error("rebuild failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, names string, list bool) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	log := logger.New(cfg.LogLevel)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if list {
		for _, p := range a.Projectors {
			fmt.Println(p.Name())
		}
		return nil
	}

	selected, err := projection.Select(a.Projectors, pstrings.SplitList(names)...)
	if err != nil {
		return err
	}
	return projection.Rebuild(ctx, a.Runner, a.Checkpoints, log, selected...)
}
