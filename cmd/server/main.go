package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"tavola/internal/app"
	"tavola/internal/platform/config"
	"tavola/internal/platform/httpserver"
	"tavola/internal/platform/logger"
	"tavola/internal/platform/metrics"
	"tavola/internal/platform/middleware"
	"tavola/pkg/platform/httputil"
)

// main wires the order core behind the HTTP API and runs the subscribers
// alongside it until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	r := chi.NewRouter()
	r.Use(middleware.Common(log, metrics.New())...)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		checks := a.Health(req.Context())
		status := http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, checks)
	})
	a.Handler.Register(r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(ctx)
	})
	g.Go(func() error {
		return httpserver.Serve(ctx, httpserver.New(cfg.Addr, r), log)
	})
	return g.Wait()
}
