// Package app assembles the order core from configuration. Empty
// connection settings select the in-memory implementation of each store,
// so the same wiring serves local runs, tests and production.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tavola/internal/eventstore"
	memstore "tavola/internal/eventstore/memory"
	pgstore "tavola/internal/eventstore/postgres"
	"tavola/internal/orders/handler"
	"tavola/internal/orders/metrics"
	"tavola/internal/orders/process"
	"tavola/internal/orders/projection"
	"tavola/internal/orders/readmodel"
	pgmodels "tavola/internal/orders/readmodel/postgres"
	"tavola/internal/orders/relay"
	"tavola/internal/orders/service"
	"tavola/internal/platform/config"
	"tavola/internal/platform/dispatch"
	"tavola/internal/platform/kafka"
	"tavola/internal/platform/postgres"
	"tavola/internal/platform/redis"
	id "tavola/pkg/domain"
	"tavola/pkg/platform/circuit"
)

const snapshotTTL = 24 * time.Hour

// Checkpoints is a checkpoint store that can also be rewound.
type Checkpoints interface {
	dispatch.Checkpoints
	Reset(ctx context.Context, name string) error
}

// App holds the assembled components.
type App struct {
	Store       eventstore.Store
	Checkpoints Checkpoints
	Models      readmodel.Models
	Commands    *service.CommandService
	Queries     *service.QueryService
	Runner      *dispatch.Runner
	Projectors  []projection.Resettable
	Subscribers []dispatch.Handler
	Handler     *handler.Handler

	listen  func(ctx context.Context) error
	checks  map[string]func(ctx context.Context) error
	closers []func()
}

// Build connects to the configured backends and wires every component.
// On error, anything already opened is closed.
func Build(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *App, err error) {
	a := &App{checks: map[string]func(context.Context) error{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openStorage(ctx, cfg, logger); err != nil {
		return nil, err
	}

	var (
		snapshots    service.SnapshotStore = service.NewMemorySnapshots()
		correlations process.CorrelationStore = process.NewMemoryCorrelations()
	)
	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.checks["redis"] = client.Health
		snapshots = service.NewRedisSnapshots(client.Client, snapshotTTL)
		correlations = process.NewRedisCorrelations(client.Client)
	}

	orderMetrics := metrics.New()
	a.Commands = service.NewCommandService(a.Store,
		service.WithLogger(logger),
		service.WithMetrics(orderMetrics),
		service.WithMaxRetries(cfg.Commands.MaxRetries),
		service.WithSnapshots(snapshots, cfg.Commands.SnapshotEvery),
	)
	a.Queries = service.NewQueryService(a.Models)

	var notifier process.KitchenNotifier = process.NewLogNotifier(logger)
	var relayed dispatch.Handler
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers, logger)
		if err != nil {
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
		a.checks["kafka"] = producer.Health
		if err := producer.EnsureTopics(ctx, cfg.Kafka.Partitions, cfg.Kafka.EventsTopic, cfg.Kafka.KitchenTopic); err != nil {
			return nil, err
		}
		notifier = process.NewKafkaNotifier(producer, cfg.Kafka.KitchenTopic, circuit.New("kitchen"), logger)
		relayed = relay.New(producer, cfg.Kafka.EventsTopic, orderMetrics)
	}

	manager := process.New(correlations, notifier, a.Commands, a.Commands,
		process.WithLogger(logger),
		process.WithMetrics(orderMetrics),
		process.WithAutoAccept(cfg.Process.AutoAccept),
		process.WithRetry(cfg.Process.MaxAttempts, cfg.Process.InitialBackoff),
	)

	a.Runner = dispatch.New(a.Store, a.Checkpoints,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(dispatch.NewMetrics()),
		dispatch.WithBatchSize(cfg.Feed.BatchSize),
	)
	a.Projectors = projection.All(a.Models)
	for _, p := range a.Projectors {
		a.Subscribers = append(a.Subscribers, p)
	}
	a.Subscribers = append(a.Subscribers, manager)
	if relayed != nil {
		a.Subscribers = append(a.Subscribers, relayed)
	}

	a.Handler = handler.New(a.Commands, a.Queries, id.UUIDGenerator{}, a.Runner, logger)
	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg config.Server, logger *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, events and read models are kept in memory")
		a.Store = memstore.New()
		a.Checkpoints = dispatch.NewMemoryCheckpoints()
		a.Models = readmodel.NewMemoryModels()
		return nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	a.checks["postgres"] = db.PingContext
	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store := pgstore.New(db, pgstore.WithLogger(logger), pgstore.WithPollInterval(cfg.Feed.PollInterval))
	a.Store = store
	a.listen = func(ctx context.Context) error {
		return store.Listen(ctx, cfg.DatabaseURL)
	}
	a.Checkpoints = dispatch.NewPostgresCheckpoints(db)
	a.Models = pgmodels.NewModels(db)
	return nil
}

// Run delivers the feed to every subscriber until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a.listen == nil {
		return a.Runner.Run(ctx, a.Subscribers...)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("listen for appends: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.Runner.Run(ctx, a.Subscribers...)
	})
	return g.Wait()
}

// Health pings every configured backend.
func (a *App) Health(ctx context.Context) map[string]string {
	out := make(map[string]string, len(a.checks))
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	return out
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
