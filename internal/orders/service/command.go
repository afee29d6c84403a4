// Package service hosts the order command handler, the only writer of
// order streams, and the query handlers that read the projections.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tavola/internal/eventstore"
	"tavola/internal/orders/metrics"
	"tavola/internal/orders/models"
	id "tavola/pkg/domain"
	dErrors "tavola/pkg/domain-errors"
	"tavola/pkg/platform/sentinel"
)

// EventStore is the append side of the log.
type EventStore interface {
	Append(ctx context.Context, streamID string, expectedVersion int, events []eventstore.NewEvent) (int, error)
	ReadStream(ctx context.Context, streamID string, fromVersion int) ([]eventstore.Event, error)
}

// SnapshotStore caches folded orders so loads only replay trailing events.
type SnapshotStore interface {
	Load(ctx context.Context, streamID string) (*models.Order, bool, error)
	Save(ctx context.Context, streamID string, order *models.Order) error
}

// Result reports the stream state after a command.
type Result struct {
	OrderID id.OrderID    `json:"order_id"`
	Version int           `json:"version"`
	Status  models.Status `json:"status"`
}

const (
	defaultMaxRetries    = 3
	defaultSnapshotEvery = 50
	defaultRetryInterval = 5 * time.Millisecond
	maxRetryInterval     = 100 * time.Millisecond
)

// CommandService loads an order, decides, and appends under optimistic
// concurrency. A conflicting append reloads and re-decides up to
// maxRetries more times before giving up with ConcurrencyConflict.
type CommandService struct {
	store         EventStore
	snapshots     SnapshotStore
	snapshotEvery int
	maxRetries    int
	retryInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*CommandService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *CommandService) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CommandService) {
		s.metrics = m
	}
}

// WithClock sets the time stamped on new events.
func WithClock(now func() time.Time) Option {
	return func(s *CommandService) {
		s.now = now
	}
}

// WithMaxRetries bounds conflict retries. Zero fails on the first conflict.
func WithMaxRetries(n int) Option {
	return func(s *CommandService) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryInterval sets the first wait before re-deciding after a conflict.
func WithRetryInterval(d time.Duration) Option {
	return func(s *CommandService) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

// WithSnapshots enables snapshotting every `every` versions.
func WithSnapshots(store SnapshotStore, every int) Option {
	return func(s *CommandService) {
		s.snapshots = store
		if every > 0 {
			s.snapshotEvery = every
		}
	}
}

func NewCommandService(store EventStore, opts ...Option) *CommandService {
	s := &CommandService{
		store:         store,
		snapshotEvery: defaultSnapshotEvery,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		now:           time.Now,
		logger:        slog.Default(),
		tracer:        otel.Tracer("tavola/orders"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle executes cmd. Domain rejections come back as *models.DomainError;
// storage failures as internal dErrors.
func (s *CommandService) Handle(ctx context.Context, cmd models.Command) (Result, error) {
	t := models.TargetOf(cmd)
	ctx, span := s.tracer.Start(ctx, "orders."+cmd.Name(),
		trace.WithAttributes(
			attribute.String("order.id", t.OrderID.String()),
			attribute.Int64("order.business_id", int64(t.BusinessID)),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := s.handle(ctx, cmd, t)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if de, ok := models.AsDomainError(err); ok {
			outcome = string(de.Kind)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.metrics.ObserveCommand(cmd.Name(), outcome, time.Since(start))
	return res, err
}

func (s *CommandService) handle(ctx context.Context, cmd models.Command, t models.Target) (Result, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxInterval = maxRetryInterval
	policy.MaxElapsedTime = 0

	var (
		res      Result
		attempts int
	)
	op := func() error {
		attempts++
		var err error
		res, err = s.attempt(ctx, cmd, t)
		if err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(_ error, wait time.Duration) {
		s.metrics.IncrementConflictRetry(cmd.Name())
		s.logger.DebugContext(ctx, "append conflict, retrying",
			"command", cmd.Name(),
			"order_id", t.OrderID,
			"attempt", attempts,
			"wait", wait,
		)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.maxRetries)), ctx)
	err := backoff.RetryNotify(op, b, notify)
	if errors.Is(err, sentinel.ErrConflict) {
		s.logger.WarnContext(ctx, "command gave up after conflicts",
			"command", cmd.Name(),
			"order_id", t.OrderID,
			"attempts", attempts,
		)
		return Result{}, &models.DomainError{Kind: models.KindConcurrencyConflict, OrderID: t.OrderID}
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// attempt runs one load, decide and append round. A version conflict comes
// back unwrapped so handle can retry it.
func (s *CommandService) attempt(ctx context.Context, cmd models.Command, t models.Target) (Result, error) {
	streamID := t.OrderID.StreamID()
	order, err := s.load(ctx, streamID)
	if err != nil {
		return Result{}, err
	}
	changes, err := models.Decide(order, cmd)
	if err != nil {
		return Result{}, err
	}
	if len(changes) == 0 {
		return Result{OrderID: t.OrderID, Version: order.Version, Status: order.Status}, nil
	}

	// The log keeps microseconds, so snapshots must too.
	at := s.now().UTC().Truncate(time.Microsecond)
	batch := make([]eventstore.NewEvent, 0, len(changes))
	for _, c := range changes {
		ne, err := models.Encode(c, at, t.Metadata)
		if err != nil {
			return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event")
		}
		batch = append(batch, ne)
	}

	version, err := s.store.Append(ctx, streamID, order.Version, batch)
	if errors.Is(err, sentinel.ErrConflict) {
		return Result{}, err
	}
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append events")
	}

	next := order.Clone()
	for _, c := range changes {
		next.When(c, at)
	}
	next.Version = version
	s.snapshot(ctx, streamID, order.Version, next)
	return Result{OrderID: t.OrderID, Version: version, Status: next.Status}, nil
}

// Load returns the current state of an order stream. Unlike queries it
// reads the log, so it always reflects every committed event.
func (s *CommandService) Load(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	return s.load(ctx, orderID.StreamID())
}

func (s *CommandService) load(ctx context.Context, streamID string) (*models.Order, error) {
	order := &models.Order{}
	if s.snapshots != nil {
		snap, ok, err := s.snapshots.Load(ctx, streamID)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "snapshot load failed", "stream_id", streamID, "error", err)
			s.metrics.IncrementSnapshotLookup("error")
		case ok:
			order = snap
			s.metrics.IncrementSnapshotLookup("hit")
		default:
			s.metrics.IncrementSnapshotLookup("miss")
		}
	}

	events, err := s.store.ReadStream(ctx, streamID, order.Version)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read order stream")
	}
	for _, ev := range events {
		if err := order.Apply(ev); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fold order stream")
		}
	}
	return order, nil
}

// snapshot saves next when the append crossed a multiple of snapshotEvery.
// Failures only cost replay time later.
func (s *CommandService) snapshot(ctx context.Context, streamID string, from int, next *models.Order) {
	if s.snapshots == nil || next.Version/s.snapshotEvery == from/s.snapshotEvery {
		return
	}
	if err := s.snapshots.Save(ctx, streamID, next); err != nil {
		s.logger.WarnContext(ctx, "snapshot save failed", "stream_id", streamID, "version", next.Version, "error", err)
	}
}
