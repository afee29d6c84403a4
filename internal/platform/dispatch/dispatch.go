// Package dispatch delivers the global event feed to an explicit list of
// subscribers. Each subscriber runs in its own goroutine, resumes from its
// own checkpoint and fails alone.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tavola/internal/eventstore"
)

// Handler consumes events. Handle must tolerate redelivery of an event it
// already processed.
type Handler interface {
	Name() string
	Handle(ctx context.Context, ev eventstore.Event) error
}

// Checkpoints persists the last fully handled position per subscriber.
type Checkpoints interface {
	Load(ctx context.Context, name string) (int64, error)
	Save(ctx context.Context, name string, position int64) error
}

// Skip marks err as permanent: the event is logged, counted and passed over
// instead of retried. Use it for events that can never succeed, such as a
// malformed payload.
func Skip(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsSkip reports whether err was marked with Skip.
func IsSkip(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// State is a subscriber's lifecycle position.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateHalted   State = "halted"
	StateStopped  State = "stopped"
)

// Status is a point-in-time view of one subscriber.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Position  int64     `json:"position"`
	Skipped   int       `json:"skipped"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultBatchSize      = 256
)

// Runner fans the feed out to subscribers.
type Runner struct {
	feed           eventstore.Feed
	checkpoints    Checkpoints
	logger         *slog.Logger
	metrics        *Metrics
	tracer         trace.Tracer
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	batchSize      int
	now            func() time.Time

	mu       sync.RWMutex
	statuses map[string]*Status
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithRetry sets the attempts per event and the first backoff interval.
func WithRetry(maxAttempts int, initial time.Duration) Option {
	return func(r *Runner) {
		if maxAttempts > 0 {
			r.maxAttempts = maxAttempts
		}
		if initial > 0 {
			r.initialBackoff = initial
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func New(feed eventstore.Feed, checkpoints Checkpoints, opts ...Option) *Runner {
	r := &Runner{
		feed:           feed,
		checkpoints:    checkpoints,
		logger:         slog.Default(),
		tracer:         otel.Tracer("tavola/dispatch"),
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		batchSize:      defaultBatchSize,
		now:            time.Now,
		statuses:       make(map[string]*Status),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run delivers the feed to every handler until ctx ends. A handler that
// exhausts its retries is halted; the others keep running. Run returns an
// error only for setup failures such as duplicate names or an unreadable
// checkpoint.
func (r *Runner) Run(ctx context.Context, handlers ...Handler) error {
	seen := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		if seen[h.Name()] {
			return fmt.Errorf("duplicate subscriber name %q", h.Name())
		}
		seen[h.Name()] = true
		r.setStatus(h.Name(), func(s *Status) { s.State = StateStarting })
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, h := range handlers {
		g.Go(func() error {
			return r.consume(ctx, h, false)
		})
	}
	return g.Wait()
}

// CatchUp delivers every event committed so far to h and returns. Rebuilds
// and tests use it instead of Run.
func (r *Runner) CatchUp(ctx context.Context, h Handler) error {
	return r.consume(ctx, h, true)
}

// Statuses returns subscriber states sorted by name.
func (r *Runner) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Status) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}

func (r *Runner) consume(ctx context.Context, h Handler, untilHead bool) error {
	name := h.Name()
	pos, err := r.checkpoints.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load checkpoint for %s: %w", name, err)
	}

	var head int64
	if untilHead {
		if head, err = r.feed.Head(ctx); err != nil {
			return fmt.Errorf("read feed head: %w", err)
		}
		if pos >= head {
			return nil
		}
	}

	r.setStatus(name, func(s *Status) {
		s.State = StateRunning
		s.Position = pos
	})
	r.logger.InfoContext(ctx, "subscriber started", "subscriber", name, "position", pos)

	sub := eventstore.Subscribe(r.feed, pos, eventstore.WithBatchSize(r.batchSize))
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.setStatus(name, func(s *Status) { s.State = StateStopped })
				return nil
			}
			r.logger.WarnContext(ctx, "feed read failed", "subscriber", name, "error", err)
			if !sleep(ctx, r.initialBackoff) {
				r.setStatus(name, func(s *Status) { s.State = StateStopped })
				return nil
			}
			continue
		}

		if err := r.deliver(ctx, h, ev); err != nil {
			if ctx.Err() != nil {
				r.setStatus(name, func(s *Status) { s.State = StateStopped })
				return nil
			}
			if !IsSkip(err) {
				r.halt(ctx, name, ev, err)
				if untilHead {
					return fmt.Errorf("subscriber %s halted at position %d: %w", name, ev.Position, err)
				}
				return nil
			}
			r.logger.ErrorContext(ctx, "event skipped",
				"subscriber", name,
				"position", ev.Position,
				"stream_id", ev.StreamID,
				"type", ev.Type,
				"error", err,
			)
			r.metrics.IncrementSkipped(name)
			r.setStatus(name, func(s *Status) {
				s.Skipped++
				s.LastError = err.Error()
			})
		}

		if err := r.save(ctx, name, ev.Position); err != nil {
			if ctx.Err() != nil {
				r.setStatus(name, func(s *Status) { s.State = StateStopped })
				return nil
			}
			r.halt(ctx, name, ev, err)
			if untilHead {
				return fmt.Errorf("subscriber %s checkpoint at %d: %w", name, ev.Position, err)
			}
			return nil
		}
		r.metrics.IncrementHandled(name)
		r.setStatus(name, func(s *Status) { s.Position = ev.Position })

		if untilHead && ev.Position >= head {
			r.setStatus(name, func(s *Status) { s.State = StateStopped })
			return nil
		}
	}
}

// deliver retries h.Handle with exponential backoff. A Skip error stops
// the retries at once and is returned as is.
func (r *Runner) deliver(ctx context.Context, h Handler, ev eventstore.Event) error {
	ctx, span := r.tracer.Start(ctx, "dispatch "+h.Name(),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("event.type", ev.Type),
			attribute.String("event.stream_id", ev.StreamID),
			attribute.Int64("event.position", ev.Position),
		),
	)
	defer span.End()

	var last error
	op := func() error {
		last = h.Handle(ctx, ev)
		return last
	}
	notify := func(err error, wait time.Duration) {
		r.metrics.IncrementRetry(h.Name())
		r.logger.WarnContext(ctx, "subscriber retrying event",
			"subscriber", h.Name(),
			"position", ev.Position,
			"wait", wait,
			"error", err,
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(r.policy(), ctx), notify); err != nil {
		span.RecordError(last)
		span.SetStatus(codes.Error, "handler failed")
		if IsSkip(last) {
			return last
		}
		return err
	}
	return nil
}

func (r *Runner) save(ctx context.Context, name string, pos int64) error {
	return backoff.Retry(func() error {
		return r.checkpoints.Save(ctx, name, pos)
	}, backoff.WithContext(r.policy(), ctx))
}

func (r *Runner) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialBackoff
	b.MaxInterval = r.maxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(r.maxAttempts-1))
}

func (r *Runner) halt(ctx context.Context, name string, ev eventstore.Event, err error) {
	r.logger.ErrorContext(ctx, "subscriber halted",
		"subscriber", name,
		"position", ev.Position,
		"stream_id", ev.StreamID,
		"type", ev.Type,
		"error", err,
	)
	r.metrics.IncrementHalted(name)
	r.setStatus(name, func(s *Status) {
		s.State = StateHalted
		s.LastError = err.Error()
	})
}

func (r *Runner) setStatus(name string, fn func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.statuses[name]
	if !ok {
		s = &Status{Name: name}
		r.statuses[name] = s
	}
	fn(s)
	s.UpdatedAt = r.now().UTC()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
