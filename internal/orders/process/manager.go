// Package process reacts to order events with side effects: kitchen
// tickets and follow-up commands. Each step fires at most once per order;
// the correlation record is written only after the effect succeeded, so a
// crash in between repeats the effect under the same idempotency key.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tavola/internal/eventstore"
	"tavola/internal/orders/metrics"
	"tavola/internal/orders/models"
	"tavola/internal/orders/service"
	"tavola/internal/platform/dispatch"
	id "tavola/pkg/domain"
)

// Name is the subscriber name of the process manager.
const Name = "process_manager"

// CommandDispatcher sends follow-up commands to the command handler.
type CommandDispatcher interface {
	Handle(ctx context.Context, cmd models.Command) (service.Result, error)
}

// OrderLoader reads the current state of an order from the log.
type OrderLoader interface {
	Load(ctx context.Context, orderID id.OrderID) (*models.Order, error)
}

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 200 * time.Millisecond
	maxBackoff            = 10 * time.Second
)

type Manager struct {
	correlations   CorrelationStore
	notifier       KitchenNotifier
	commands       CommandDispatcher
	orders         OrderLoader
	autoAccept     bool
	maxAttempts    int
	initialBackoff time.Duration
	now            func() time.Time
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithAutoAccept makes confirmation start preparation automatically.
func WithAutoAccept(enabled bool) Option {
	return func(m *Manager) {
		m.autoAccept = enabled
	}
}

// WithRetry sets the per-step attempt budget.
func WithRetry(maxAttempts int, initial time.Duration) Option {
	return func(m *Manager) {
		if maxAttempts > 0 {
			m.maxAttempts = maxAttempts
		}
		if initial > 0 {
			m.initialBackoff = initial
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New builds the manager. *service.CommandService serves as both commands
// and orders.
func New(correlations CorrelationStore, notifier KitchenNotifier, commands CommandDispatcher, orders OrderLoader, opts ...Option) *Manager {
	m := &Manager{
		correlations:   correlations,
		notifier:       notifier,
		commands:       commands,
		orders:         orders,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Name() string {
	return Name
}

// step is one reactive rule.
type step struct {
	id       StepID
	requires StepID
	run      func(ctx context.Context, orderID id.OrderID, ev eventstore.Event, change models.Change) error
}

func (m *Manager) stepsFor(change models.Change) []step {
	switch change.(type) {
	case *models.OrderConfirmed:
		steps := []step{{id: StepNotifyKitchen, run: m.notifyKitchen}}
		if m.autoAccept {
			steps = append(steps, step{id: StepStartPreparation, requires: StepNotifyKitchen, run: m.startPreparation})
		}
		return steps
	case *models.OrderCancelled:
		return []step{{id: StepRecallKitchen, requires: StepNotifyKitchen, run: m.recallKitchen}}
	}
	return nil
}

// Handle runs the steps ev triggers. Failing side effects are marked
// failed and never block the feed; only correlation store errors are
// returned, so the dispatcher retries the event.
func (m *Manager) Handle(ctx context.Context, ev eventstore.Event) error {
	change, err := models.Decode(ev)
	if errors.Is(err, models.ErrUnknownEventType) {
		return nil
	}
	if err != nil {
		return dispatch.Skip(err)
	}
	steps := m.stepsFor(change)
	if len(steps) == 0 {
		return nil
	}
	orderID, err := id.OrderIDFromStream(ev.StreamID)
	if err != nil {
		return dispatch.Skip(err)
	}

	corr, err := m.correlations.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load correlation for %s: %w", orderID, err)
	}
	for _, st := range steps {
		if corr.HasFired(st.id) || corr.HasFailed(st.id) {
			continue
		}
		if st.requires != "" && !corr.HasFired(st.requires) {
			m.metrics.IncrementProcessStep(string(st.id), "not_applicable")
			continue
		}

		if err := m.execute(ctx, st, orderID, ev, change); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.ErrorContext(ctx, "process step failed",
				"step", st.id,
				"order_id", orderID,
				"idempotency_key", IdempotencyKey(orderID, st.id),
				"error", err,
			)
			m.metrics.IncrementProcessStep(string(st.id), "failed")
			if err := m.correlations.MarkFailed(ctx, orderID, st.id, err.Error()); err != nil {
				return fmt.Errorf("mark %s failed: %w", st.id, err)
			}
			continue
		}
		if err := m.correlations.MarkFired(ctx, orderID, st.id); err != nil {
			return fmt.Errorf("mark %s fired: %w", st.id, err)
		}
		corr.Fired[st.id] = true
		m.metrics.IncrementProcessStep(string(st.id), "fired")
		m.logger.InfoContext(ctx, "process step fired", "step", st.id, "order_id", orderID)
	}
	return nil
}

// execute retries a step with exponential backoff. Domain rejections are
// permanent and end the retries at once.
func (m *Manager) execute(ctx context.Context, st step, orderID id.OrderID, ev eventstore.Event, change models.Change) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.initialBackoff
	policy.MaxInterval = maxBackoff
	policy.MaxElapsedTime = 0

	var last error
	op := func() error {
		last = st.run(ctx, orderID, ev, change)
		if _, ok := models.AsDomainError(last); ok {
			return backoff.Permanent(last)
		}
		return last
	}
	notify := func(err error, wait time.Duration) {
		m.metrics.IncrementProcessStep(string(st.id), "retried")
		m.logger.WarnContext(ctx, "process step retrying",
			"step", st.id,
			"order_id", orderID,
			"wait", wait,
			"error", err,
		)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(m.maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if last != nil {
			return last
		}
		return err
	}
	return nil
}

func (m *Manager) ticket(ctx context.Context, orderID id.OrderID, st StepID, action string) (Ticket, *models.Order, error) {
	order, err := m.orders.Load(ctx, orderID)
	if err != nil {
		return Ticket{}, nil, err
	}
	return Ticket{
		IdempotencyKey: IdempotencyKey(orderID, st),
		Action:         action,
		OrderID:        orderID,
		BusinessID:     order.BusinessID,
		LocationID:     order.LocationID,
		OrderType:      order.OrderType,
		IssuedAt:       m.now().UTC(),
	}, order, nil
}

func (m *Manager) notifyKitchen(ctx context.Context, orderID id.OrderID, _ eventstore.Event, _ models.Change) error {
	t, order, err := m.ticket(ctx, orderID, StepNotifyKitchen, ActionPrepare)
	if err != nil {
		return err
	}
	t.Items = order.Items
	return m.notifier.Notify(ctx, t)
}

func (m *Manager) recallKitchen(ctx context.Context, orderID id.OrderID, _ eventstore.Event, change models.Change) error {
	t, _, err := m.ticket(ctx, orderID, StepRecallKitchen, ActionRecall)
	if err != nil {
		return err
	}
	if c, ok := change.(*models.OrderCancelled); ok {
		t.Reason = c.Reason
	}
	return m.notifier.Notify(ctx, t)
}

func (m *Manager) startPreparation(ctx context.Context, orderID id.OrderID, ev eventstore.Event, _ models.Change) error {
	order, err := m.orders.Load(ctx, orderID)
	if err != nil {
		return err
	}
	// Staff got there first.
	if order.Status == models.StatusPreparing || order.Status == models.StatusCompleted {
		return nil
	}
	_, err = m.commands.Handle(ctx, models.BeginPreparing{Target: models.Target{
		OrderID:    orderID,
		BusinessID: order.BusinessID,
		Metadata: map[string]string{
			models.MetaChannel:     Name,
			models.MetaCausationID: ev.StreamID + "/" + strconv.Itoa(ev.Sequence),
		},
	}})
	return err
}
