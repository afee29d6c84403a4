// Package projection maintains the order read models. Each projector folds
// events into one table through a pure apply function; the generic
// Projector adds decoding, the per-row version guard and storage.
package projection

import (
	"context"
	"errors"
	"fmt"

	"tavola/internal/eventstore"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
	"tavola/internal/platform/dispatch"
	id "tavola/pkg/domain"
)

// ApplyFunc folds one event into a row. exists is false when the order has
// no row yet. It returns the new row and whether anything changed; it must
// not perform I/O.
type ApplyFunc[T readmodel.Row] func(row T, exists bool, ev eventstore.Event, change models.Change) (T, bool)

// Projector keeps one read model table in step with the feed.
type Projector[T readmodel.Row] struct {
	name  string
	table readmodel.Table[T]
	apply ApplyFunc[T]
}

// New binds an apply function to a table under a subscriber name.
func New[T readmodel.Row](name string, table readmodel.Table[T], apply ApplyFunc[T]) *Projector[T] {
	return &Projector[T]{name: name, table: table, apply: apply}
}

func (p *Projector[T]) Name() string {
	return p.name
}

// Handle applies ev to its order's row. Redelivered events (sequence not
// past the row version) and event types this build does not know are
// ignored. Malformed payloads are marked for skipping.
func (p *Projector[T]) Handle(ctx context.Context, ev eventstore.Event) error {
	orderID, err := id.OrderIDFromStream(ev.StreamID)
	if err != nil {
		return nil
	}
	change, err := models.Decode(ev)
	if errors.Is(err, models.ErrUnknownEventType) {
		return nil
	}
	if err != nil {
		return dispatch.Skip(err)
	}

	row, exists, err := p.table.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	if exists && row.StreamVersion() >= ev.Sequence {
		return nil
	}
	next, changed := p.apply(row, exists, ev, change)
	if !changed {
		return nil
	}
	if err := p.table.Put(ctx, orderID, next); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

// Reset empties the table ahead of a rebuild.
func (p *Projector[T]) Reset(ctx context.Context) error {
	return p.table.Reset(ctx)
}

// Resettable is a projector whose read model can be rebuilt.
type Resettable interface {
	dispatch.Handler
	Reset(ctx context.Context) error
}

// Subscriber names, also used as checkpoint keys.
const (
	NameSummary       = "order_summary"
	NameLineItems     = "order_line_items"
	NameStatusHistory = "order_status_history"
	NameSession       = "order_session"
	NamePromotions    = "order_promotions"
	NameAnalytics     = "order_analytics"
)

// All returns the six projectors over m, in a stable order.
func All(m readmodel.Models) []Resettable {
	return []Resettable{
		New(NameSummary, readmodel.Table[readmodel.Summary](m.Summaries), ApplySummary),
		New(NameLineItems, m.LineItems, ApplyLineItems),
		New(NameStatusHistory, m.StatusHistory, ApplyStatusHistory),
		New(NameSession, m.Sessions, ApplySession),
		New(NamePromotions, m.Promotions, ApplyPromotions),
		New(NameAnalytics, m.Analytics, ApplyAnalytics),
	}
}
