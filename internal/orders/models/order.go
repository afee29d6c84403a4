package models

import (
	"fmt"
	"slices"
	"time"

	"tavola/internal/eventstore"
	id "tavola/pkg/domain"
)

// Promotion is a pre-computed discount attached to a line item by the
// pricing collaborator. The order only carries it.
type Promotion struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
}

// LineItem is one menu item on an order. Pricing fields are opaque.
type LineItem struct {
	ItemID         id.ItemID   `json:"item_id"`
	Name           string      `json:"name,omitempty"`
	Quantity       int         `json:"quantity"`
	UnitPriceCents int64       `json:"unit_price_cents"`
	Promotions     []Promotion `json:"promotions,omitempty"`
}

// Order is the aggregate root rebuilt by folding one order stream.
//
// Invariants:
//   - Version equals the sequence of the last applied event (0 = no stream)
//   - Status only changes along the transitions table in status.go
//   - A confirmed, preparing or completed order has at least one item
//   - Every item has Quantity > 0 and a unique ItemID
//
// Order holds nothing that is not derivable from its events.
type Order struct {
	ID           id.OrderID    `json:"id"`
	BusinessID   id.BusinessID `json:"business_id"`
	Status       Status        `json:"status"`
	CustomerID   id.CustomerID `json:"customer_id"`
	LocationID   id.LocationID `json:"location_id"`
	OrderType    id.OrderType  `json:"order_type"`
	Items        []LineItem    `json:"items"`
	StartedAt    time.Time     `json:"started_at"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
	PreparingAt  *time.Time    `json:"preparing_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CancelledBy  string        `json:"cancelled_by,omitempty"`
	Version      int           `json:"version"`
}

// Exists reports whether the stream has been started.
func (o *Order) Exists() bool {
	return o.Version > 0
}

// ItemIndex returns the position of itemID in Items, or -1.
func (o *Order) ItemIndex(itemID id.ItemID) int {
	return slices.IndexFunc(o.Items, func(li LineItem) bool { return li.ItemID == itemID })
}

// Fold rebuilds an order from its events, starting from the empty state.
func Fold(events []eventstore.Event) (*Order, error) {
	o := &Order{}
	for _, ev := range events {
		if err := o.Apply(ev); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Apply advances the order by one stored event. Events must arrive in
// sequence order.
func (o *Order) Apply(ev eventstore.Event) error {
	if ev.Sequence != o.Version+1 {
		return fmt.Errorf("apply %s: sequence %d does not follow version %d", ev.StreamID, ev.Sequence, o.Version)
	}
	change, err := Decode(ev)
	if err != nil {
		return err
	}
	o.When(change, ev.OccurredAt)
	o.Version = ev.Sequence
	return nil
}

// When mutates state for one change. It never validates: changes are facts.
func (o *Order) When(change Change, at time.Time) {
	at = at.UTC()
	switch c := change.(type) {
	case *OrderStarted:
		o.ID = c.OrderID
		o.BusinessID = c.BusinessID
		o.CustomerID = c.CustomerID
		o.LocationID = c.LocationID
		o.OrderType = c.OrderType
		o.Status = StatusStarted
		o.Items = []LineItem{}
		o.StartedAt = at
	case *ItemAdded:
		if i := o.ItemIndex(c.Item.ItemID); i >= 0 {
			existing := &o.Items[i]
			existing.Quantity += c.Item.Quantity
			existing.Promotions = append(existing.Promotions, c.Item.Promotions...)
			return
		}
		item := c.Item
		item.Promotions = slices.Clone(item.Promotions)
		o.Items = append(o.Items, item)
	case *ItemRemoved:
		if i := o.ItemIndex(c.ItemID); i >= 0 {
			o.Items = slices.Delete(o.Items, i, i+1)
		}
	case *ItemQuantityChanged:
		if i := o.ItemIndex(c.ItemID); i >= 0 {
			o.Items[i].Quantity = c.Quantity
		}
	case *OrderConfirmed:
		o.Status = StatusConfirmed
		o.ConfirmedAt = &at
	case *PreparationStarted:
		o.Status = StatusPreparing
		o.PreparingAt = &at
	case *OrderCompleted:
		o.Status = StatusCompleted
		o.CompletedAt = &at
	case *OrderCancelled:
		o.Status = StatusCancelled
		o.CancelledAt = &at
		o.CancelReason = c.Reason
		o.CancelledBy = c.CancelledBy
	}
}

// Clone returns a deep copy, used by snapshot caches.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Items != nil {
		cp.Items = make([]LineItem, len(o.Items))
	}
	for i, li := range o.Items {
		li.Promotions = slices.Clone(li.Promotions)
		cp.Items[i] = li
	}
	cp.ConfirmedAt = cloneTime(o.ConfirmedAt)
	cp.PreparingAt = cloneTime(o.PreparingAt)
	cp.CompletedAt = cloneTime(o.CompletedAt)
	cp.CancelledAt = cloneTime(o.CancelledAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
