// Package readmodel holds the denormalized order views maintained by the
// projectors and read by the query service. Every row carries the stream
// sequence of the last event applied to it; projectors use it to drop
// redelivered events.
package readmodel

import (
	"time"

	"tavola/internal/orders/models"
	id "tavola/pkg/domain"
)

// Row is implemented by every read model row.
type Row interface {
	StreamVersion() int
}

// Summary is the order header used for lookups, status lists and the
// kitchen queue.
type Summary struct {
	OrderID       id.OrderID    `json:"order_id"`
	BusinessID    id.BusinessID `json:"business_id"`
	CustomerID    id.CustomerID `json:"customer_id"`
	LocationID    id.LocationID `json:"location_id"`
	OrderType     id.OrderType  `json:"order_type"`
	Status        models.Status `json:"status"`
	ItemCount     int           `json:"item_count"`
	SubtotalCents int64         `json:"subtotal_cents"`
	StartedAt     time.Time     `json:"started_at"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty"`
	PreparingAt   *time.Time    `json:"preparing_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
	CancelledBy   string        `json:"cancelled_by,omitempty"`
	Version       int           `json:"version"`
}

// LineItems is the current item list of an order.
type LineItems struct {
	OrderID id.OrderID        `json:"order_id"`
	Items   []models.LineItem `json:"items"`
	Version int               `json:"version"`
}

// Transition is one status change.
type Transition struct {
	From     models.Status `json:"from,omitempty"`
	To       models.Status `json:"to"`
	At       time.Time     `json:"at"`
	Sequence int           `json:"sequence"`
	Actor    string        `json:"actor,omitempty"`
}

// StatusHistory lists every status change of an order, oldest first.
type StatusHistory struct {
	OrderID     id.OrderID   `json:"order_id"`
	Transitions []Transition `json:"transitions"`
	Version     int          `json:"version"`
}

// Session describes where and how an order was placed.
type Session struct {
	OrderID     id.OrderID `json:"order_id"`
	Channel     string     `json:"channel,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
	Table       string     `json:"table,omitempty"`
	RequestID   string     `json:"request_id,omitempty"`
	Device      string     `json:"device,omitempty"`
	Browser     string     `json:"browser,omitempty"`
	OS          string     `json:"os,omitempty"`
	Bot         bool       `json:"bot,omitempty"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	Version     int        `json:"version"`
}

// AppliedPromotion is a promotion carried on a line item.
type AppliedPromotion struct {
	ItemID        id.ItemID `json:"item_id"`
	Code          string    `json:"code"`
	DiscountCents int64     `json:"discount_cents"`
}

// Promotions lists the promotions attached to an order's current items.
type Promotions struct {
	OrderID            id.OrderID         `json:"order_id"`
	Applied            []AppliedPromotion `json:"applied"`
	TotalDiscountCents int64              `json:"total_discount_cents"`
	Version            int                `json:"version"`
}

// Analytics aggregates per-order activity counters and lifecycle latencies.
type Analytics struct {
	OrderID          id.OrderID    `json:"order_id"`
	BusinessID       id.BusinessID `json:"business_id"`
	LocationID       id.LocationID `json:"location_id"`
	OrderType        id.OrderType  `json:"order_type"`
	Outcome          models.Status `json:"outcome"`
	ItemsAdded       int           `json:"items_added"`
	ItemsRemoved     int           `json:"items_removed"`
	QuantityChanges  int           `json:"quantity_changes"`
	GrossCents       int64         `json:"gross_cents"`
	DiscountCents    int64         `json:"discount_cents"`
	StartedAt        time.Time     `json:"started_at"`
	SecondsToConfirm float64       `json:"seconds_to_confirm,omitempty"`
	SecondsToPrepare float64       `json:"seconds_to_prepare,omitempty"`
	SecondsToFinish  float64       `json:"seconds_to_finish,omitempty"`
	Version          int           `json:"version"`
}

func (r Summary) StreamVersion() int       { return r.Version }
func (r LineItems) StreamVersion() int     { return r.Version }
func (r StatusHistory) StreamVersion() int { return r.Version }
func (r Session) StreamVersion() int       { return r.Version }
func (r Promotions) StreamVersion() int    { return r.Version }
func (r Analytics) StreamVersion() int     { return r.Version }

// LineTotal is quantity times unit price less the carried discounts. It is
// additive, so removing a line subtracts exactly what adding it added.
func LineTotal(li models.LineItem) int64 {
	return int64(li.Quantity)*li.UnitPriceCents - LineDiscount(li)
}

// LineDiscount sums the discounts carried on a line.
func LineDiscount(li models.LineItem) int64 {
	var d int64
	for _, p := range li.Promotions {
		d += p.DiscountCents
	}
	return d
}
