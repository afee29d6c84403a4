package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tavola/internal/eventstore"
	id "tavola/pkg/domain"
)

// Event type names as stored in the log. Never rename a published type.
const (
	TypeOrderStarted        = "OrderStarted"
	TypeItemAdded           = "ItemAdded"
	TypeItemRemoved         = "ItemRemoved"
	TypeItemQuantityChanged = "ItemQuantityChanged"
	TypeOrderConfirmed      = "OrderConfirmed"
	TypePreparationStarted  = "PreparationStarted"
	TypeOrderCompleted      = "OrderCompleted"
	TypeOrderCancelled      = "OrderCancelled"
)

// Metadata keys understood by the read side.
const (
	MetaChannel     = "channel"
	MetaSessionID   = "session_id"
	MetaTable       = "table"
	MetaRequestID   = "request_id"
	MetaUserAgent   = "user_agent"
	MetaCausationID = "causation_id"
)

// Change is a domain event payload.
type Change interface {
	EventType() string
}

type OrderStarted struct {
	OrderID    id.OrderID    `json:"order_id"`
	BusinessID id.BusinessID `json:"business_id"`
	CustomerID id.CustomerID `json:"customer_id"`
	LocationID id.LocationID `json:"location_id"`
	OrderType  id.OrderType  `json:"order_type"`
}

type ItemAdded struct {
	Item LineItem `json:"item"`
}

// ItemRemoved carries the whole line as it stood, so read models can undo
// its totals without keeping their own copy of the items.
type ItemRemoved struct {
	ItemID  id.ItemID `json:"item_id"`
	Removed LineItem  `json:"removed"`
}

type ItemQuantityChanged struct {
	ItemID           id.ItemID `json:"item_id"`
	Quantity         int       `json:"quantity"`
	PreviousQuantity int       `json:"previous_quantity"`
	UnitPriceCents   int64     `json:"unit_price_cents"`
}

type OrderConfirmed struct {
	ItemCount int `json:"item_count"`
}

type PreparationStarted struct{}

type OrderCompleted struct{}

type OrderCancelled struct {
	Reason         string `json:"reason,omitempty"`
	CancelledBy    string `json:"cancelled_by,omitempty"`
	PreviousStatus Status `json:"previous_status"`
}

func (OrderStarted) EventType() string        { return TypeOrderStarted }
func (ItemAdded) EventType() string           { return TypeItemAdded }
func (ItemRemoved) EventType() string         { return TypeItemRemoved }
func (ItemQuantityChanged) EventType() string { return TypeItemQuantityChanged }
func (OrderConfirmed) EventType() string      { return TypeOrderConfirmed }
func (PreparationStarted) EventType() string  { return TypePreparationStarted }
func (OrderCompleted) EventType() string      { return TypeOrderCompleted }
func (OrderCancelled) EventType() string      { return TypeOrderCancelled }

// ErrUnknownEventType is returned by Decode for types this version does not know.
var ErrUnknownEventType = errors.New("unknown event type")

// Decode turns a stored envelope back into its typed payload.
func Decode(ev eventstore.Event) (Change, error) {
	var c Change
	switch ev.Type {
	case TypeOrderStarted:
		c = &OrderStarted{}
	case TypeItemAdded:
		c = &ItemAdded{}
	case TypeItemRemoved:
		c = &ItemRemoved{}
	case TypeItemQuantityChanged:
		c = &ItemQuantityChanged{}
	case TypeOrderConfirmed:
		c = &OrderConfirmed{}
	case TypePreparationStarted:
		c = &PreparationStarted{}
	case TypeOrderCompleted:
		c = &OrderCompleted{}
	case TypeOrderCancelled:
		c = &OrderCancelled{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, ev.Type)
	}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, c); err != nil {
			return nil, fmt.Errorf("decode %s at %s/%d: %w", ev.Type, ev.StreamID, ev.Sequence, err)
		}
	}
	return c, nil
}

// Encode builds the envelope for a change about to be appended.
func Encode(c Change, occurredAt time.Time, metadata map[string]string) (eventstore.NewEvent, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return eventstore.NewEvent{}, fmt.Errorf("encode %s: %w", c.EventType(), err)
	}
	return eventstore.NewEvent{
		Type:       c.EventType(),
		Payload:    payload,
		OccurredAt: occurredAt,
		Metadata:   metadata,
	}, nil
}
