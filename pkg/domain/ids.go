package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "tavola/pkg/domain-errors"
)

// OrderID identifies an order and, one to one, its event stream.
// Invariant: never the nil UUID once parsed or generated.
type OrderID uuid.UUID

// ParseOrderID constructs an OrderID from external input.
//
// Errors: returns CodeInvalidInput for empty, malformed, or nil UUIDs.
func ParseOrderID(s string) (OrderID, error) {
	if strings.TrimSpace(s) == "" {
		return OrderID{}, dErrors.New(dErrors.CodeInvalidInput, "order id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return OrderID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid order id format")
	}
	if parsed == uuid.Nil {
		return OrderID{}, dErrors.New(dErrors.CodeInvalidInput, "order id cannot be nil")
	}
	return OrderID(parsed), nil
}

func (id OrderID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id OrderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// StreamID is the event stream name for this order.
func (id OrderID) StreamID() string { return streamPrefix + id.String() }

const streamPrefix = "order-"

// OrderIDFromStream recovers the order id from an order stream name.
func OrderIDFromStream(streamID string) (OrderID, error) {
	raw, ok := strings.CutPrefix(streamID, streamPrefix)
	if !ok {
		return OrderID{}, dErrors.New(dErrors.CodeInvalidInput, "not an order stream")
	}
	return ParseOrderID(raw)
}

// BusinessID scopes every command and query to one tenant business.
// It is supplied explicitly by the caller; the core never infers it.
type BusinessID int64

// LocationID identifies a restaurant location within a business.
type LocationID int64

// CustomerID identifies the customer who started an order.
type CustomerID int64

// ItemID identifies a menu item referenced by a line item.
type ItemID int64

// ParseBusinessID parses a positive business id.
func ParseBusinessID(s string) (BusinessID, error) {
	v, err := parsePositive(s, "business id")
	return BusinessID(v), err
}

// ParseLocationID parses a positive location id.
func ParseLocationID(s string) (LocationID, error) {
	v, err := parsePositive(s, "location id")
	return LocationID(v), err
}

// ParseItemID parses a positive item id.
func ParseItemID(s string) (ItemID, error) {
	v, err := parsePositive(s, "item id")
	return ItemID(v), err
}

func parsePositive(s, name string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" cannot be empty")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name)
	}
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be positive")
	}
	return v, nil
}

// IDGenerator produces new order ids. Callers generate the id before building
// a StartOrder command so command construction stays a pure value.
type IDGenerator interface {
	NewOrderID() OrderID
}

// UUIDGenerator generates random (v4) order ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewOrderID() OrderID { return OrderID(uuid.New()) }

func (id OrderID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *OrderID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
