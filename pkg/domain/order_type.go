package domain

import dErrors "tavola/pkg/domain-errors"

// OrderType is how the customer receives the order.
// Invariant: the value must be one of the supported order types.
//
// Usage: construct via ParseOrderType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

var validOrderTypes = map[OrderType]bool{
	OrderTypeDineIn:   true,
	OrderTypeTakeaway: true,
	OrderTypeDelivery: true,
}

// ParseOrderType constructs an OrderType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseOrderType(s string) (OrderType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "order type cannot be empty")
	}
	t := OrderType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid order type")
	}
	return t, nil
}

// IsValid checks if the order type is one of the supported values.
func (t OrderType) IsValid() bool {
	return validOrderTypes[t]
}

func (t OrderType) String() string {
	return string(t)
}
