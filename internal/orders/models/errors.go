package models

import (
	"errors"
	"fmt"
	"strings"

	id "tavola/pkg/domain"
	dErrors "tavola/pkg/domain-errors"
)

// Kind discriminates domain failures.
type Kind string

const (
	KindEmptyOrder          Kind = "empty_order"
	KindAlreadyCancelled    Kind = "already_cancelled"
	KindAlreadyConfirmed    Kind = "already_confirmed"
	KindItemNotFound        Kind = "item_not_found"
	KindInvalidQuantity     Kind = "invalid_quantity"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindIllegalTransition   Kind = "illegal_transition"
	KindOrderNotFound       Kind = "order_not_found"
	KindAlreadyStarted      Kind = "already_started"
	KindValidation          Kind = "validation"
)

var codeByKind = map[Kind]dErrors.Code{
	KindEmptyOrder:          dErrors.CodeInvariantViolation,
	KindAlreadyCancelled:    dErrors.CodeInvariantViolation,
	KindAlreadyConfirmed:    dErrors.CodeInvariantViolation,
	KindItemNotFound:        dErrors.CodeNotFound,
	KindInvalidQuantity:     dErrors.CodeValidation,
	KindConcurrencyConflict: dErrors.CodeConflict,
	KindIllegalTransition:   dErrors.CodeInvariantViolation,
	KindOrderNotFound:       dErrors.CodeNotFound,
	KindAlreadyStarted:      dErrors.CodeConflict,
	KindValidation:          dErrors.CodeValidation,
}

// DomainError is the single error type returned by the aggregate and the
// command handler. Kind says which invariant failed; the remaining fields
// carry whatever context applies.
type DomainError struct {
	Kind    Kind
	OrderID id.OrderID
	From    Status
	To      Status
	ItemID  id.ItemID
	Detail  string
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if !e.OrderID.IsNil() {
		fmt.Fprintf(&b, ": order %s", e.OrderID)
	}
	if e.From != "" || e.To != "" {
		fmt.Fprintf(&b, ": %s -> %s", e.From, e.To)
	}
	if e.ItemID != 0 {
		fmt.Fprintf(&b, ": item %d", e.ItemID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Code maps the kind onto the transport error code.
func (e *DomainError) Code() dErrors.Code {
	if c, ok := codeByKind[e.Kind]; ok {
		return c
	}
	return dErrors.CodeInternal
}

// Reason exposes the kind to transports.
func (e *DomainError) Reason() string {
	return string(e.Kind)
}

// Retryable reports whether the caller may resubmit unchanged.
func (e *DomainError) Retryable() bool {
	return e.Kind == KindConcurrencyConflict
}

// IsKind reports whether err is a DomainError of kind k.
func IsKind(err error, k Kind) bool {
	de, ok := AsDomainError(err)
	return ok && de.Kind == k
}

// AsDomainError unwraps err to a *DomainError.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
