package models

import (
	id "tavola/pkg/domain"
)

// Target addresses a command at one order within one business. Metadata is
// copied onto every event the command produces.
type Target struct {
	OrderID    id.OrderID
	BusinessID id.BusinessID
	Metadata   map[string]string
}

func (t Target) target() Target { return t }

// Command is an immutable intent. The set is closed: only types in this
// package implement it.
type Command interface {
	target() Target
	Name() string
}

// TargetOf returns the addressing fields of cmd.
func TargetOf(cmd Command) Target {
	return cmd.target()
}

type StartOrder struct {
	Target
	CustomerID id.CustomerID
	LocationID id.LocationID
	OrderType  id.OrderType
}

type AddItem struct {
	Target
	Item LineItem
}

type RemoveItem struct {
	Target
	ItemID id.ItemID
}

type ChangeItemQuantity struct {
	Target
	ItemID   id.ItemID
	Quantity int
}

type ConfirmOrder struct {
	Target
}

type BeginPreparing struct {
	Target
}

type CompleteOrder struct {
	Target
}

type CancelOrder struct {
	Target
	Reason      string
	CancelledBy string
}

func (StartOrder) Name() string         { return "start_order" }
func (AddItem) Name() string            { return "add_item" }
func (RemoveItem) Name() string         { return "remove_item" }
func (ChangeItemQuantity) Name() string { return "change_item_quantity" }
func (ConfirmOrder) Name() string       { return "confirm_order" }
func (BeginPreparing) Name() string     { return "begin_preparing" }
func (CompleteOrder) Name() string      { return "complete_order" }
func (CancelOrder) Name() string        { return "cancel_order" }
