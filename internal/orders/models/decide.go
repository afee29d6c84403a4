package models

import (
	"fmt"
	"slices"
)

// Decide validates cmd against the current state and returns the changes to
// append. It is pure: the order is not modified. A nil slice with a nil
// error means the command is already satisfied and nothing is appended.
func Decide(o *Order, cmd Command) ([]Change, error) {
	t := cmd.target()
	if t.OrderID.IsNil() {
		return nil, &DomainError{Kind: KindValidation, Detail: "order id is required"}
	}
	if t.BusinessID <= 0 {
		return nil, &DomainError{Kind: KindValidation, OrderID: t.OrderID, Detail: "business id is required"}
	}

	if start, ok := cmd.(StartOrder); ok {
		return decideStart(o, start)
	}

	// Orders of another business are reported as missing, never as forbidden.
	if !o.Exists() || o.BusinessID != t.BusinessID {
		return nil, &DomainError{Kind: KindOrderNotFound, OrderID: t.OrderID}
	}

	switch c := cmd.(type) {
	case AddItem:
		return decideAddItem(o, c)
	case RemoveItem:
		return decideRemoveItem(o, c)
	case ChangeItemQuantity:
		return decideChangeQuantity(o, c)
	case ConfirmOrder:
		return decideConfirm(o)
	case BeginPreparing:
		if err := o.checkTransition(StatusPreparing); err != nil {
			return nil, err
		}
		return []Change{&PreparationStarted{}}, nil
	case CompleteOrder:
		if err := o.checkTransition(StatusCompleted); err != nil {
			return nil, err
		}
		return []Change{&OrderCompleted{}}, nil
	case CancelOrder:
		if err := o.checkTransition(StatusCancelled); err != nil {
			return nil, err
		}
		return []Change{&OrderCancelled{
			Reason:         c.Reason,
			CancelledBy:    c.CancelledBy,
			PreviousStatus: o.Status,
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}

func decideStart(o *Order, c StartOrder) ([]Change, error) {
	if o.Exists() {
		if o.BusinessID != c.BusinessID {
			return nil, &DomainError{Kind: KindOrderNotFound, OrderID: c.OrderID}
		}
		return nil, &DomainError{Kind: KindAlreadyStarted, OrderID: c.OrderID}
	}
	if c.CustomerID <= 0 {
		return nil, &DomainError{Kind: KindValidation, OrderID: c.OrderID, Detail: "customer id is required"}
	}
	if c.LocationID <= 0 {
		return nil, &DomainError{Kind: KindValidation, OrderID: c.OrderID, Detail: "location id is required"}
	}
	if !c.OrderType.IsValid() {
		return nil, &DomainError{Kind: KindValidation, OrderID: c.OrderID, Detail: "invalid order type"}
	}
	return []Change{&OrderStarted{
		OrderID:    c.OrderID,
		BusinessID: c.BusinessID,
		CustomerID: c.CustomerID,
		LocationID: c.LocationID,
		OrderType:  c.OrderType,
	}}, nil
}

func decideAddItem(o *Order, c AddItem) ([]Change, error) {
	if err := o.checkItemsEditable(); err != nil {
		return nil, err
	}
	item := c.Item
	if item.ItemID <= 0 {
		return nil, &DomainError{Kind: KindValidation, OrderID: o.ID, Detail: "item id is required"}
	}
	if item.Quantity <= 0 {
		return nil, &DomainError{Kind: KindInvalidQuantity, OrderID: o.ID, ItemID: item.ItemID, Detail: fmt.Sprintf("quantity %d", item.Quantity)}
	}
	if item.UnitPriceCents < 0 {
		return nil, &DomainError{Kind: KindValidation, OrderID: o.ID, ItemID: item.ItemID, Detail: "unit price cannot be negative"}
	}
	for _, p := range item.Promotions {
		if p.Code == "" || p.DiscountCents < 0 {
			return nil, &DomainError{Kind: KindValidation, OrderID: o.ID, ItemID: item.ItemID, Detail: "malformed promotion"}
		}
	}
	return []Change{&ItemAdded{Item: item}}, nil
}

func decideRemoveItem(o *Order, c RemoveItem) ([]Change, error) {
	if err := o.checkItemsEditable(); err != nil {
		return nil, err
	}
	i := o.ItemIndex(c.ItemID)
	if i < 0 {
		return nil, &DomainError{Kind: KindItemNotFound, OrderID: o.ID, ItemID: c.ItemID}
	}
	if o.Status == StatusConfirmed && len(o.Items) == 1 {
		return nil, &DomainError{Kind: KindEmptyOrder, OrderID: o.ID, ItemID: c.ItemID, Detail: "a confirmed order keeps at least one item"}
	}
	removed := o.Items[i]
	removed.Promotions = slices.Clone(removed.Promotions)
	return []Change{&ItemRemoved{ItemID: c.ItemID, Removed: removed}}, nil
}

func decideChangeQuantity(o *Order, c ChangeItemQuantity) ([]Change, error) {
	if err := o.checkItemsEditable(); err != nil {
		return nil, err
	}
	if c.Quantity <= 0 {
		return nil, &DomainError{Kind: KindInvalidQuantity, OrderID: o.ID, ItemID: c.ItemID, Detail: fmt.Sprintf("quantity %d", c.Quantity)}
	}
	i := o.ItemIndex(c.ItemID)
	if i < 0 {
		return nil, &DomainError{Kind: KindItemNotFound, OrderID: o.ID, ItemID: c.ItemID}
	}
	current := o.Items[i]
	if current.Quantity == c.Quantity {
		return nil, nil
	}
	return []Change{&ItemQuantityChanged{
		ItemID:           c.ItemID,
		Quantity:         c.Quantity,
		PreviousQuantity: current.Quantity,
		UnitPriceCents:   current.UnitPriceCents,
	}}, nil
}

func decideConfirm(o *Order) ([]Change, error) {
	switch o.Status {
	case StatusCancelled:
		return nil, &DomainError{Kind: KindAlreadyCancelled, OrderID: o.ID}
	case StatusConfirmed, StatusPreparing, StatusCompleted:
		return nil, &DomainError{Kind: KindAlreadyConfirmed, OrderID: o.ID, From: o.Status, To: StatusConfirmed}
	}
	if len(o.Items) == 0 {
		return nil, &DomainError{Kind: KindEmptyOrder, OrderID: o.ID}
	}
	return []Change{&OrderConfirmed{ItemCount: len(o.Items)}}, nil
}

// checkItemsEditable allows item mutations while started or confirmed.
func (o *Order) checkItemsEditable() error {
	switch o.Status {
	case StatusStarted, StatusConfirmed:
		return nil
	case StatusCancelled:
		return &DomainError{Kind: KindAlreadyCancelled, OrderID: o.ID}
	default:
		return &DomainError{Kind: KindAlreadyConfirmed, OrderID: o.ID, From: o.Status, Detail: "items are locked once preparation starts"}
	}
}

// checkTransition validates a status change against the state machine.
func (o *Order) checkTransition(next Status) error {
	if o.Status == StatusCancelled {
		return &DomainError{Kind: KindAlreadyCancelled, OrderID: o.ID}
	}
	if !o.Status.CanTransitionTo(next) {
		return &DomainError{Kind: KindIllegalTransition, OrderID: o.ID, From: o.Status, To: next}
	}
	return nil
}
