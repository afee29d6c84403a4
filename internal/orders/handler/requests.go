package handler

import (
	"strings"

	"tavola/internal/orders/models"
	id "tavola/pkg/domain"
	dErrors "tavola/pkg/domain-errors"
)

const (
	maxNameLength   = 200
	maxReasonLength = 500
	maxPromotions   = 20
)

// StartOrderRequest is the body of POST /orders. Channel, session and
// table describe where the order was placed and land in event metadata.
type StartOrderRequest struct {
	CustomerID int64  `json:"customer_id"`
	LocationID int64  `json:"location_id"`
	OrderType  string `json:"order_type"`
	Channel    string `json:"channel,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Table      string `json:"table,omitempty"`

	orderType id.OrderType
}

// Validate implements httputil.Validatable.
func (r *StartOrderRequest) Validate() error {
	if r.CustomerID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "customer_id is required")
	}
	if r.LocationID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "location_id is required")
	}
	t, err := id.ParseOrderType(r.OrderType)
	if err != nil {
		return err
	}
	r.orderType = t
	r.Channel = strings.TrimSpace(r.Channel)
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.Table = strings.TrimSpace(r.Table)
	return nil
}

type PromotionRequest struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
}

// AddItemRequest is the body of POST /orders/{orderID}/items. Prices and
// promotions arrive already computed.
type AddItemRequest struct {
	ItemID         int64              `json:"item_id"`
	Name           string             `json:"name"`
	Quantity       int                `json:"quantity"`
	UnitPriceCents int64              `json:"unit_price_cents"`
	Promotions     []PromotionRequest `json:"promotions,omitempty"`
}

func (r *AddItemRequest) Validate() error {
	if r.ItemID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "item_id is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if len(r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	if len(r.Promotions) > maxPromotions {
		return dErrors.New(dErrors.CodeValidation, "too many promotions")
	}
	return nil
}

func (r *AddItemRequest) lineItem() models.LineItem {
	li := models.LineItem{
		ItemID:         id.ItemID(r.ItemID),
		Name:           r.Name,
		Quantity:       r.Quantity,
		UnitPriceCents: r.UnitPriceCents,
	}
	for _, p := range r.Promotions {
		li.Promotions = append(li.Promotions, models.Promotion{Code: strings.TrimSpace(p.Code), DiscountCents: p.DiscountCents})
	}
	return li
}

// ChangeQuantityRequest is the body of PATCH /orders/{orderID}/items/{itemID}.
type ChangeQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CancelRequest is the body of POST /orders/{orderID}/cancel.
type CancelRequest struct {
	Reason      string `json:"reason,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

func (r *CancelRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	r.CancelledBy = strings.TrimSpace(r.CancelledBy)
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}
