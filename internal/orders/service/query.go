package service

import (
	"context"
	"math"
	"slices"

	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
	id "tavola/pkg/domain"
	dErrors "tavola/pkg/domain-errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPageNumber keeps (Number-1)*Size within an int.
	maxPageNumber   = math.MaxInt / maxPageSize
)

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Number > maxPageNumber {
		p.Number = maxPageNumber
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// OrderView is a summary joined with its current line items.
type OrderView struct {
	readmodel.Summary
	Items []models.LineItem `json:"items"`
}

// OrderPage is one page of summaries plus the total match count.
type OrderPage struct {
	Orders   []readmodel.Summary `json:"orders"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// OrderInsights gathers the secondary read models of one order.
type OrderInsights struct {
	History    []readmodel.Transition `json:"history"`
	Session    *readmodel.Session     `json:"session,omitempty"`
	Promotions *readmodel.Promotions  `json:"promotions,omitempty"`
	Analytics  *readmodel.Analytics   `json:"analytics,omitempty"`
}

// QueryService answers reads from the projections only. Results may lag
// the log; callers needing read-your-writes use the command result.
type QueryService struct {
	models readmodel.Models
}

func NewQueryService(m readmodel.Models) *QueryService {
	return &QueryService{models: m}
}

// GetOrder returns the order summary with its items. Orders of another
// business are reported as not found.
func (q *QueryService) GetOrder(ctx context.Context, businessID id.BusinessID, orderID id.OrderID) (*OrderView, error) {
	summary, err := q.summary(ctx, businessID, orderID)
	if err != nil {
		return nil, err
	}
	items, ok, err := q.models.LineItems.Get(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load line items")
	}
	view := &OrderView{Summary: summary, Items: []models.LineItem{}}
	if ok && items.Items != nil {
		view.Items = items.Items
	}
	return view, nil
}

// GetOrdersByStatus lists orders in any of statuses, newest first. An
// empty status set matches every status.
func (q *QueryService) GetOrdersByStatus(ctx context.Context, businessID id.BusinessID, statuses []models.Status, locationID *id.LocationID, page Page) (*OrderPage, error) {
	if err := validateStatuses(statuses); err != nil {
		return nil, err
	}
	page = page.normalize()
	rows, total, err := q.models.Summaries.List(ctx, readmodel.SummaryFilter{
		BusinessID: businessID,
		Statuses:   statuses,
		LocationID: locationID,
		Order:      readmodel.StartedNewestFirst,
		Limit:      page.Size,
		Offset:     (page.Number - 1) * page.Size,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list orders")
	}
	if rows == nil {
		rows = []readmodel.Summary{}
	}
	return &OrderPage{Orders: rows, Total: total, Page: page.Number, PageSize: page.Size}, nil
}

// GetKitchenOrders returns the kitchen queue for a location, oldest
// confirmation first. Statuses default to confirmed and preparing.
func (q *QueryService) GetKitchenOrders(ctx context.Context, businessID id.BusinessID, locationID id.LocationID, statuses []models.Status) ([]readmodel.Summary, error) {
	if len(statuses) == 0 {
		statuses = slices.Clone(models.KitchenStatuses)
	}
	if err := validateStatuses(statuses); err != nil {
		return nil, err
	}
	rows, _, err := q.models.Summaries.List(ctx, readmodel.SummaryFilter{
		BusinessID: businessID,
		Statuses:   statuses,
		LocationID: &locationID,
		Order:      readmodel.ConfirmedOldestFirst,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list kitchen orders")
	}
	if rows == nil {
		rows = []readmodel.Summary{}
	}
	return rows, nil
}

// GetOrderInsights returns status history, session, promotions and
// analytics for one order. Models not yet projected are omitted.
func (q *QueryService) GetOrderInsights(ctx context.Context, businessID id.BusinessID, orderID id.OrderID) (*OrderInsights, error) {
	if _, err := q.summary(ctx, businessID, orderID); err != nil {
		return nil, err
	}
	out := &OrderInsights{History: []readmodel.Transition{}}

	history, ok, err := q.models.StatusHistory.Get(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load status history")
	}
	if ok && history.Transitions != nil {
		out.History = history.Transitions
	}
	if out.Session, err = optional(ctx, q.models.Sessions, orderID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if out.Promotions, err = optional(ctx, q.models.Promotions, orderID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load promotions")
	}
	if out.Analytics, err = optional(ctx, q.models.Analytics, orderID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load analytics")
	}
	return out, nil
}

func (q *QueryService) summary(ctx context.Context, businessID id.BusinessID, orderID id.OrderID) (readmodel.Summary, error) {
	summary, ok, err := q.models.Summaries.Get(ctx, orderID)
	if err != nil {
		return readmodel.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	if !ok || summary.BusinessID != businessID {
		return readmodel.Summary{}, &models.DomainError{Kind: models.KindOrderNotFound, OrderID: orderID}
	}
	return summary, nil
}

func optional[T readmodel.Row](ctx context.Context, table readmodel.Table[T], orderID id.OrderID) (*T, error) {
	row, ok, err := table.Get(ctx, orderID)
	if err != nil || !ok {
		return nil, err
	}
	return &row, nil
}

func validateStatuses(statuses []models.Status) error {
	for _, st := range statuses {
		if !st.IsValid() {
			return &models.DomainError{Kind: models.KindValidation, Detail: "unknown status " + string(st)}
		}
	}
	return nil
}
