package readmodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tavola/internal/orders/models"
	id "tavola/pkg/domain"
)

// Table is the single-writer storage of one read model, keyed by order id.
type Table[T Row] interface {
	// Get returns the row for orderID; ok is false when none exists.
	Get(ctx context.Context, orderID id.OrderID) (row T, ok bool, err error)
	// Put replaces the row for orderID.
	Put(ctx context.Context, orderID id.OrderID, row T) error
	// Reset drops every row so the model can be rebuilt from the log.
	Reset(ctx context.Context) error
}

// ErrInvalidFilter is returned by List for a negative limit or offset.
var ErrInvalidFilter = errors.New("invalid summary filter")

// SummaryFilter selects summaries for list queries.
type SummaryFilter struct {
	BusinessID id.BusinessID
	Statuses   []models.Status
	LocationID *id.LocationID
	Order      SortOrder
	Limit      int
	Offset     int
}

// Validate rejects paging values no store can serve.
func (f SummaryFilter) Validate() error {
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: limit %d offset %d", ErrInvalidFilter, f.Limit, f.Offset)
	}
	return nil
}

// SortOrder names the supported summary orderings.
type SortOrder int

const (
	// StartedNewestFirst orders by started_at descending.
	StartedNewestFirst SortOrder = iota
	// ConfirmedOldestFirst orders by confirmed_at ascending (kitchen FIFO).
	ConfirmedOldestFirst
)

// SummaryStore adds the list query the summary model serves.
type SummaryStore interface {
	Table[Summary]
	// List returns the filtered page and the total number of matches.
	List(ctx context.Context, f SummaryFilter) ([]Summary, int, error)
}

// Models bundles the six read model tables.
type Models struct {
	Summaries     SummaryStore
	LineItems     Table[LineItems]
	StatusHistory Table[StatusHistory]
	Sessions      Table[Session]
	Promotions    Table[Promotions]
	Analytics     Table[Analytics]
}

// Matches reports whether s passes f, ignoring paging.
func (f SummaryFilter) Matches(s Summary) bool {
	if s.BusinessID != f.BusinessID {
		return false
	}
	if f.LocationID != nil && s.LocationID != *f.LocationID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if s.Status == st {
			return true
		}
	}
	return false
}

// Less orders two matching summaries under f.Order, breaking ties by id so
// pages are stable.
func (f SummaryFilter) Less(a, b Summary) bool {
	switch f.Order {
	case ConfirmedOldestFirst:
		at, bt := confirmedOrMax(a), confirmedOrMax(b)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
	default:
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
	}
	return a.OrderID.String() < b.OrderID.String()
}

func confirmedOrMax(s Summary) time.Time {
	if s.ConfirmedAt == nil {
		return time.Unix(1<<62, 0)
	}
	return *s.ConfirmedAt
}
