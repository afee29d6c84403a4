package projection

import (
	"tavola/internal/eventstore"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
)

// ApplySummary maintains the order header.
func ApplySummary(row readmodel.Summary, exists bool, ev eventstore.Event, change models.Change) (readmodel.Summary, bool) {
	at := ev.OccurredAt.UTC()
	if c, ok := change.(*models.OrderStarted); ok {
		if exists {
			return row, false
		}
		return readmodel.Summary{
			OrderID:    c.OrderID,
			BusinessID: c.BusinessID,
			CustomerID: c.CustomerID,
			LocationID: c.LocationID,
			OrderType:  c.OrderType,
			Status:     models.StatusStarted,
			StartedAt:  at,
			Version:    ev.Sequence,
		}, true
	}
	if !exists {
		return row, false
	}

	switch c := change.(type) {
	case *models.ItemAdded:
		row.ItemCount += c.Item.Quantity
		row.SubtotalCents += readmodel.LineTotal(c.Item)
	case *models.ItemRemoved:
		row.ItemCount -= c.Removed.Quantity
		row.SubtotalCents -= readmodel.LineTotal(c.Removed)
	case *models.ItemQuantityChanged:
		delta := c.Quantity - c.PreviousQuantity
		row.ItemCount += delta
		row.SubtotalCents += int64(delta) * c.UnitPriceCents
	case *models.OrderConfirmed:
		row.Status = models.StatusConfirmed
		row.ConfirmedAt = &at
	case *models.PreparationStarted:
		row.Status = models.StatusPreparing
		row.PreparingAt = &at
	case *models.OrderCompleted:
		row.Status = models.StatusCompleted
		row.CompletedAt = &at
	case *models.OrderCancelled:
		row.Status = models.StatusCancelled
		row.CancelledAt = &at
		row.CancelReason = c.Reason
		row.CancelledBy = c.CancelledBy
	default:
		return row, false
	}
	row.Version = ev.Sequence
	return row, true
}
