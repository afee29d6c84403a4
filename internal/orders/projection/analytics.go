package projection

import (
	"tavola/internal/eventstore"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
)

// ApplyAnalytics counts item activity and records how long each lifecycle
// stage took, measured from the moment the order started.
func ApplyAnalytics(row readmodel.Analytics, exists bool, ev eventstore.Event, change models.Change) (readmodel.Analytics, bool) {
	at := ev.OccurredAt.UTC()
	if c, ok := change.(*models.OrderStarted); ok {
		if exists {
			return row, false
		}
		return readmodel.Analytics{
			OrderID:    c.OrderID,
			BusinessID: c.BusinessID,
			LocationID: c.LocationID,
			OrderType:  c.OrderType,
			Outcome:    models.StatusStarted,
			StartedAt:  at,
			Version:    ev.Sequence,
		}, true
	}
	if !exists {
		return row, false
	}

	since := at.Sub(row.StartedAt).Seconds()
	switch c := change.(type) {
	case *models.ItemAdded:
		row.ItemsAdded += c.Item.Quantity
		row.GrossCents += int64(c.Item.Quantity) * c.Item.UnitPriceCents
		row.DiscountCents += readmodel.LineDiscount(c.Item)
	case *models.ItemRemoved:
		row.ItemsRemoved += c.Removed.Quantity
		row.GrossCents -= int64(c.Removed.Quantity) * c.Removed.UnitPriceCents
		row.DiscountCents -= readmodel.LineDiscount(c.Removed)
	case *models.ItemQuantityChanged:
		row.QuantityChanges++
		row.GrossCents += int64(c.Quantity-c.PreviousQuantity) * c.UnitPriceCents
	case *models.OrderConfirmed:
		row.Outcome = models.StatusConfirmed
		row.SecondsToConfirm = since
	case *models.PreparationStarted:
		row.Outcome = models.StatusPreparing
		row.SecondsToPrepare = since
	case *models.OrderCompleted:
		row.Outcome = models.StatusCompleted
		row.SecondsToFinish = since
	case *models.OrderCancelled:
		row.Outcome = models.StatusCancelled
		row.SecondsToFinish = since
	default:
		return row, false
	}
	row.Version = ev.Sequence
	return row, true
}
