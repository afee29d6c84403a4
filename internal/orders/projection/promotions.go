package projection

import (
	"slices"

	"tavola/internal/eventstore"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
)

// ApplyPromotions tracks the promotions carried by an order's current
// lines. Removing a line drops its promotions; quantity changes leave
// them untouched since discounts are per line.
func ApplyPromotions(row readmodel.Promotions, exists bool, ev eventstore.Event, change models.Change) (readmodel.Promotions, bool) {
	if c, ok := change.(*models.OrderStarted); ok {
		if exists {
			return row, false
		}
		return readmodel.Promotions{OrderID: c.OrderID, Applied: []readmodel.AppliedPromotion{}, Version: ev.Sequence}, true
	}
	if !exists {
		return row, false
	}
	row.Applied = slices.Clone(row.Applied)

	switch c := change.(type) {
	case *models.ItemAdded:
		for _, p := range c.Item.Promotions {
			row.Applied = append(row.Applied, readmodel.AppliedPromotion{
				ItemID:        c.Item.ItemID,
				Code:          p.Code,
				DiscountCents: p.DiscountCents,
			})
		}
	case *models.ItemRemoved:
		row.Applied = slices.DeleteFunc(row.Applied, func(p readmodel.AppliedPromotion) bool {
			return p.ItemID == c.ItemID
		})
	default:
		return row, false
	}
	row.TotalDiscountCents = 0
	for _, p := range row.Applied {
		row.TotalDiscountCents += p.DiscountCents
	}
	row.Version = ev.Sequence
	return row, true
}
