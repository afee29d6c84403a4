package projection

import (
	"slices"

	"tavola/internal/eventstore"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
	id "tavola/pkg/domain"
)

// ApplyLineItems maintains the current item list.
func ApplyLineItems(row readmodel.LineItems, exists bool, ev eventstore.Event, change models.Change) (readmodel.LineItems, bool) {
	if c, ok := change.(*models.OrderStarted); ok {
		if exists {
			return row, false
		}
		return readmodel.LineItems{OrderID: c.OrderID, Items: []models.LineItem{}, Version: ev.Sequence}, true
	}
	if !exists {
		return row, false
	}
	row.Items = cloneItems(row.Items)

	index := func(itemID id.ItemID) int {
		return slices.IndexFunc(row.Items, func(li models.LineItem) bool { return li.ItemID == itemID })
	}
	switch c := change.(type) {
	case *models.ItemAdded:
		if i := index(c.Item.ItemID); i >= 0 {
			row.Items[i].Quantity += c.Item.Quantity
			row.Items[i].Promotions = append(row.Items[i].Promotions, c.Item.Promotions...)
		} else {
			row.Items = append(row.Items, c.Item)
		}
	case *models.ItemRemoved:
		if i := index(c.ItemID); i >= 0 {
			row.Items = slices.Delete(row.Items, i, i+1)
		}
	case *models.ItemQuantityChanged:
		if i := index(c.ItemID); i >= 0 {
			row.Items[i].Quantity = c.Quantity
		}
	default:
		return row, false
	}
	row.Version = ev.Sequence
	return row, true
}

func cloneItems(items []models.LineItem) []models.LineItem {
	if items == nil {
		return nil
	}
	out := make([]models.LineItem, len(items))
	for i, li := range items {
		li.Promotions = slices.Clone(li.Promotions)
		out[i] = li
	}
	return out
}
