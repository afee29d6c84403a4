package projection

import (
	"slices"

	"tavola/internal/eventstore"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
)

// ApplyStatusHistory appends one transition per status-changing event.
func ApplyStatusHistory(row readmodel.StatusHistory, exists bool, ev eventstore.Event, change models.Change) (readmodel.StatusHistory, bool) {
	t := readmodel.Transition{At: ev.OccurredAt.UTC(), Sequence: ev.Sequence}
	switch c := change.(type) {
	case *models.OrderStarted:
		if exists {
			return row, false
		}
		row = readmodel.StatusHistory{OrderID: c.OrderID}
		t.To = models.StatusStarted
	case *models.OrderConfirmed:
		t.To = models.StatusConfirmed
	case *models.PreparationStarted:
		t.To = models.StatusPreparing
	case *models.OrderCompleted:
		t.To = models.StatusCompleted
	case *models.OrderCancelled:
		t.To = models.StatusCancelled
		t.Actor = c.CancelledBy
	default:
		return row, false
	}
	if !exists && t.To != models.StatusStarted {
		return row, false
	}
	if n := len(row.Transitions); n > 0 {
		t.From = row.Transitions[n-1].To
	}
	row.Transitions = append(slices.Clone(row.Transitions), t)
	row.Version = ev.Sequence
	return row, true
}
