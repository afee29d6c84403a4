package projection

import (
	"github.com/mssola/useragent"

	"tavola/internal/eventstore"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
)

// ApplySession records the channel and client an order was placed from.
// The first event fixes the origin; later events only move LastSeenAt and
// may fill in a table assigned after the order started.
func ApplySession(row readmodel.Session, exists bool, ev eventstore.Event, change models.Change) (readmodel.Session, bool) {
	at := ev.OccurredAt.UTC()
	meta := ev.Metadata
	if c, ok := change.(*models.OrderStarted); ok {
		if exists {
			return row, false
		}
		row = readmodel.Session{
			OrderID:     c.OrderID,
			Channel:     meta[models.MetaChannel],
			SessionID:   meta[models.MetaSessionID],
			Table:       meta[models.MetaTable],
			RequestID:   meta[models.MetaRequestID],
			FirstSeenAt: at,
			LastSeenAt:  at,
			Version:     ev.Sequence,
		}
		describeClient(&row, meta[models.MetaUserAgent])
		return row, true
	}
	if !exists {
		return row, false
	}
	if row.Table == "" {
		row.Table = meta[models.MetaTable]
	}
	if at.After(row.LastSeenAt) {
		row.LastSeenAt = at
	}
	row.Version = ev.Sequence
	return row, true
}

func describeClient(row *readmodel.Session, ua string) {
	if ua == "" {
		return
	}
	parsed := useragent.New(ua)
	row.Browser, _ = parsed.Browser()
	row.OS = parsed.OS()
	row.Bot = parsed.Bot()
	switch {
	case row.Bot:
		row.Device = "bot"
	case parsed.Mobile():
		row.Device = "mobile"
	default:
		row.Device = "desktop"
	}
}
