package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tavola/internal/eventstore"
	"tavola/internal/eventstore/memory"
	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
	"tavola/internal/platform/dispatch"
	id "tavola/pkg/domain"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"

type ProjectionSuite struct {
	suite.Suite
	ctx         context.Context
	store       *memory.Store
	models      readmodel.Models
	checkpoints *dispatch.MemoryCheckpoints
	runner      *dispatch.Runner
	projectors  []Resettable
	orderID     id.OrderID
	start       time.Time
}

func TestProjectionSuite(t *testing.T) {
	suite.Run(t, new(ProjectionSuite))
}

func (s *ProjectionSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.models = readmodel.NewMemoryModels()
	s.checkpoints = dispatch.NewMemoryCheckpoints()
	s.runner = dispatch.New(s.store, s.checkpoints, dispatch.WithRetry(2, time.Millisecond))
	s.projectors = All(s.models)
	s.orderID = id.OrderID(uuid.New())
	s.start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ProjectionSuite) append(expected int, offset time.Duration, meta map[string]string, changes ...models.Change) {
	batch := make([]eventstore.NewEvent, 0, len(changes))
	for _, c := range changes {
		ne, err := models.Encode(c, s.start.Add(offset), meta)
		s.Require().NoError(err)
		batch = append(batch, ne)
	}
	_, err := s.store.Append(s.ctx, s.orderID.StreamID(), expected, batch)
	s.Require().NoError(err)
}

func (s *ProjectionSuite) catchUp() {
	for _, p := range s.projectors {
		s.Require().NoError(s.runner.CatchUp(s.ctx, p))
	}
}

func (s *ProjectionSuite) started() *models.OrderStarted {
	return &models.OrderStarted{
		OrderID:    s.orderID,
		BusinessID: 7,
		CustomerID: 11,
		LocationID: 3,
		OrderType:  id.OrderTypeDineIn,
	}
}

func burger(qty int) models.LineItem {
	return models.LineItem{
		ItemID:         1,
		Name:           "burger",
		Quantity:       qty,
		UnitPriceCents: 1200,
		Promotions:     []models.Promotion{{Code: "LUNCH", DiscountCents: 200}},
	}
}

func fries(qty int) models.LineItem {
	return models.LineItem{ItemID: 2, Name: "fries", Quantity: qty, UnitPriceCents: 400}
}

// lifecycle appends a full confirmed-then-completed order with edits.
func (s *ProjectionSuite) lifecycle() {
	meta := map[string]string{
		models.MetaChannel:   "web",
		models.MetaSessionID: "sess-1",
		models.MetaUserAgent: iphoneUA,
	}
	s.append(0, 0, meta, s.started())
	s.append(1, time.Minute, nil,
		&models.ItemAdded{Item: burger(2)},
		&models.ItemAdded{Item: fries(1)},
	)
	s.append(3, 2*time.Minute, map[string]string{models.MetaTable: "12"},
		&models.ItemQuantityChanged{ItemID: 2, Quantity: 3, PreviousQuantity: 1, UnitPriceCents: 400},
	)
	s.append(4, 3*time.Minute, nil, &models.OrderConfirmed{ItemCount: 5})
	s.append(5, 5*time.Minute, nil, &models.PreparationStarted{})
	s.append(6, 15*time.Minute, nil, &models.OrderCompleted{})
}

func (s *ProjectionSuite) TestSummary() {
	s.lifecycle()
	s.catchUp()

	row, ok, err := s.models.Summaries.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(models.StatusCompleted, row.Status)
	s.Equal(5, row.ItemCount)
	s.Equal(int64(2*1200-200+3*400), row.SubtotalCents)
	s.Equal(id.BusinessID(7), row.BusinessID)
	s.Equal(s.start, row.StartedAt)
	s.Require().NotNil(row.ConfirmedAt)
	s.Equal(s.start.Add(3*time.Minute), *row.ConfirmedAt)
	s.Equal(7, row.Version)
}

func (s *ProjectionSuite) TestSummaryTracksRemoval() {
	s.append(0, 0, nil, s.started())
	s.append(1, time.Minute, nil, &models.ItemAdded{Item: burger(2)}, &models.ItemAdded{Item: fries(1)})
	s.append(3, 2*time.Minute, nil, &models.ItemRemoved{ItemID: 1, Removed: burger(2)})
	s.append(4, 3*time.Minute, nil, &models.OrderCancelled{Reason: "changed mind", CancelledBy: "customer", PreviousStatus: models.StatusStarted})
	s.catchUp()

	row, _, err := s.models.Summaries.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(1, row.ItemCount)
	s.Equal(int64(400), row.SubtotalCents)
	s.Equal(models.StatusCancelled, row.Status)
	s.Equal("changed mind", row.CancelReason)
	s.Equal("customer", row.CancelledBy)

	promos, _, err := s.models.Promotions.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Empty(promos.Applied)
	s.Zero(promos.TotalDiscountCents)

	items, _, err := s.models.LineItems.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Require().Len(items.Items, 1)
	s.Equal(id.ItemID(2), items.Items[0].ItemID)
}

func (s *ProjectionSuite) TestLineItems() {
	s.lifecycle()
	s.catchUp()

	row, ok, err := s.models.LineItems.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Len(row.Items, 2)
	s.Equal(2, row.Items[0].Quantity)
	s.Equal(3, row.Items[1].Quantity)
	s.Equal(4, row.Version)
}

func (s *ProjectionSuite) TestLineItemsLeavesInputRowUntouched() {
	prior := readmodel.LineItems{OrderID: s.orderID, Items: []models.LineItem{burger(2)}, Version: 2}
	ev := eventstore.Event{StreamID: s.orderID.StreamID(), Sequence: 3, Type: models.TypeItemAdded}
	added := &models.ItemAdded{Item: burger(1)}

	first, changed := ApplyLineItems(prior, true, ev, added)
	s.Require().True(changed)
	second, changed := ApplyLineItems(prior, true, ev, added)
	s.Require().True(changed)

	s.Equal(first, second)
	s.Equal(3, first.Items[0].Quantity)
	s.Len(first.Items[0].Promotions, 2)
	s.Equal(2, prior.Items[0].Quantity)
	s.Len(prior.Items[0].Promotions, 1)
	s.Equal(2, prior.Version)

	removed, changed := ApplyLineItems(prior, true, ev, &models.ItemRemoved{ItemID: 1})
	s.Require().True(changed)
	s.Empty(removed.Items)
	s.Require().Len(prior.Items, 1)
	s.Equal(id.ItemID(1), prior.Items[0].ItemID)
}

func (s *ProjectionSuite) TestListRowsAreNotShared() {
	ev := eventstore.Event{StreamID: s.orderID.StreamID(), Sequence: 3}

	applied := make([]readmodel.AppliedPromotion, 2, 4)
	applied[0] = readmodel.AppliedPromotion{ItemID: 1, Code: "LUNCH", DiscountCents: 200}
	applied[1] = readmodel.AppliedPromotion{ItemID: 2, Code: "FRIES", DiscountCents: 50}
	promos := readmodel.Promotions{OrderID: s.orderID, Applied: applied, Version: 2}
	next, changed := ApplyPromotions(promos, true, ev, &models.ItemRemoved{ItemID: 1})
	s.Require().True(changed)
	s.Len(next.Applied, 1)
	s.Equal("LUNCH", promos.Applied[0].Code)
	s.Equal("FRIES", promos.Applied[1].Code)

	transitions := make([]readmodel.Transition, 1, 4)
	transitions[0] = readmodel.Transition{To: models.StatusStarted, Sequence: 1}
	history := readmodel.StatusHistory{OrderID: s.orderID, Transitions: transitions, Version: 2}
	confirmed, _ := ApplyStatusHistory(history, true, ev, &models.OrderConfirmed{})
	cancelled, _ := ApplyStatusHistory(history, true, ev, &models.OrderCancelled{})
	s.Equal(models.StatusConfirmed, confirmed.Transitions[1].To)
	s.Equal(models.StatusCancelled, cancelled.Transitions[1].To)
	s.Len(history.Transitions, 1)
}

func (s *ProjectionSuite) TestStatusHistory() {
	s.lifecycle()
	s.catchUp()

	row, _, err := s.models.StatusHistory.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Require().Len(row.Transitions, 4)
	s.Equal(models.Status(""), row.Transitions[0].From)
	s.Equal(models.StatusStarted, row.Transitions[0].To)
	s.Equal(models.StatusStarted, row.Transitions[1].From)
	s.Equal(models.StatusConfirmed, row.Transitions[1].To)
	s.Equal(models.StatusPreparing, row.Transitions[3].From)
	s.Equal(models.StatusCompleted, row.Transitions[3].To)
	s.Equal(7, row.Transitions[3].Sequence)
}

func (s *ProjectionSuite) TestSession() {
	s.lifecycle()
	s.catchUp()

	row, _, err := s.models.Sessions.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal("web", row.Channel)
	s.Equal("sess-1", row.SessionID)
	s.Equal("12", row.Table)
	s.Equal("mobile", row.Device)
	s.Equal("Safari", row.Browser)
	s.False(row.Bot)
	s.Equal(s.start, row.FirstSeenAt)
	s.Equal(s.start.Add(15*time.Minute), row.LastSeenAt)
}

func (s *ProjectionSuite) TestAnalytics() {
	s.lifecycle()
	s.catchUp()

	row, _, err := s.models.Analytics.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, row.Outcome)
	s.Equal(3, row.ItemsAdded)
	s.Equal(1, row.QuantityChanges)
	s.Equal(int64(2*1200+3*400), row.GrossCents)
	s.Equal(int64(200), row.DiscountCents)
	s.InDelta(180, row.SecondsToConfirm, 0.001)
	s.InDelta(300, row.SecondsToPrepare, 0.001)
	s.InDelta(900, row.SecondsToFinish, 0.001)
}

func (s *ProjectionSuite) TestRedeliveryIsIdempotent() {
	s.lifecycle()
	s.catchUp()

	events, err := s.store.ReadStream(s.ctx, s.orderID.StreamID(), 0)
	s.Require().NoError(err)
	for _, p := range s.projectors {
		for _, ev := range events {
			s.Require().NoError(p.Handle(s.ctx, ev))
		}
	}

	row, _, err := s.models.Summaries.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(5, row.ItemCount)
	history, _, err := s.models.StatusHistory.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Len(history.Transitions, 4)
	analytics, _, err := s.models.Analytics.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(3, analytics.ItemsAdded)
}

func (s *ProjectionSuite) TestIgnoresUnknownTypes() {
	s.append(0, 0, nil, s.started())
	_, err := s.store.Append(s.ctx, s.orderID.StreamID(), 1, []eventstore.NewEvent{
		{Type: "LoyaltyPointsAwarded", Payload: json.RawMessage(`{"points":10}`)},
	})
	s.Require().NoError(err)

	for _, p := range s.projectors {
		events, err := s.store.ReadStream(s.ctx, s.orderID.StreamID(), 1)
		s.Require().NoError(err)
		s.NoError(p.Handle(s.ctx, events[0]))
	}
	s.catchUp()

	row, ok, err := s.models.Summaries.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1, row.Version)
}

func (s *ProjectionSuite) TestSkipsMalformedPayloads() {
	s.append(0, 0, nil, s.started())
	_, err := s.store.Append(s.ctx, s.orderID.StreamID(), 1, []eventstore.NewEvent{
		{Type: models.TypeItemAdded, Payload: json.RawMessage(`{"item":"not an object"}`)},
	})
	s.Require().NoError(err)

	events, err := s.store.ReadStream(s.ctx, s.orderID.StreamID(), 1)
	s.Require().NoError(err)
	err = s.projectors[0].Handle(s.ctx, events[0])
	s.True(dispatch.IsSkip(err))

	s.catchUp()
	st := s.runner.Statuses()
	for _, status := range st {
		s.Equal(int64(2), status.Position, status.Name)
	}
}

func (s *ProjectionSuite) TestRebuildMatchesLiveProjection() {
	s.lifecycle()
	s.catchUp()
	before, _, err := s.models.Summaries.Get(s.ctx, s.orderID)
	s.Require().NoError(err)

	s.Require().NoError(Rebuild(s.ctx, s.runner, s.checkpoints, nil, s.projectors...))

	after, ok, err := s.models.Summaries.Get(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(before, after)
}

func (s *ProjectionSuite) TestSelect() {
	picked, err := Select(s.projectors, NameSession, NameSummary)
	s.Require().NoError(err)
	s.Require().Len(picked, 2)
	s.Equal(NameSession, picked[0].Name())

	all, err := Select(s.projectors)
	s.Require().NoError(err)
	s.Len(all, 6)

	_, err = Select(s.projectors, "nope")
	s.Error(err)
}
