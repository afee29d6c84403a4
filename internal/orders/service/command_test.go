package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tavola/internal/eventstore"
	"tavola/internal/eventstore/memory"
	"tavola/internal/orders/models"
	id "tavola/pkg/domain"
	dErrors "tavola/pkg/domain-errors"
)

// conflictingStore fails the next n appends with a version conflict.
type conflictingStore struct {
	*memory.Store
	remaining atomic.Int32
	appends   atomic.Int32
}

func (c *conflictingStore) Append(ctx context.Context, streamID string, expected int, events []eventstore.NewEvent) (int, error) {
	c.appends.Add(1)
	if c.remaining.Add(-1) >= 0 {
		return 0, &eventstore.ConflictError{StreamID: streamID, Expected: expected, Actual: expected + 1}
	}
	return c.Store.Append(ctx, streamID, expected, events)
}

type CommandServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	service *CommandService
	now     time.Time
	orderID id.OrderID
}

func TestCommandServiceSuite(t *testing.T) {
	suite.Run(t, new(CommandServiceSuite))
}

func (s *CommandServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.now = time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)
	s.service = NewCommandService(s.store, WithClock(func() time.Time { return s.now }))
	s.orderID = id.OrderID(uuid.New())
}

func (s *CommandServiceSuite) target() models.Target {
	return models.Target{OrderID: s.orderID, BusinessID: 42, Metadata: map[string]string{models.MetaChannel: "pos"}}
}

func (s *CommandServiceSuite) start() {
	_, err := s.service.Handle(s.ctx, models.StartOrder{
		Target:     s.target(),
		CustomerID: 9,
		LocationID: 3,
		OrderType:  id.OrderTypeTakeaway,
	})
	s.Require().NoError(err)
}

func (s *CommandServiceSuite) addItem(itemID id.ItemID, qty int) Result {
	res, err := s.service.Handle(s.ctx, models.AddItem{
		Target: s.target(),
		Item:   models.LineItem{ItemID: itemID, Name: "pizza", Quantity: qty, UnitPriceCents: 950},
	})
	s.Require().NoError(err)
	return res
}

func (s *CommandServiceSuite) TestLifecycle() {
	s.start()
	s.addItem(1, 2)

	res, err := s.service.Handle(s.ctx, models.ConfirmOrder{Target: s.target()})
	s.Require().NoError(err)
	s.Equal(3, res.Version)
	s.Equal(models.StatusConfirmed, res.Status)

	res, err = s.service.Handle(s.ctx, models.BeginPreparing{Target: s.target()})
	s.Require().NoError(err)
	s.Equal(models.StatusPreparing, res.Status)

	res, err = s.service.Handle(s.ctx, models.CompleteOrder{Target: s.target()})
	s.Require().NoError(err)
	s.Equal(5, res.Version)
	s.Equal(models.StatusCompleted, res.Status)

	events, err := s.store.ReadStream(s.ctx, s.orderID.StreamID(), 0)
	s.Require().NoError(err)
	s.Require().Len(events, 5)
	for i, ev := range events {
		s.Equal(i+1, ev.Sequence)
		s.Equal("pos", ev.Metadata[models.MetaChannel])
		s.Equal(s.now, ev.OccurredAt)
	}

	order, err := s.service.Load(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, order.Status)
	s.Equal(5, order.Version)
}

func (s *CommandServiceSuite) TestRejections() {
	s.Run("confirm before any item", func() {
		s.SetupTest()
		s.start()
		_, err := s.service.Handle(s.ctx, models.ConfirmOrder{Target: s.target()})
		s.True(models.IsKind(err, models.KindEmptyOrder))
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("confirm twice", func() {
		s.SetupTest()
		s.start()
		s.addItem(1, 1)
		_, err := s.service.Handle(s.ctx, models.ConfirmOrder{Target: s.target()})
		s.Require().NoError(err)
		_, err = s.service.Handle(s.ctx, models.ConfirmOrder{Target: s.target()})
		s.True(models.IsKind(err, models.KindAlreadyConfirmed), "got %v", err)
	})

	s.Run("double cancel", func() {
		s.SetupTest()
		s.start()
		cancel := models.CancelOrder{Target: s.target(), Reason: "no show"}
		_, err := s.service.Handle(s.ctx, cancel)
		s.Require().NoError(err)
		_, err = s.service.Handle(s.ctx, cancel)
		s.True(models.IsKind(err, models.KindAlreadyCancelled))
	})

	s.Run("unknown order", func() {
		s.SetupTest()
		_, err := s.service.Handle(s.ctx, models.ConfirmOrder{Target: s.target()})
		s.True(models.IsKind(err, models.KindOrderNotFound))
	})

	s.Run("other business", func() {
		s.SetupTest()
		s.start()
		other := s.target()
		other.BusinessID = 43
		_, err := s.service.Handle(s.ctx, models.CancelOrder{Target: other})
		s.True(models.IsKind(err, models.KindOrderNotFound))
	})

	s.Run("start twice", func() {
		s.SetupTest()
		s.start()
		_, err := s.service.Handle(s.ctx, models.StartOrder{Target: s.target(), LocationID: 3, OrderType: id.OrderTypeDineIn})
		s.True(models.IsKind(err, models.KindAlreadyStarted))
	})
}

func (s *CommandServiceSuite) TestNoopDoesNotAppend() {
	s.start()
	s.addItem(1, 2)

	res, err := s.service.Handle(s.ctx, models.ChangeItemQuantity{Target: s.target(), ItemID: 1, Quantity: 2})
	s.Require().NoError(err)
	s.Equal(2, res.Version)

	head, err := s.store.Head(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), head)
}

func (s *CommandServiceSuite) TestRetriesConflicts() {
	store := &conflictingStore{Store: s.store}
	store.remaining.Store(2)
	svc := NewCommandService(store, WithMaxRetries(3))

	_, err := svc.Handle(s.ctx, models.StartOrder{Target: s.target(), CustomerID: 1, LocationID: 1, OrderType: id.OrderTypeDineIn})
	s.Require().NoError(err)
	s.Equal(int32(3), store.appends.Load())
}

func (s *CommandServiceSuite) TestGivesUpAfterMaxRetries() {
	store := &conflictingStore{Store: s.store}
	store.remaining.Store(10)
	svc := NewCommandService(store, WithMaxRetries(2))

	_, err := svc.Handle(s.ctx, models.StartOrder{Target: s.target(), CustomerID: 1, LocationID: 1, OrderType: id.OrderTypeDineIn})
	s.True(models.IsKind(err, models.KindConcurrencyConflict))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(int32(3), store.appends.Load())
}

func (s *CommandServiceSuite) TestConflictRetryWaitsBetweenAttempts() {
	store := &conflictingStore{Store: s.store}
	store.remaining.Store(2)
	svc := NewCommandService(store, WithMaxRetries(3), WithRetryInterval(20*time.Millisecond))

	began := time.Now()
	_, err := svc.Handle(s.ctx, models.StartOrder{Target: s.target(), CustomerID: 1, LocationID: 1, OrderType: id.OrderTypeDineIn})
	s.Require().NoError(err)
	s.GreaterOrEqual(time.Since(began), 20*time.Millisecond)
	s.Equal(int32(3), store.appends.Load())
}

func (s *CommandServiceSuite) TestConflictRetryStopsOnCancel() {
	store := &conflictingStore{Store: s.store}
	store.remaining.Store(10)
	svc := NewCommandService(store, WithMaxRetries(5), WithRetryInterval(time.Hour))

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	_, err := svc.Handle(ctx, models.StartOrder{Target: s.target(), CustomerID: 1, LocationID: 1, OrderType: id.OrderTypeDineIn})
	s.Require().Error(err)
	s.Equal(int32(1), store.appends.Load())
}

func (s *CommandServiceSuite) TestRacingCommandsAllLand() {
	s.start()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Handle(s.ctx, models.AddItem{
				Target: s.target(),
				Item:   models.LineItem{ItemID: id.ItemID(i + 1), Quantity: 1, UnitPriceCents: 100},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	landed := 0
	for err := range errs {
		if err == nil {
			landed++
			continue
		}
		s.True(models.IsKind(err, models.KindConcurrencyConflict), "unexpected error %v", err)
	}
	order, err := s.service.Load(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Len(order.Items, landed)
	s.Equal(1+landed, order.Version)
}

func (s *CommandServiceSuite) TestSnapshots() {
	snaps := NewMemorySnapshots()
	s.service = NewCommandService(s.store, WithSnapshots(snaps, 2), WithClock(func() time.Time { return s.now }))

	s.start()
	_, ok, err := snaps.Load(s.ctx, s.orderID.StreamID())
	s.Require().NoError(err)
	s.False(ok)

	s.addItem(1, 1)
	snap, ok, err := snaps.Load(s.ctx, s.orderID.StreamID())
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(2, snap.Version)

	s.addItem(2, 1)
	order, err := s.service.Load(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(3, order.Version)
	s.Len(order.Items, 2)

	fresh, err := models.Fold(mustRead(s))
	s.Require().NoError(err)
	s.Equal(fresh, order)
}

func mustRead(s *CommandServiceSuite) []eventstore.Event {
	events, err := s.store.ReadStream(s.ctx, s.orderID.StreamID(), 0)
	s.Require().NoError(err)
	return events
}

func (s *CommandServiceSuite) TestSnapshotTimesMatchTheLog() {
	snaps := NewMemorySnapshots()
	s.now = time.Date(2026, 5, 4, 18, 30, 0, 123456789, time.UTC)
	s.service = NewCommandService(s.store, WithSnapshots(snaps, 1), WithClock(func() time.Time { return s.now }))

	s.start()
	snap, ok, err := snaps.Load(s.ctx, s.orderID.StreamID())
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(s.now.Truncate(time.Microsecond), snap.StartedAt)

	events := mustRead(s)
	s.Require().Len(events, 1)
	s.True(events[0].OccurredAt.Equal(snap.StartedAt))

	fresh, err := models.Fold(events)
	s.Require().NoError(err)
	s.Equal(fresh, snap)
}
