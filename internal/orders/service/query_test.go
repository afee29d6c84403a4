package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tavola/internal/eventstore/memory"
	"tavola/internal/orders/models"
	"tavola/internal/orders/projection"
	"tavola/internal/orders/readmodel"
	"tavola/internal/platform/dispatch"
	id "tavola/pkg/domain"
	dErrors "tavola/pkg/domain-errors"
)

const business id.BusinessID = 42

type QueryServiceSuite struct {
	suite.Suite
	ctx      context.Context
	commands *CommandService
	queries  *QueryService
	runner   *dispatch.Runner
	project  []projection.Resettable
	clock    time.Time
}

func TestQueryServiceSuite(t *testing.T) {
	suite.Run(t, new(QueryServiceSuite))
}

func (s *QueryServiceSuite) SetupTest() {
	s.ctx = context.Background()
	store := memory.New()
	m := readmodel.NewMemoryModels()
	s.clock = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	s.commands = NewCommandService(store, WithClock(func() time.Time {
		s.clock = s.clock.Add(time.Minute)
		return s.clock
	}))
	s.queries = NewQueryService(m)
	s.runner = dispatch.New(store, dispatch.NewMemoryCheckpoints())
	s.project = projection.All(m)
}

func (s *QueryServiceSuite) sync() {
	for _, p := range s.project {
		s.Require().NoError(s.runner.CatchUp(s.ctx, p))
	}
}

func (s *QueryServiceSuite) must(cmd models.Command) {
	_, err := s.commands.Handle(s.ctx, cmd)
	s.Require().NoError(err)
}

// placeOrder starts an order at location with one item and optionally confirms it.
func (s *QueryServiceSuite) placeOrder(location id.LocationID, confirm bool) id.OrderID {
	orderID := id.OrderID(uuid.New())
	t := models.Target{OrderID: orderID, BusinessID: business}
	s.must(models.StartOrder{Target: t, CustomerID: 1, LocationID: location, OrderType: id.OrderTypeDineIn})
	s.must(models.AddItem{Target: t, Item: models.LineItem{ItemID: 5, Name: "risotto", Quantity: 1, UnitPriceCents: 1800}})
	if confirm {
		s.must(models.ConfirmOrder{Target: t})
	}
	return orderID
}

func (s *QueryServiceSuite) TestGetOrder() {
	orderID := s.placeOrder(1, false)
	s.sync()

	view, err := s.queries.GetOrder(s.ctx, business, orderID)
	s.Require().NoError(err)
	s.Equal(orderID, view.OrderID)
	s.Equal(models.StatusStarted, view.Status)
	s.Require().Len(view.Items, 1)
	s.Equal("risotto", view.Items[0].Name)

	s.Run("other business is not found", func() {
		_, err := s.queries.GetOrder(s.ctx, business+1, orderID)
		s.True(models.IsKind(err, models.KindOrderNotFound))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown order is not found", func() {
		_, err := s.queries.GetOrder(s.ctx, business, id.OrderID(uuid.New()))
		s.True(models.IsKind(err, models.KindOrderNotFound))
	})
}

func (s *QueryServiceSuite) TestGetOrdersByStatus() {
	first := s.placeOrder(1, false)
	s.placeOrder(1, true)
	third := s.placeOrder(2, false)
	s.sync()

	page, err := s.queries.GetOrdersByStatus(s.ctx, business, []models.Status{models.StatusStarted}, nil, Page{})
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Require().Len(page.Orders, 2)
	s.Equal(third, page.Orders[0].OrderID)
	s.Equal(first, page.Orders[1].OrderID)

	loc := id.LocationID(1)
	page, err = s.queries.GetOrdersByStatus(s.ctx, business, nil, &loc, Page{Number: 2, Size: 1})
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Require().Len(page.Orders, 1)
	s.Equal(first, page.Orders[0].OrderID)

	_, err = s.queries.GetOrdersByStatus(s.ctx, business, []models.Status{"lost"}, nil, Page{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *QueryServiceSuite) TestGetOrdersByStatusHugePage() {
	s.placeOrder(1, false)
	s.sync()

	page, err := s.queries.GetOrdersByStatus(s.ctx, business, nil, nil, Page{Number: math.MaxInt / 20, Size: 20})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Empty(page.Orders)
	s.Equal(maxPageNumber, page.Page)
}

func (s *QueryServiceSuite) TestKitchenQueueFollowsLifecycle() {
	early := s.placeOrder(7, true)
	late := s.placeOrder(7, true)
	s.placeOrder(7, false)
	s.placeOrder(8, true)
	s.sync()

	queue, err := s.queries.GetKitchenOrders(s.ctx, business, 7, nil)
	s.Require().NoError(err)
	s.Require().Len(queue, 2)
	s.Equal(early, queue[0].OrderID)
	s.Equal(late, queue[1].OrderID)

	s.must(models.CancelOrder{Target: models.Target{OrderID: early, BusinessID: business}, Reason: "kitchen closed"})
	s.sync()

	queue, err = s.queries.GetKitchenOrders(s.ctx, business, 7, nil)
	s.Require().NoError(err)
	s.Require().Len(queue, 1)
	s.Equal(late, queue[0].OrderID)

	view, err := s.queries.GetOrder(s.ctx, business, early)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, view.Status)
	s.Equal("kitchen closed", view.CancelReason)
}

func (s *QueryServiceSuite) TestGetOrderInsights() {
	orderID := s.placeOrder(1, true)
	s.sync()

	insights, err := s.queries.GetOrderInsights(s.ctx, business, orderID)
	s.Require().NoError(err)
	s.Require().Len(insights.History, 2)
	s.Equal(models.StatusConfirmed, insights.History[1].To)
	s.Require().NotNil(insights.Session)
	s.Require().NotNil(insights.Analytics)
	s.Equal(1, insights.Analytics.ItemsAdded)
	s.Require().NotNil(insights.Promotions)
	s.Empty(insights.Promotions.Applied)
}

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		in   Page
		want Page
	}{
		{Page{}, Page{Number: 1, Size: defaultPageSize}},
		{Page{Number: 3, Size: 500}, Page{Number: 3, Size: maxPageSize}},
		{Page{Number: -1, Size: 5}, Page{Number: 1, Size: 5}},
		{Page{Number: math.MaxInt, Size: maxPageSize}, Page{Number: maxPageNumber, Size: maxPageSize}},
	}
	for _, tc := range cases {
		if got := tc.in.normalize(); got != tc.want {
			t.Errorf("normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
