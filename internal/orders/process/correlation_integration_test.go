//go:build integration

package process_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tavola/internal/orders/process"
	id "tavola/pkg/domain"
	"tavola/pkg/testutil/containers"
)

type RedisCorrelationsSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *process.RedisCorrelations
}

func TestRedisCorrelationsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCorrelationsSuite))
}

func (s *RedisCorrelationsSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = process.NewRedisCorrelations(s.redis.Client.Client)
}

func (s *RedisCorrelationsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCorrelationsSuite) TestMarks() {
	ctx := context.Background()
	orderID := id.OrderID(uuid.New())

	corr, err := s.store.Get(ctx, orderID)
	s.Require().NoError(err)
	s.Empty(corr.Fired)
	s.Empty(corr.Failed)

	s.Require().NoError(s.store.MarkFired(ctx, orderID, process.StepNotifyKitchen))
	s.Require().NoError(s.store.MarkFired(ctx, orderID, process.StepNotifyKitchen))
	s.Require().NoError(s.store.MarkFailed(ctx, orderID, process.StepStartPreparation, "already_cancelled"))

	corr, err = s.store.Get(ctx, orderID)
	s.Require().NoError(err)
	s.True(corr.HasFired(process.StepNotifyKitchen))
	s.Len(corr.Fired, 1)
	s.Equal("already_cancelled", corr.Failed[process.StepStartPreparation])

	other, err := s.store.Get(ctx, id.OrderID(uuid.New()))
	s.Require().NoError(err)
	s.False(other.HasFired(process.StepNotifyKitchen))
}
