package process_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tavola/internal/orders/process"
	"tavola/internal/orders/process/mocks"
	"tavola/internal/platform/kafka"
	id "tavola/pkg/domain"
	"tavola/pkg/platform/circuit"
)

func TestKafkaNotifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orderID := id.OrderID(uuid.New())
	ticket := process.Ticket{
		IdempotencyKey: process.IdempotencyKey(orderID, process.StepNotifyKitchen),
		Action:         process.ActionPrepare,
		OrderID:        orderID,
		LocationID:     4,
	}

	t.Run("publishes keyed by order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		pub := mocks.NewMockPublisher(ctrl)
		n := process.NewKafkaNotifier(pub, "kitchen.tickets", nil, logger)

		pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
			require.Len(t, msgs, 1)
			assert.Equal(t, "kitchen.tickets", msgs[0].Topic)
			assert.Equal(t, orderID.String(), string(msgs[0].Key))
			assert.Equal(t, ticket.IdempotencyKey, msgs[0].Headers["idempotency-key"])
			var got process.Ticket
			require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
			assert.Equal(t, ticket.OrderID, got.OrderID)
			return nil
		})
		require.NoError(t, n.Notify(context.Background(), ticket))
	})

	t.Run("open breaker short-circuits", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		pub := mocks.NewMockPublisher(ctrl)
		breaker := circuit.New("kitchen", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
		n := process.NewKafkaNotifier(pub, "kitchen.tickets", breaker, logger)

		pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("no leader")).Times(2)
		assert.Error(t, n.Notify(context.Background(), ticket))
		assert.Error(t, n.Notify(context.Background(), ticket))
		assert.True(t, breaker.IsOpen())

		assert.ErrorIs(t, n.Notify(context.Background(), ticket), process.ErrKitchenUnavailable)
	})
}

func TestIdempotencyKey(t *testing.T) {
	orderID := id.OrderID(uuid.MustParse("6f1c1c0e-8a7e-4c55-9a3a-2f8c6d1b0e11"))
	assert.Equal(t, "6f1c1c0e-8a7e-4c55-9a3a-2f8c6d1b0e11:recall_kitchen", process.IdempotencyKey(orderID, process.StepRecallKitchen))
}
