package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tavola/internal/orders/models"
	"tavola/internal/platform/kafka"
	id "tavola/pkg/domain"
	"tavola/pkg/platform/circuit"
)

// Ticket is what the kitchen receives for an order.
type Ticket struct {
	IdempotencyKey string            `json:"idempotency_key"`
	Action         string            `json:"action"`
	OrderID        id.OrderID        `json:"order_id"`
	BusinessID     id.BusinessID     `json:"business_id"`
	LocationID     id.LocationID     `json:"location_id"`
	OrderType      id.OrderType      `json:"order_type"`
	Items          []models.LineItem `json:"items,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	IssuedAt       time.Time         `json:"issued_at"`
}

const (
	ActionPrepare = "prepare"
	ActionRecall  = "recall"
)

// KitchenNotifier delivers tickets to the kitchen. Implementations must
// tolerate duplicates carrying the same IdempotencyKey.
type KitchenNotifier interface {
	Notify(ctx context.Context, t Ticket) error
}

// LogNotifier writes tickets to the log. It stands in for a kitchen
// display when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, t Ticket) error {
	n.logger.InfoContext(ctx, "kitchen ticket",
		"action", t.Action,
		"order_id", t.OrderID,
		"location_id", t.LocationID,
		"items", len(t.Items),
		"idempotency_key", t.IdempotencyKey,
	)
	return nil
}

// Publisher is the broker side of KafkaNotifier.
type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// ErrKitchenUnavailable is returned while the breaker is open.
var ErrKitchenUnavailable = errors.New("kitchen channel unavailable")

// KafkaNotifier publishes tickets keyed by order id, so one order's
// tickets stay ordered on one partition. A breaker stops hammering the
// broker once it keeps failing.
type KafkaNotifier struct {
	publisher Publisher
	topic     string
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

func NewKafkaNotifier(publisher Publisher, topic string, breaker *circuit.Breaker, logger *slog.Logger) *KafkaNotifier {
	if breaker == nil {
		breaker = circuit.New("kitchen")
	}
	return &KafkaNotifier{publisher: publisher, topic: topic, breaker: breaker, logger: logger}
}

func (n *KafkaNotifier) Notify(ctx context.Context, t Ticket) error {
	if !n.breaker.Allow() {
		return ErrKitchenUnavailable
	}
	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	err = n.publisher.Publish(ctx, kafka.Message{
		Topic: n.topic,
		Key:   []byte(t.OrderID.String()),
		Value: value,
		Headers: map[string]string{
			"idempotency-key": t.IdempotencyKey,
			"action":          t.Action,
		},
	})
	if err != nil {
		if _, change := n.breaker.RecordFailure(); change.Opened {
			n.logger.WarnContext(ctx, "kitchen circuit opened", "breaker", n.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := n.breaker.RecordSuccess(); change.Closed {
		n.logger.InfoContext(ctx, "kitchen circuit closed", "breaker", n.breaker.Name())
	}
	return nil
}
