// Package relay forwards the event feed to a Kafka topic for collaborators
// outside the process, such as analytics pipelines.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"tavola/internal/eventstore"
	"tavola/internal/orders/metrics"
	"tavola/internal/platform/dispatch"
	"tavola/internal/platform/kafka"
)

// Name is the relay's subscriber name.
const Name = "kafka_relay"

type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay publishes each event envelope keyed by stream id, so per-stream
// order survives partitioning. Delivery is at least once; consumers
// deduplicate on stream_id and sequence.
type Relay struct {
	publisher Publisher
	topic     string
	metrics   *metrics.Metrics
}

func New(publisher Publisher, topic string, m *metrics.Metrics) *Relay {
	return &Relay{publisher: publisher, topic: topic, metrics: m}
}

func (r *Relay) Name() string {
	return Name
}

func (r *Relay) Handle(ctx context.Context, ev eventstore.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return dispatch.Skip(fmt.Errorf("encode event %s/%d: %w", ev.StreamID, ev.Sequence, err))
	}
	err = r.publisher.Publish(ctx, kafka.Message{
		Topic: r.topic,
		Key:   []byte(ev.StreamID),
		Value: value,
		Headers: map[string]string{
			"event-type": ev.Type,
			"sequence":   strconv.Itoa(ev.Sequence),
			"position":   strconv.FormatInt(ev.Position, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("relay %s/%d: %w", ev.StreamID, ev.Sequence, err)
	}
	r.metrics.AddRelayedEvents(1)
	return nil
}
