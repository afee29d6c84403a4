//go:build integration

package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"tavola/internal/platform/kafka"
	"tavola/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	broker   *containers.RedpandaContainer
	producer *kafka.Producer
}

func TestProducerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := kafka.NewProducer(context.Background(), s.broker.Brokers, logger)
	s.Require().NoError(err)
	s.producer = p
}

func (s *ProducerSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *ProducerSuite) TestEnsureTopicsIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.producer.EnsureTopics(ctx, 3, "ensure.once"))
	s.Require().NoError(s.producer.EnsureTopics(ctx, 3, "ensure.once"))
}

func (s *ProducerSuite) TestPublishIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	const topic = "publish.roundtrip"
	s.Require().NoError(s.producer.EnsureTopics(ctx, 1, topic))

	s.Require().NoError(s.producer.Publish(ctx,
		kafka.Message{Topic: topic, Key: []byte("order-1"), Value: []byte(`{"n":1}`), Headers: map[string]string{"event-type": "OrderStarted"}},
		kafka.Message{Topic: topic, Key: []byte("order-1"), Value: []byte(`{"n":2}`)},
	))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []*kgo.Record
	for len(got) < 2 {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) { got = append(got, r) })
	}
	s.Equal(`{"n":1}`, string(got[0].Value))
	s.Equal(`{"n":2}`, string(got[1].Value))
	s.Require().Len(got[0].Headers, 1)
	s.Equal("event-type", got[0].Headers[0].Key)
}
