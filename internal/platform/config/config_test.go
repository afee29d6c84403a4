package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"TAVOLA_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "COMMAND_MAX_RETRIES", "KITCHEN_AUTO_ACCEPT"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "orders.events", cfg.Kafka.EventsTopic)
	assert.Equal(t, 3, cfg.Commands.MaxRetries)
	assert.False(t, cfg.Process.AutoAccept)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("COMMAND_MAX_RETRIES", "7")
	t.Setenv("PM_INITIAL_BACKOFF", "1s")
	t.Setenv("KITCHEN_AUTO_ACCEPT", "true")

	cfg := FromEnv()

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 7, cfg.Commands.MaxRetries)
	assert.Equal(t, time.Second, cfg.Process.InitialBackoff)
	assert.True(t, cfg.Process.AutoAccept)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("COMMAND_MAX_RETRIES", "-2")
	t.Setenv("FEED_POLL_INTERVAL", "soon")

	cfg := FromEnv()

	assert.Equal(t, 3, cfg.Commands.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Feed.PollInterval)
}
