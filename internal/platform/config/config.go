package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration. Empty connection URLs select
// the in-memory implementation of the corresponding component.
type Server struct {
	Addr        string
	LogLevel    string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Commands    CommandConfig
	Process     ProcessConfig
	Feed        FeedConfig
}

// RedisConfig holds connection settings for the correlation and snapshot stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker settings for the event relay and kitchen notifier.
type KafkaConfig struct {
	Brokers      []string
	EventsTopic  string
	KitchenTopic string
	Partitions   int32
}

// Enabled reports whether any broker was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// CommandConfig tunes the command handler.
type CommandConfig struct {
	MaxRetries    int
	SnapshotEvery int
}

// ProcessConfig tunes the order fulfilment process manager.
type ProcessConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	AutoAccept     bool
}

// FeedConfig tunes subscriber delivery.
type FeedConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("TAVOLA_ADDR", ":8080"),
		LogLevel:    envString("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      envList("KAFKA_BROKERS"),
			EventsTopic:  envString("KAFKA_EVENTS_TOPIC", "orders.events"),
			KitchenTopic: envString("KAFKA_KITCHEN_TOPIC", "kitchen.tickets"),
			Partitions:   int32(envInt("KAFKA_PARTITIONS", 3)),
		},
		Commands: CommandConfig{
			MaxRetries:    envInt("COMMAND_MAX_RETRIES", 3),
			SnapshotEvery: envInt("SNAPSHOT_EVERY", 50),
		},
		Process: ProcessConfig{
			MaxAttempts:    envInt("PM_MAX_ATTEMPTS", 5),
			InitialBackoff: envDuration("PM_INITIAL_BACKOFF", 200*time.Millisecond),
			AutoAccept:     envBool("KITCHEN_AUTO_ACCEPT", false),
		},
		Feed: FeedConfig{
			PollInterval: envDuration("FEED_POLL_INTERVAL", 500*time.Millisecond),
			BatchSize:    envInt("FEED_BATCH_SIZE", 256),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
