package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavola/internal/platform/config"
)

func TestOptions(t *testing.T) {
	t.Run("overlays pool settings", func(t *testing.T) {
		opts, err := options(config.RedisConfig{
			URL:         "redis://localhost:6379/2",
			PoolSize:    8,
			DialTimeout: 3 * time.Second,
			ReadTimeout: time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 8, opts.PoolSize)
		assert.Equal(t, 3*time.Second, opts.DialTimeout)
		assert.Equal(t, time.Second, opts.ReadTimeout)
	})

	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := options(config.RedisConfig{URL: "http://not-redis"})
		assert.Error(t, err)
	})
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
}
