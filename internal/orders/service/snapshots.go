package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tavola/internal/orders/models"
)

// MemorySnapshots keeps snapshots in process.
type MemorySnapshots struct {
	mu    sync.RWMutex
	byKey map[string]*models.Order
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{byKey: make(map[string]*models.Order)}
}

func (m *MemorySnapshots) Load(_ context.Context, streamID string) (*models.Order, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.byKey[streamID]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (m *MemorySnapshots) Save(_ context.Context, streamID string, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.byKey[streamID]; ok && cur.Version >= order.Version {
		return nil
	}
	m.byKey[streamID] = order.Clone()
	return nil
}

const snapshotKeyPrefix = "tavola:snapshot:"

// RedisSnapshots stores snapshots as JSON strings with a TTL, so cold
// orders fall out of the cache on their own.
type RedisSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	return &RedisSnapshots{client: client, ttl: ttl}
}

func (r *RedisSnapshots) Load(ctx context.Context, streamID string) (*models.Order, bool, error) {
	raw, err := r.client.Get(ctx, snapshotKeyPrefix+streamID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot: %w", err)
	}
	var o models.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return &o, true, nil
}

func (r *RedisSnapshots) Save(ctx context.Context, streamID string, order *models.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKeyPrefix+streamID, raw, r.ttl).Err()
}
