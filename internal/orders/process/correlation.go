package process

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/redis/go-redis/v9"

	id "tavola/pkg/domain"
)

// StepID names a reactive step. Together with the order id it forms the
// idempotency key handed to side effects.
type StepID string

const (
	StepNotifyKitchen    StepID = "notify_kitchen"
	StepStartPreparation StepID = "start_preparation"
	StepRecallKitchen    StepID = "recall_kitchen"
)

// IdempotencyKey is the downstream deduplication key for a step.
func IdempotencyKey(orderID id.OrderID, step StepID) string {
	return orderID.String() + ":" + string(step)
}

// Correlation is the per-order record of which steps ran.
type Correlation struct {
	OrderID id.OrderID        `json:"order_id"`
	Fired   map[StepID]bool   `json:"fired"`
	Failed  map[StepID]string `json:"failed,omitempty"`
}

func (c Correlation) HasFired(step StepID) bool { return c.Fired[step] }

func (c Correlation) HasFailed(step StepID) bool {
	_, ok := c.Failed[step]
	return ok
}

// CorrelationStore persists correlation records. Marks are idempotent.
type CorrelationStore interface {
	Get(ctx context.Context, orderID id.OrderID) (Correlation, error)
	MarkFired(ctx context.Context, orderID id.OrderID, step StepID) error
	MarkFailed(ctx context.Context, orderID id.OrderID, step StepID, reason string) error
}

// MemoryCorrelations keeps correlation records in process.
type MemoryCorrelations struct {
	mu      sync.RWMutex
	records map[id.OrderID]*Correlation
}

func NewMemoryCorrelations() *MemoryCorrelations {
	return &MemoryCorrelations{records: make(map[id.OrderID]*Correlation)}
}

func (m *MemoryCorrelations) Get(_ context.Context, orderID id.OrderID) (Correlation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Correlation{OrderID: orderID, Fired: map[StepID]bool{}, Failed: map[StepID]string{}}
	if rec, ok := m.records[orderID]; ok {
		maps.Copy(out.Fired, rec.Fired)
		maps.Copy(out.Failed, rec.Failed)
	}
	return out, nil
}

func (m *MemoryCorrelations) MarkFired(_ context.Context, orderID id.OrderID, step StepID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(orderID).Fired[step] = true
	return nil
}

func (m *MemoryCorrelations) MarkFailed(_ context.Context, orderID id.OrderID, step StepID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(orderID).Failed[step] = reason
	return nil
}

func (m *MemoryCorrelations) record(orderID id.OrderID) *Correlation {
	rec, ok := m.records[orderID]
	if !ok {
		rec = &Correlation{OrderID: orderID, Fired: map[StepID]bool{}, Failed: map[StepID]string{}}
		m.records[orderID] = rec
	}
	return rec
}

const correlationKeyPrefix = "tavola:pm:"

// RedisCorrelations stores fired steps in a set and failures in a hash,
// so concurrent marks never overwrite each other.
type RedisCorrelations struct {
	client *redis.Client
}

func NewRedisCorrelations(client *redis.Client) *RedisCorrelations {
	return &RedisCorrelations{client: client}
}

func firedKey(orderID id.OrderID) string  { return correlationKeyPrefix + orderID.String() + ":fired" }
func failedKey(orderID id.OrderID) string { return correlationKeyPrefix + orderID.String() + ":failed" }

func (r *RedisCorrelations) Get(ctx context.Context, orderID id.OrderID) (Correlation, error) {
	pipe := r.client.Pipeline()
	fired := pipe.SMembers(ctx, firedKey(orderID))
	failed := pipe.HGetAll(ctx, failedKey(orderID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Correlation{}, fmt.Errorf("load correlation: %w", err)
	}

	out := Correlation{OrderID: orderID, Fired: map[StepID]bool{}, Failed: map[StepID]string{}}
	for _, step := range fired.Val() {
		out.Fired[StepID(step)] = true
	}
	for step, reason := range failed.Val() {
		out.Failed[StepID(step)] = reason
	}
	return out, nil
}

func (r *RedisCorrelations) MarkFired(ctx context.Context, orderID id.OrderID, step StepID) error {
	return r.client.SAdd(ctx, firedKey(orderID), string(step)).Err()
}

func (r *RedisCorrelations) MarkFailed(ctx context.Context, orderID id.OrderID, step StepID, reason string) error {
	return r.client.HSet(ctx, failedKey(orderID), string(step), reason).Err()
}
