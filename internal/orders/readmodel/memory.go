package readmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	id "tavola/pkg/domain"
)

// MemoryTable keeps rows in a map. Rows are stored as JSON so callers never
// share slices with the table.
type MemoryTable[T Row] struct {
	mu   sync.RWMutex
	rows map[id.OrderID][]byte
}

func NewMemoryTable[T Row]() *MemoryTable[T] {
	return &MemoryTable[T]{rows: make(map[id.OrderID][]byte)}
}

func (t *MemoryTable[T]) Get(_ context.Context, orderID id.OrderID) (T, bool, error) {
	var row T
	t.mu.RLock()
	raw, ok := t.rows[orderID]
	t.mu.RUnlock()
	if !ok {
		return row, false, nil
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return row, false, fmt.Errorf("decode row %s: %w", orderID, err)
	}
	return row, true, nil
}

func (t *MemoryTable[T]) Put(_ context.Context, orderID id.OrderID, row T) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row %s: %w", orderID, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[orderID] = raw
	return nil
}

func (t *MemoryTable[T]) Reset(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make(map[id.OrderID][]byte)
	return nil
}

func (t *MemoryTable[T]) all() ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.rows))
	for orderID, raw := range t.rows {
		var row T
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode row %s: %w", orderID, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// MemorySummaries is the in-memory SummaryStore.
type MemorySummaries struct {
	*MemoryTable[Summary]
}

func NewMemorySummaries() *MemorySummaries {
	return &MemorySummaries{MemoryTable: NewMemoryTable[Summary]()}
}

func (s *MemorySummaries) List(_ context.Context, f SummaryFilter) ([]Summary, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	rows, err := s.all()
	if err != nil {
		return nil, 0, err
	}
	matched := slices.DeleteFunc(rows, func(r Summary) bool { return !f.Matches(r) })
	slices.SortFunc(matched, func(a, b Summary) int {
		switch {
		case f.Less(a, b):
			return -1
		case f.Less(b, a):
			return 1
		}
		return 0
	})
	total := len(matched)
	if f.Offset >= total {
		return []Summary{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

// NewMemoryModels builds all six read models in memory.
func NewMemoryModels() Models {
	return Models{
		Summaries:     NewMemorySummaries(),
		LineItems:     NewMemoryTable[LineItems](),
		StatusHistory: NewMemoryTable[StatusHistory](),
		Sessions:      NewMemoryTable[Session](),
		Promotions:    NewMemoryTable[Promotions](),
		Analytics:     NewMemoryTable[Analytics](),
	}
}
