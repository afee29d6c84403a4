package memory

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"tavola/internal/eventstore"
)

// Store is an in-process event log. Appends are serialized by one mutex, so
// positions follow commit order.
type Store struct {
	mu      sync.RWMutex
	streams map[string][]eventstore.Event
	log     []eventstore.Event
	changed chan struct{}
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time used for events appended without OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		streams: make(map[string][]eventstore.Event),
		changed: make(chan struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Append(_ context.Context, streamID string, expectedVersion int, events []eventstore.NewEvent) (int, error) {
	if err := eventstore.ValidateAppend(streamID, expectedVersion, events); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := len(s.streams[streamID])
	if current != expectedVersion {
		return 0, &eventstore.ConflictError{StreamID: streamID, Expected: expectedVersion, Actual: current}
	}

	stream := s.streams[streamID]
	for i, ne := range events {
		occurred := ne.OccurredAt
		if occurred.IsZero() {
			occurred = s.now()
		}
		ev := eventstore.Event{
			StreamID:   streamID,
			Sequence:   expectedVersion + i + 1,
			Position:   int64(len(s.log)) + 1,
			Type:       ne.Type,
			Payload:    append(json.RawMessage(nil), ne.Payload...),
			OccurredAt: occurred.UTC(),
			Metadata:   maps.Clone(ne.Metadata),
		}
		stream = append(stream, ev)
		s.log = append(s.log, ev)
	}
	s.streams[streamID] = stream

	close(s.changed)
	s.changed = make(chan struct{})
	return len(stream), nil
}

func (s *Store) ReadStream(_ context.Context, streamID string, fromVersion int) ([]eventstore.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream := s.streams[streamID]
	if fromVersion < 0 {
		fromVersion = 0
	}
	if fromVersion >= len(stream) {
		return nil, nil
	}
	return append([]eventstore.Event(nil), stream[fromVersion:]...), nil
}

func (s *Store) ReadAll(_ context.Context, after int64, limit int) ([]eventstore.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if after < 0 {
		after = 0
	}
	if after >= int64(len(s.log)) {
		return nil, nil
	}
	end := int64(len(s.log))
	if limit > 0 && after+int64(limit) < end {
		end = after + int64(limit)
	}
	return append([]eventstore.Event(nil), s.log[after:end]...), nil
}

func (s *Store) Head(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.log)), nil
}

func (s *Store) Wait(ctx context.Context, after int64) error {
	for {
		s.mu.RLock()
		head := int64(len(s.log))
		changed := s.changed
		s.mu.RUnlock()
		if head > after {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
var _ eventstore.Store = (*Store)(nil)
