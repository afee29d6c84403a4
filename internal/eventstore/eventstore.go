// Package eventstore defines the append-only order event log: the envelope
// persisted for every event, the store contracts and a resumable
// subscription over the global feed.
//
// Two positions exist for every event. Sequence is gap-free within a stream
// and is the only optimistic concurrency token. Position is gap-free across
// the whole log and follows commit order, so a subscriber that resumes after
// position N never misses an event committed later with a smaller position.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tavola/pkg/platform/sentinel"
)

// Event is the immutable envelope stored and transmitted for every fact.
type Event struct {
	StreamID   string            `json:"stream_id"`
	Sequence   int               `json:"sequence"`
	Position   int64             `json:"position"`
	Type       string            `json:"type"`
	Payload    json.RawMessage   `json:"payload"`
	OccurredAt time.Time         `json:"occurred_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewEvent is an event about to be appended. The store assigns Sequence and
// Position.
type NewEvent struct {
	Type       string
	Payload    json.RawMessage
	OccurredAt time.Time
	Metadata   map[string]string
}

// Feed is the read-only view of the global log handed to subscribers.
// It deliberately carries no append method.
type Feed interface {
	// ReadAll returns up to limit events with Position > after, in order.
	ReadAll(ctx context.Context, after int64, limit int) ([]Event, error)
	// Head returns the position of the last committed event.
	Head(ctx context.Context) (int64, error)
	// Wait blocks until an event past after is committed or ctx ends.
	Wait(ctx context.Context, after int64) error
}

// Store is the full event log. Only the command side holds one.
type Store interface {
	Feed
	// Append atomically adds events to a stream whose last sequence must be
	// expectedVersion (0 for a new stream). It returns the new version.
	Append(ctx context.Context, streamID string, expectedVersion int, events []NewEvent) (int, error)
	// ReadStream returns the stream's events with Sequence > fromVersion.
	ReadStream(ctx context.Context, streamID string, fromVersion int) ([]Event, error)
}

// ConflictError reports an expected version mismatch.
type ConflictError struct {
	StreamID string
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stream %s: expected version %d, found %d", e.StreamID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return sentinel.ErrConflict
}

// ValidateAppend checks arguments shared by every Store implementation.
func ValidateAppend(streamID string, expectedVersion int, events []NewEvent) error {
	if streamID == "" {
		return fmt.Errorf("stream id is required: %w", sentinel.ErrInvalidState)
	}
	if expectedVersion < 0 {
		return fmt.Errorf("expected version %d is negative: %w", expectedVersion, sentinel.ErrInvalidState)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events to append: %w", sentinel.ErrInvalidState)
	}
	for i, e := range events {
		if e.Type == "" {
			return fmt.Errorf("event %d has no type: %w", i, sentinel.ErrInvalidState)
		}
		if len(e.Payload) > 0 && !json.Valid(e.Payload) {
			return fmt.Errorf("event %d payload is not valid JSON: %w", i, sentinel.ErrInvalidState)
		}
	}
	return nil
}
