package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/lib/pq"

	"tavola/internal/eventstore"
	"tavola/internal/platform/postgres"
	txcontext "tavola/pkg/platform/tx"
)

// NotifyChannel is the LISTEN/NOTIFY channel signalled by every append.
const NotifyChannel = "order_events"

const defaultPollInterval = 500 * time.Millisecond

// Store persists the event log in Postgres.
//
// Every append locks the single event_log_head row before checking the
// stream version, so appends commit one at a time and global positions are
// handed out in commit order without gaps.
type Store struct {
	db           *sql.DB
	logger       *slog.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	changed chan struct{}
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPollInterval bounds how long Wait sleeps when no notification arrives.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:           db,
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
		changed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Append(ctx context.Context, streamID string, expectedVersion int, events []eventstore.NewEvent) (int, error) {
	if err := eventstore.ValidateAppend(streamID, expectedVersion, events); err != nil {
		return 0, err
	}

	var newVersion int
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)

		var head int64
		if err := exec.QueryRowContext(ctx,
			`UPDATE event_log_head SET position = position + $1 WHERE id = 1 RETURNING position`,
			len(events),
		).Scan(&head); err != nil {
			return fmt.Errorf("reserve positions: %w", err)
		}

		var current int
		if err := exec.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sequence), 0) FROM events WHERE stream_id = $1`,
			streamID,
		).Scan(&current); err != nil {
			return fmt.Errorf("read stream version: %w", err)
		}
		if current != expectedVersion {
			return &eventstore.ConflictError{StreamID: streamID, Expected: expectedVersion, Actual: current}
		}

		first := head - int64(len(events)) + 1
		for i, ne := range events {
			occurred := ne.OccurredAt
			if occurred.IsZero() {
				occurred = time.Now()
			}
			payload := ne.Payload
			if len(payload) == 0 {
				payload = json.RawMessage(`{}`)
			}
			metadata, err := json.Marshal(nonNil(ne.Metadata))
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO events (position, stream_id, sequence, type, payload, metadata, occurred_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				first+int64(i),
				streamID,
				expectedVersion+i+1,
				ne.Type,
				string(payload),
				string(metadata),
				occurred.UTC(),
			); err != nil {
				if postgres.HasCode(err, postgres.UniqueViolation) {
					return &eventstore.ConflictError{StreamID: streamID, Expected: expectedVersion, Actual: expectedVersion + i + 1}
				}
				return fmt.Errorf("insert event: %w", err)
			}
		}

		if _, err := exec.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, strconv.FormatInt(head, 10)); err != nil {
			return fmt.Errorf("notify append: %w", err)
		}
		newVersion = expectedVersion + len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.broadcast()
	return newVersion, nil
}

func (s *Store) ReadStream(ctx context.Context, streamID string, fromVersion int) ([]eventstore.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, stream_id, sequence, type, payload, metadata, occurred_at
		FROM events
		WHERE stream_id = $1 AND sequence > $2
		ORDER BY sequence
	`, streamID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("read stream %s: %w", streamID, err)
	}
	return scanEvents(rows)
}

func (s *Store) ReadAll(ctx context.Context, after int64, limit int) ([]eventstore.Event, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, stream_id, sequence, type, payload, metadata, occurred_at
		FROM events
		WHERE position > $1
		ORDER BY position
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("read feed after %d: %w", after, err)
	}
	return scanEvents(rows)
}

func (s *Store) Head(ctx context.Context) (int64, error) {
	var head int64
	if err := s.db.QueryRowContext(ctx, `SELECT position FROM event_log_head WHERE id = 1`).Scan(&head); err != nil {
		return 0, fmt.Errorf("read feed head: %w", err)
	}
	return head, nil
}

// Wait returns once an event past after is visible. It wakes on local
// appends, on notifications delivered by Listen and otherwise every poll
// interval.
func (s *Store) Wait(ctx context.Context, after int64) error {
	for {
		s.mu.Lock()
		changed := s.changed
		s.mu.Unlock()

		head, err := s.Head(ctx)
		if err != nil {
			return err
		}
		if head > after {
			return nil
		}

		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-changed:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Listen relays Postgres notifications for appends made by other processes
// until ctx ends.
func (s *Store) Listen(ctx context.Context, connString string) error {
	listener := pq.NewListener(connString, 100*time.Millisecond, 10*time.Second,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				s.logger.Warn("event listener connection event", "event", int(ev), "error", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-listener.Notify:
			// nil notifications arrive after a reconnect; wake waiters either way.
			s.broadcast()
		case <-time.After(90 * time.Second):
			if err := listener.Ping(); err != nil {
				s.logger.Warn("event listener ping failed", "error", err)
			}
		}
	}
}

func (s *Store) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.changed)
	s.changed = make(chan struct{})
}

func scanEvents(rows *sql.Rows) ([]eventstore.Event, error) {
	defer rows.Close()
	var out []eventstore.Event
	for rows.Next() {
		var (
			ev       eventstore.Event
			payload  []byte
			metadata []byte
		)
		if err := rows.Scan(&ev.Position, &ev.StreamID, &ev.Sequence, &ev.Type, &payload, &metadata, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata at position %d: %w", ev.Position, err)
			}
			if len(ev.Metadata) == 0 {
				ev.Metadata = nil
			}
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

var _ eventstore.Store = (*Store)(nil)

