package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// MemoryCheckpoints keeps positions in process.
type MemoryCheckpoints struct {
	mu        sync.RWMutex
	positions map[string]int64
}

func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{positions: make(map[string]int64)}
}

func (c *MemoryCheckpoints) Load(_ context.Context, name string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.positions[name], nil
}

// Save never moves a checkpoint backwards.
func (c *MemoryCheckpoints) Save(_ context.Context, name string, position int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if position > c.positions[name] {
		c.positions[name] = position
	}
	return nil
}

// Reset rewinds a subscriber to the start of the log.
func (c *MemoryCheckpoints) Reset(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.positions, name)
	return nil
}

// PostgresCheckpoints stores positions in subscriber_checkpoints.
type PostgresCheckpoints struct {
	db *sql.DB
}

func NewPostgresCheckpoints(db *sql.DB) *PostgresCheckpoints {
	return &PostgresCheckpoints{db: db}
}

func (c *PostgresCheckpoints) Load(ctx context.Context, name string) (int64, error) {
	var pos int64
	err := c.db.QueryRowContext(ctx, `SELECT position FROM subscriber_checkpoints WHERE name = $1`, name).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load checkpoint %s: %w", name, err)
	}
	return pos, nil
}

// Save never moves a checkpoint backwards.
func (c *PostgresCheckpoints) Save(ctx context.Context, name string, position int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO subscriber_checkpoints (name, position, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET position = GREATEST(subscriber_checkpoints.position, EXCLUDED.position),
			updated_at = now()
	`, name, position)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", name, err)
	}
	return nil
}

// Reset rewinds a subscriber to the start of the log.
func (c *PostgresCheckpoints) Reset(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM subscriber_checkpoints WHERE name = $1`, name); err != nil {
		return fmt.Errorf("reset checkpoint %s: %w", name, err)
	}
	return nil
}
