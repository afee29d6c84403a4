package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tavola/internal/orders/readmodel"
	id "tavola/pkg/domain"
	txcontext "tavola/pkg/platform/tx"
)

// JSONTable stores one read model as a JSONB document per order.
type JSONTable[T readmodel.Row] struct {
	db     *sql.DB
	table  string
	column string
}

// NewJSONTable binds a table created by the read model migration. table and
// column are trusted identifiers, never user input.
func NewJSONTable[T readmodel.Row](db *sql.DB, table, column string) *JSONTable[T] {
	return &JSONTable[T]{db: db, table: table, column: column}
}

func (t *JSONTable[T]) Get(ctx context.Context, orderID id.OrderID) (T, bool, error) {
	var (
		row T
		raw []byte
	)
	err := txcontext.Exec(ctx, t.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE order_id = $1`, t.column, t.table),
		uuid.UUID(orderID),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return row, false, nil
	}
	if err != nil {
		return row, false, fmt.Errorf("get %s %s: %w", t.table, orderID, err)
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return row, false, fmt.Errorf("decode %s %s: %w", t.table, orderID, err)
	}
	return row, true, nil
}

func (t *JSONTable[T]) Put(ctx context.Context, orderID id.OrderID, row T) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", t.table, orderID, err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (order_id, %[2]s, version)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO UPDATE
		SET %[2]s = EXCLUDED.%[2]s, version = EXCLUDED.version
		WHERE %[1]s.version < EXCLUDED.version
	`, t.table, t.column)
	if _, err := txcontext.Exec(ctx, t.db).ExecContext(ctx, query, uuid.UUID(orderID), string(raw), row.StreamVersion()); err != nil {
		return fmt.Errorf("put %s %s: %w", t.table, orderID, err)
	}
	return nil
}

func (t *JSONTable[T]) Reset(ctx context.Context) error {
	if _, err := txcontext.Exec(ctx, t.db).ExecContext(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, t.table)); err != nil {
		return fmt.Errorf("reset %s: %w", t.table, err)
	}
	return nil
}

// NewModels binds the six read models to their Postgres tables.
func NewModels(db *sql.DB) readmodel.Models {
	return readmodel.Models{
		Summaries:     NewSummaries(db),
		LineItems:     NewJSONTable[readmodel.LineItems](db, "order_line_items", "items"),
		StatusHistory: NewJSONTable[readmodel.StatusHistory](db, "order_status_history", "transitions"),
		Sessions:      NewJSONTable[readmodel.Session](db, "order_sessions", "session"),
		Promotions:    NewJSONTable[readmodel.Promotions](db, "order_promotions", "promotions"),
		Analytics:     NewJSONTable[readmodel.Analytics](db, "order_analytics", "analytics"),
	}
}
