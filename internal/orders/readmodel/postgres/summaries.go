package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
	id "tavola/pkg/domain"
	txcontext "tavola/pkg/platform/tx"
)

const summaryColumns = `order_id, business_id, customer_id, location_id, order_type, status,
	item_count, subtotal_cents, started_at, confirmed_at, preparing_at, completed_at,
	cancelled_at, cancel_reason, cancelled_by, version`

// Summaries stores order summaries in typed columns so list queries can use
// the status and kitchen indexes.
type Summaries struct {
	db *sql.DB
}

func NewSummaries(db *sql.DB) *Summaries {
	return &Summaries{db: db}
}

func (s *Summaries) Get(ctx context.Context, orderID id.OrderID) (readmodel.Summary, bool, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM order_summaries WHERE order_id = $1`,
		uuid.UUID(orderID),
	)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return readmodel.Summary{}, false, nil
	}
	if err != nil {
		return readmodel.Summary{}, false, fmt.Errorf("get summary %s: %w", orderID, err)
	}
	return sum, true, nil
}

func (s *Summaries) Put(ctx context.Context, orderID id.OrderID, sum readmodel.Summary) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO order_summaries (`+summaryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			item_count = EXCLUDED.item_count,
			subtotal_cents = EXCLUDED.subtotal_cents,
			confirmed_at = EXCLUDED.confirmed_at,
			preparing_at = EXCLUDED.preparing_at,
			completed_at = EXCLUDED.completed_at,
			cancelled_at = EXCLUDED.cancelled_at,
			cancel_reason = EXCLUDED.cancel_reason,
			cancelled_by = EXCLUDED.cancelled_by,
			version = EXCLUDED.version
		WHERE order_summaries.version < EXCLUDED.version
	`,
		uuid.UUID(orderID),
		int64(sum.BusinessID),
		int64(sum.CustomerID),
		int64(sum.LocationID),
		string(sum.OrderType),
		string(sum.Status),
		sum.ItemCount,
		sum.SubtotalCents,
		sum.StartedAt,
		sum.ConfirmedAt,
		sum.PreparingAt,
		sum.CompletedAt,
		sum.CancelledAt,
		sum.CancelReason,
		sum.CancelledBy,
		sum.Version,
	)
	if err != nil {
		return fmt.Errorf("put summary %s: %w", orderID, err)
	}
	return nil
}

func (s *Summaries) Reset(ctx context.Context) error {
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `TRUNCATE TABLE order_summaries`); err != nil {
		return fmt.Errorf("reset summaries: %w", err)
	}
	return nil
}

func (s *Summaries) List(ctx context.Context, f readmodel.SummaryFilter) ([]readmodel.Summary, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	where := []string{"business_id = $1"}
	args := []any{int64(f.BusinessID)}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.LocationID != nil {
		args = append(args, int64(*f.LocationID))
		where = append(where, fmt.Sprintf("location_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_summaries WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count summaries: %w", err)
	}

	orderBy := "started_at DESC, order_id"
	if f.Order == readmodel.ConfirmedOldestFirst {
		orderBy = "confirmed_at ASC NULLS LAST, order_id"
	}
	query := `SELECT ` + summaryColumns + ` FROM order_summaries WHERE ` + cond + ` ORDER BY ` + orderBy
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	out := []readmodel.Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (readmodel.Summary, error) {
	var (
		sum                            readmodel.Summary
		orderID                        uuid.UUID
		businessID, customerID, locID  int64
		orderType, status              string
		confirmed, preparing, complete sql.NullTime
		cancelled                      sql.NullTime
	)
	if err := row.Scan(
		&orderID, &businessID, &customerID, &locID, &orderType, &status,
		&sum.ItemCount, &sum.SubtotalCents, &sum.StartedAt,
		&confirmed, &preparing, &complete, &cancelled,
		&sum.CancelReason, &sum.CancelledBy, &sum.Version,
	); err != nil {
		return sum, err
	}
	sum.OrderID = id.OrderID(orderID)
	sum.BusinessID = id.BusinessID(businessID)
	sum.CustomerID = id.CustomerID(customerID)
	sum.LocationID = id.LocationID(locID)
	sum.OrderType = id.OrderType(orderType)
	sum.Status = models.Status(status)
	sum.StartedAt = sum.StartedAt.UTC()
	sum.ConfirmedAt = nullTime(confirmed)
	sum.PreparingAt = nullTime(preparing)
	sum.CompletedAt = nullTime(complete)
	sum.CancelledAt = nullTime(cancelled)
	return sum, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
