//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"tavola/internal/platform/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// application schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and runs the embedded migrations.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tavola"),
		tcpostgres.WithUsername("tavola"),
		tcpostgres.WithPassword("tavola"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := postgres.Open(ctx, url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to migrate postgres: %v", err)
	}

	// The container is shared across suites through the Manager; Ryuk
	// removes it when the test binary exits.
	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// TruncateTables empties the given tables. The event log head is reset with
// the events table so positions restart at one.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	if _, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", "))); err != nil {
		return fmt.Errorf("truncate %v: %w", tables, err)
	}
	for _, table := range tables {
		if table == "events" {
			if _, err := p.DB.ExecContext(ctx, `UPDATE event_log_head SET position = 0 WHERE id = 1`); err != nil {
				return fmt.Errorf("reset event log head: %w", err)
			}
		}
	}
	return nil
}
