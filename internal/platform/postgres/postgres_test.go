package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavola/internal/platform/postgres/migrations"
)

func TestExtractUp(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	up := ExtractUp(content)
	assert.Contains(t, up, "CREATE TABLE a")
	assert.NotContains(t, up, "DROP TABLE")

	assert.Equal(t, "SELECT 1", ExtractUp("SELECT 1"))
}

func TestEmbeddedMigrationsHaveUpSections(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		content, err := fs.ReadFile(migrations.FS, e.Name())
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(ExtractUp(string(content))), e.Name())
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: UniqueViolation})
	assert.True(t, HasCode(wrapped, UniqueViolation))
	assert.False(t, HasCode(wrapped, SerializationFailure))
	assert.False(t, HasCode(errors.New("plain"), UniqueViolation))
}
