package database

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	pairErr := &pgconn.PgError{Code: "23505", ConstraintName: ConnectionPairConstraint}
	wrapped := fmt.Errorf("failed to create connection: %w", pairErr)

	assert.True(t, IsUniqueViolation(wrapped, ConnectionPairConstraint))
	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.False(t, IsUniqueViolation(wrapped, ParticipantConstraint))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestMigrationNamesAreOrdered(t *testing.T) {
	files := fstest.MapFS{
		"migrations/002_views.sql": {Data: []byte("SELECT 1")},
		"migrations/001_init.sql":  {Data: []byte("SELECT 1")},
		"migrations/README.md":     {Data: []byte("notes")},
	}

	names, err := migrationNames(files)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_views.sql"}, names)
	assert.Equal(t, "002", migrationVersion(names[1]))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
}
