package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies
// the schema. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	for _, stmt := range schemaStatements {
		_, err = pool.Exec(ctx, stmt)
		require.NoError(t, err, "failed to apply schema")
	}

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// schemaStatements mirrors internal/storage/migrations/postgres.
// Kept inline to avoid an import cycle between the migrations package
// (which imports this one) and these tests.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS seen_players (
		id BIGSERIAL PRIMARY KEY,
		character_name TEXT NOT NULL,
		realm TEXT NOT NULL,
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_seen_players_identity
		ON seen_players (LOWER(character_name), LOWER(realm))`,
	`CREATE INDEX IF NOT EXISTS idx_seen_players_last_seen
		ON seen_players (last_seen_at)`,
	`CREATE TABLE IF NOT EXISTS blacklisted_players (
		id BIGSERIAL PRIMARY KEY,
		character_name TEXT NOT NULL,
		realm TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		blacklisted_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_blacklisted_players_identity
		ON blacklisted_players (LOWER(character_name), LOWER(realm))`,
}
