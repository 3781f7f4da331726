//go:build integration

package store

import (
	"context"
	"os"
	"testing"
)

// These tests require a running PostgreSQL database.
// Set TEST_DATABASE_URL environment variable to run them.

func getTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	s, err := ConnectPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	_, _ = s.pool.Exec(context.Background(), "DELETE FROM badge_snapshots WHERE key IN ('missing', $1)", DefaultKey)
	return s
}

func TestIntegration_PostgresStore(t *testing.T) {
	s := getTestPostgres(t)
	defer s.Close()

	exercise(t, s)
}
