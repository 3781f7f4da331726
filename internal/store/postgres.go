package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jonathan/portfolio-engine/internal/types"
)

// PostgresStore keeps snapshots in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres migrates the schema and opens a connection pool.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := migratePostgres(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func migratePostgres(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return RunMigrations(db, "postgres")
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, key string) (*types.BadgeSnapshot, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM badge_snapshots WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return Decode(key, payload)
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, key string, snap *types.BadgeSnapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO badge_snapshots (key, version, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET version = $2, payload = $3, updated_at = NOW()`,
		key, snap.Version, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM badge_snapshots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
