package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations creates the settlement tables when missing.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settlements (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL UNIQUE,
			guild_id BIGINT NOT NULL,
			channel_id TEXT NOT NULL,
			status TEXT NOT NULL,
			time_limit_seconds INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reminded_at TIMESTAMP
		);
		ALTER TABLE settlements ADD COLUMN IF NOT EXISTS source TEXT NOT NULL DEFAULT 'nomikai';
		CREATE INDEX IF NOT EXISTS idx_settlements_guild_id ON settlements(guild_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS settlement_transfers (
			settlement_id BIGINT NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			payer_id TEXT NOT NULL,
			payee_id TEXT NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMP,
			PRIMARY KEY (settlement_id, seq)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
