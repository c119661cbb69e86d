package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return pool, nil
}

// initSchema creates or updates the database schema
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	// -------------------------------
	// RECEIPT SPLITS
	// -------------------------------
	receiptSplitsSQL := `
		CREATE TABLE IF NOT EXISTS receipt_splits (
			id UUID PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			message_id BIGINT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			image_url VARCHAR(500) NOT NULL DEFAULT '',
			currency VARCHAR(8) NOT NULL DEFAULT '',
			total_cents BIGINT NOT NULL DEFAULT 0,
			split JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(ctx, receiptSplitsSQL); err != nil {
		return err
	}

	indexSQL := `
		CREATE INDEX IF NOT EXISTS idx_receipt_splits_chat_created
		ON receipt_splits (chat_id, created_at DESC)
	`
	if _, err := db.Exec(ctx, indexSQL); err != nil {
		return err
	}

	return nil
}
