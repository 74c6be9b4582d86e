package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS places (
	place_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	formatted_address TEXT NOT NULL DEFAULT '',
	address_components JSONB NOT NULL DEFAULT '[]'::jsonb,
	website TEXT NOT NULL DEFAULT '',
	lat DOUBLE PRECISION NOT NULL,
	lng DOUBLE PRECISION NOT NULL,
	viewport JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_places_lower_name ON places(lower(name));

CREATE TABLE IF NOT EXISTS reviews (
	id TEXT PRIMARY KEY,
	place_id TEXT NOT NULL REFERENCES places(place_id),
	date_of_visit DATE,
	would_return BOOLEAN,
	review_text TEXT NOT NULL DEFAULT '',
	item_reviews JSONB NOT NULL DEFAULT '[]'::jsonb,
	reviewer TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_place_id ON reviews(place_id);
CREATE INDEX IF NOT EXISTS idx_reviews_date_of_visit ON reviews(date_of_visit);
`

const embeddingCacheDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS embedding_cache (
	content_hash TEXT PRIMARY KEY,
	embedding vector NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the review tables, and the embedding cache table when withEmbeddingCache is set.
func EnsureSchema(ctx context.Context, db *sql.DB, withEmbeddingCache bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if withEmbeddingCache {
		if _, err := tx.ExecContext(ctx, embeddingCacheDDL); err != nil {
			return fmt.Errorf("execute embedding cache ddl: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
