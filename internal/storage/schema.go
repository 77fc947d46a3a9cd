package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
	seq        BIGSERIAL   NOT NULL UNIQUE,
	id         TEXT        PRIMARY KEY,
	attributes JSONB       NOT NULL DEFAULT '{}'::jsonb,
	images     JSONB       NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS listings_category_idx ON listings ((lower(attributes->>'category')))`,
}

// Migrate creates the listings schema if it is missing.
func Migrate(ctx context.Context, db execer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout)
	defer cancel()

	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
