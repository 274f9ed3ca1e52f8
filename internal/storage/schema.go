package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS news_items (
	id           BIGSERIAL PRIMARY KEY,
	url          VARCHAR(500) NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	source       VARCHAR(100),
	provider     VARCHAR(50),
	published_at TIMESTAMPTZ,
	excerpt      TEXT,
	content      TEXT,
	summary      TEXT,
	tags         TEXT[] NOT NULL DEFAULT '{}',
	symbols      TEXT[] NOT NULL DEFAULT '{}',
	hash         VARCHAR(64),
	published    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS news_items_unpublished_idx ON news_items (id) WHERE published = FALSE;
CREATE INDEX IF NOT EXISTS news_items_source_idx ON news_items (source);
`

// Migrate creates the schema. It is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
