package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS discovered_urls (
	id                     BIGSERIAL PRIMARY KEY,
	source_id              TEXT NOT NULL,
	url                    TEXT NOT NULL UNIQUE,
	inferred_customer_name TEXT,
	inferred_title         TEXT,
	publish_date           DATE,
	discovered_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_attempt_at        TIMESTAMPTZ,
	attempt_count          INTEGER NOT NULL DEFAULT 0,
	status                 TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'scraping', 'scraped', 'failed', 'filtered_out')),
	last_error             TEXT,
	notes                  TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_discovered_urls_source_status ON discovered_urls (source_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_discovered_urls_status ON discovered_urls (status)`,
	`CREATE INDEX IF NOT EXISTS idx_discovered_urls_publish_date ON discovered_urls (publish_date DESC NULLS LAST)`,
	`CREATE INDEX IF NOT EXISTS idx_discovered_urls_discovered_at ON discovered_urls (discovered_at)`,
	`CREATE TABLE IF NOT EXISTS stories (
	id                      BIGSERIAL PRIMARY KEY,
	source_id               TEXT NOT NULL,
	customer_name           TEXT NOT NULL,
	title                   TEXT,
	url                     TEXT NOT NULL UNIQUE,
	content_hash            TEXT NOT NULL UNIQUE,
	raw_content             JSONB NOT NULL,
	structured_extraction   JSONB,
	is_gen_ai               BOOLEAN,
	classification_evidence JSONB NOT NULL DEFAULT '{}'::jsonb,
	needs_review            BOOLEAN NOT NULL DEFAULT FALSE,
	scraped_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	publish_date            DATE
)`,
	`CREATE INDEX IF NOT EXISTS idx_stories_source ON stories (source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stories_needs_review ON stories (needs_review) WHERE needs_review`,
	`CREATE TABLE IF NOT EXISTS classification_audit (
	id               BIGSERIAL PRIMARY KEY,
	run_id           TEXT NOT NULL,
	story_id         BIGINT NOT NULL REFERENCES stories (id) ON DELETE CASCADE,
	old_category     TEXT NOT NULL,
	new_category     TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	method           TEXT NOT NULL,
	evidence         JSONB NOT NULL,
	rule_set_version TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_classification_audit_run ON classification_audit (run_id)`,
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, pool Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
