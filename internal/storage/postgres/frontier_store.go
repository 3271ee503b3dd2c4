package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// FrontierStore keeps the discovered_urls table.
type FrontierStore struct {
	pool Pool
}

var (
	_ story.FrontierStore = (*FrontierStore)(nil)
	_ story.FrontierAdmin = (*FrontierStore)(nil)
)

// NewFrontierStore wraps an existing pool.
func NewFrontierStore(pool Pool) (*FrontierStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &FrontierStore{pool: pool}, nil
}

const enqueueSQL = `
INSERT INTO discovered_urls (source_id, url, inferred_customer_name, inferred_title, publish_date, notes)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''))
ON CONFLICT (url) DO UPDATE SET
	inferred_customer_name = COALESCE(EXCLUDED.inferred_customer_name, discovered_urls.inferred_customer_name),
	inferred_title = COALESCE(EXCLUDED.inferred_title, discovered_urls.inferred_title),
	publish_date = COALESCE(EXCLUDED.publish_date, discovered_urls.publish_date),
	notes = COALESCE(EXCLUDED.notes, discovered_urls.notes)
RETURNING (xmax = 0)`

// Enqueue inserts the candidate, or refreshes metadata of an existing row without touching its status.
func (s *FrontierStore) Enqueue(ctx context.Context, sourceID string, c story.Candidate) (bool, error) {
	if sourceID == "" || strings.TrimSpace(c.URL) == "" {
		return false, fmt.Errorf("enqueue: source and url are required")
	}
	var inserted bool
	err := s.pool.QueryRow(ctx, enqueueSQL,
		sourceID, c.URL, c.CustomerName, c.Title, c.PublishDate, c.Notes,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", c.URL, err)
	}
	return inserted, nil
}

const frontierColumns = `id, source_id, url, COALESCE(inferred_customer_name, ''), COALESCE(inferred_title, ''),
	publish_date, discovered_at, last_attempt_at, attempt_count, status, COALESCE(last_error, ''), COALESCE(notes, '')`

// DequeueBatch lists pending rows, newest publish date first. Rows are not claimed here;
// the scrape driver claims each one with MarkAttempt.
func (s *FrontierStore) DequeueBatch(ctx context.Context, sourceID string, limit int) ([]story.DiscoveredURL, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+frontierColumns+`
FROM discovered_urls
WHERE source_id = $1 AND status = $2
ORDER BY publish_date DESC NULLS LAST, discovered_at ASC, id ASC
LIMIT $3`, sourceID, string(story.StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue batch: %w", err)
	}
	defer rows.Close()

	var out []story.DiscoveredURL
	for rows.Next() {
		var (
			item   story.DiscoveredURL
			status string
		)
		if err := rows.Scan(
			&item.ID, &item.SourceID, &item.URL, &item.InferredCustomerName, &item.InferredTitle,
			&item.InferredPublishDate, &item.DiscoveredAt, &item.LastAttemptAt, &item.AttemptCount,
			&status, &item.LastError, &item.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan frontier row: %w", err)
		}
		item.Status = story.FrontierStatus(status)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frontier rows: %w", err)
	}
	return out, nil
}

// MarkAttempt applies one lifecycle transition in its own transaction.
func (s *FrontierStore) MarkAttempt(ctx context.Context, id int64, status story.FrontierStatus, errText string) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mark attempt: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx)
		}
	}()

	var current string
	if err = tx.QueryRow(ctx, `SELECT status FROM discovered_urls WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("frontier item %d: %w", id, story.ErrNotFound)
		}
		return fmt.Errorf("lock frontier item %d: %w", id, err)
	}
	if !story.FrontierStatus(current).CanAdvance(status) {
		return fmt.Errorf("frontier item %d %s -> %s: %w", id, current, status, story.ErrInvalidTransition)
	}
	if _, err = tx.Exec(ctx, `UPDATE discovered_urls
SET status = $2, attempt_count = attempt_count + 1, last_attempt_at = NOW(), last_error = NULLIF($3, '')
WHERE id = $1`, id, string(status), errText); err != nil {
		return fmt.Errorf("update frontier item %d: %w", id, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mark attempt: %w", err)
	}
	return nil
}

// Stats counts rows per source and status. An empty sourceID covers every source.
func (s *FrontierStore) Stats(ctx context.Context, sourceID string) ([]story.StatusCount, error) {
	rows, err := s.pool.Query(ctx, `SELECT source_id, status, COUNT(*)
FROM discovered_urls
WHERE ($1 = '' OR source_id = $1)
GROUP BY source_id, status
ORDER BY source_id, status`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("frontier stats: %w", err)
	}
	defer rows.Close()

	var out []story.StatusCount
	for rows.Next() {
		var (
			sc     story.StatusCount
			status string
		)
		if err := rows.Scan(&sc.SourceID, &status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan frontier stats: %w", err)
		}
		sc.Status = story.FrontierStatus(status)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frontier stats: %w", err)
	}
	return out, nil
}

// Reset sends every item in status from back to pending. The attempt count is kept.
func (s *FrontierStore) Reset(ctx context.Context, sourceID string, from story.FrontierStatus) (int64, error) {
	if !from.Resettable() {
		return 0, fmt.Errorf("reset from %s: %w", from, story.ErrInvalidTransition)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE discovered_urls
SET status = $1, last_error = NULL
WHERE status = $2 AND ($3 = '' OR source_id = $3)`, string(story.StatusPending), string(from), sourceID)
	if err != nil {
		return 0, fmt.Errorf("reset frontier: %w", err)
	}
	return tag.RowsAffected(), nil
}
