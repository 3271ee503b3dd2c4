package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// StoryStore keeps the stories table.
type StoryStore struct {
	pool Pool
}

var (
	_ story.StoryStore      = (*StoryStore)(nil)
	_ story.ReclassifyStore = (*StoryStore)(nil)
	_ story.ReviewQueue     = (*StoryStore)(nil)
)

// NewStoryStore wraps an existing pool.
func NewStoryStore(pool Pool) (*StoryStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &StoryStore{pool: pool}, nil
}

// Exists reports whether a story with the url or content hash is already stored.
func (s *StoryStore) Exists(ctx context.Context, url, contentHash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stories WHERE url = $1 OR content_hash = $2)`,
		url, contentHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("story exists: %w", err)
	}
	return exists, nil
}

const insertStorySQL = `
INSERT INTO stories (
	source_id, customer_name, title, url, content_hash, raw_content, structured_extraction,
	is_gen_ai, classification_evidence, needs_review, scraped_at, updated_at, publish_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $12)
ON CONFLICT DO NOTHING
RETURNING id`

// Insert stores a new story. A url or content hash conflict yields story.ErrDuplicate.
func (s *StoryStore) Insert(ctx context.Context, st story.Story) (int64, error) {
	raw, err := json.Marshal(st.RawContent)
	if err != nil {
		return 0, fmt.Errorf("marshal raw content: %w", err)
	}
	verdict, err := json.Marshal(st.Classification)
	if err != nil {
		return 0, fmt.Errorf("marshal classification: %w", err)
	}
	var extraction []byte
	if st.Extraction != nil {
		if extraction, err = json.Marshal(st.Extraction); err != nil {
			return 0, fmt.Errorf("marshal extraction: %w", err)
		}
	}

	var id int64
	err = s.pool.QueryRow(ctx, insertStorySQL,
		st.SourceID, st.CustomerName, st.Title, st.URL, st.ContentHash, raw, extraction,
		st.IsGenAI, verdict, st.NeedsReview, st.ScrapedAt, st.PublishDate,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("insert story %s: %w", st.URL, story.ErrDuplicate)
	}
	if err != nil {
		return 0, fmt.Errorf("insert story %s: %w", st.URL, err)
	}
	return id, nil
}

const storyColumns = `id, source_id, customer_name, COALESCE(title, ''), url, content_hash, raw_content,
	structured_extraction, is_gen_ai, classification_evidence, needs_review, scraped_at, updated_at, publish_date`

// ListForReclassification returns stories in id order.
func (s *StoryStore) ListForReclassification(ctx context.Context, filter story.StoryFilter) ([]story.Story, error) {
	return s.list(ctx, `SELECT `+storyColumns+`
FROM stories
WHERE ($1 = '' OR source_id = $1) AND (NOT $2 OR needs_review OR is_gen_ai IS NULL)
ORDER BY id
LIMIT NULLIF($3, 0)`, filter.SourceID, filter.OnlyFlagged, filter.Limit)
}

// ListNeedingReview returns the human review queue, oldest first.
func (s *StoryStore) ListNeedingReview(ctx context.Context, sourceID string, limit int) ([]story.Story, error) {
	return s.list(ctx, `SELECT `+storyColumns+`
FROM stories
WHERE needs_review AND ($1 = '' OR source_id = $1)
ORDER BY scraped_at, id
LIMIT NULLIF($2, 0)`, sourceID, limit)
}

func (s *StoryStore) list(ctx context.Context, sql string, args ...any) ([]story.Story, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var out []story.Story
	for rows.Next() {
		var (
			st                       story.Story
			raw, extraction, verdict []byte
		)
		if err := rows.Scan(
			&st.ID, &st.SourceID, &st.CustomerName, &st.Title, &st.URL, &st.ContentHash, &raw,
			&extraction, &st.IsGenAI, &verdict, &st.NeedsReview, &st.ScrapedAt, &st.UpdatedAt, &st.PublishDate,
		); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		if err := decodeStory(&st, raw, extraction, verdict); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return out, nil
}

func decodeStory(st *story.Story, raw, extraction, verdict []byte) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.RawContent); err != nil {
			return fmt.Errorf("decode raw content of story %d: %w", st.ID, err)
		}
	}
	if len(extraction) > 0 {
		st.Extraction = &story.Extraction{}
		if err := json.Unmarshal(extraction, st.Extraction); err != nil {
			return fmt.Errorf("decode extraction of story %d: %w", st.ID, err)
		}
	}
	if len(verdict) > 0 {
		if err := json.Unmarshal(verdict, &st.Classification); err != nil {
			return fmt.Errorf("decode classification of story %d: %w", st.ID, err)
		}
	}
	return nil
}

// UpdateClassification rewrites the mutable classification fields of a story.
func (s *StoryStore) UpdateClassification(ctx context.Context, id int64, verdict story.Verdict, needsReview bool) error {
	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE stories
SET is_gen_ai = $2, classification_evidence = $3, needs_review = $4, updated_at = NOW()
WHERE id = $1`, id, verdict.Category.IsGenAI(), payload, needsReview)
	if err != nil {
		return fmt.Errorf("update classification of story %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("story %d: %w", id, story.ErrNotFound)
	}
	return nil
}
