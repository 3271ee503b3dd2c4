package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// AuditStore appends to classification_audit.
type AuditStore struct {
	pool Pool
}

var _ story.AuditLog = (*AuditStore)(nil)

// NewAuditStore wraps an existing pool.
func NewAuditStore(pool Pool) (*AuditStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AuditStore{pool: pool}, nil
}

// Record writes one applied change.
func (s *AuditStore) Record(ctx context.Context, e story.AuditEntry) error {
	evidence, err := json.Marshal(e.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO classification_audit (
	run_id, story_id, old_category, new_category, confidence, method, evidence, rule_set_version, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.RunID, e.StoryID, string(e.OldCategory), string(e.NewCategory), e.Confidence,
		string(e.Method), evidence, e.RuleSetVersion, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record audit for story %d: %w", e.StoryID, err)
	}
	return nil
}
