package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// StoryStore keeps stories in memory. url and content_hash are unique.
type StoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	nextID  int64
	stories map[int64]story.Story
	byURL   map[string]int64
	byHash  map[string]int64
}

var (
	_ story.StoryStore      = (*StoryStore)(nil)
	_ story.ReclassifyStore = (*StoryStore)(nil)
	_ story.ReviewQueue     = (*StoryStore)(nil)
)

// NewStoryStore constructs an empty store. A nil clock uses time.Now.
func NewStoryStore(clock story.Clock) *StoryStore {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &StoryStore{
		now:     func() time.Time { return now().UTC() },
		stories: make(map[int64]story.Story),
		byURL:   make(map[string]int64),
		byHash:  make(map[string]int64),
	}
}

// Exists reports whether the url or content hash is already stored.
func (s *StoryStore) Exists(_ context.Context, url, contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, byURL := s.byURL[url]
	_, byHash := s.byHash[contentHash]
	return byURL || byHash, nil
}

// Insert stores a new story or returns story.ErrDuplicate.
func (s *StoryStore) Insert(_ context.Context, st story.Story) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byURL[st.URL]; ok {
		return 0, fmt.Errorf("insert story %s: %w", st.URL, story.ErrDuplicate)
	}
	if _, ok := s.byHash[st.ContentHash]; ok {
		return 0, fmt.Errorf("insert story %s: %w", st.URL, story.ErrDuplicate)
	}
	s.nextID++
	st.ID = s.nextID
	if st.ScrapedAt.IsZero() {
		st.ScrapedAt = s.now()
	}
	st.UpdatedAt = st.ScrapedAt
	s.stories[st.ID] = st
	s.byURL[st.URL] = st.ID
	s.byHash[st.ContentHash] = st.ID
	return st.ID, nil
}

// ListForReclassification returns matching stories in id order.
func (s *StoryStore) ListForReclassification(_ context.Context, filter story.StoryFilter) ([]story.Story, error) {
	return s.list(func(st story.Story) bool {
		if filter.SourceID != "" && st.SourceID != filter.SourceID {
			return false
		}
		return !filter.OnlyFlagged || st.NeedsReview || st.IsGenAI == nil
	}, filter.Limit), nil
}

// ListNeedingReview returns flagged stories in id order.
func (s *StoryStore) ListNeedingReview(_ context.Context, sourceID string, limit int) ([]story.Story, error) {
	return s.list(func(st story.Story) bool {
		return st.NeedsReview && (sourceID == "" || st.SourceID == sourceID)
	}, limit), nil
}

func (s *StoryStore) list(keep func(story.Story) bool, limit int) []story.Story {
	s.mu.RLock()
	var out []story.Story
	for _, st := range s.stories {
		if keep(st) {
			out = append(out, st)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UpdateClassification rewrites the verdict, is_gen_ai and review flag.
func (s *StoryStore) UpdateClassification(_ context.Context, id int64, verdict story.Verdict, needsReview bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok {
		return fmt.Errorf("story %d: %w", id, story.ErrNotFound)
	}
	st.Classification = verdict
	st.IsGenAI = verdict.Category.IsGenAI()
	st.NeedsReview = needsReview
	st.UpdatedAt = s.now()
	s.stories[id] = st
	return nil
}

// Get returns one story by id.
func (s *StoryStore) Get(id int64) (story.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	return st, ok
}

// AuditLog collects applied reclassification changes.
type AuditLog struct {
	mu      sync.Mutex
	entries []story.AuditEntry
}

var _ story.AuditLog = (*AuditLog)(nil)

// NewAuditLog constructs an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record appends an entry.
func (a *AuditLog) Record(_ context.Context, e story.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

// Entries returns a copy of all recorded entries.
func (a *AuditLog) Entries() []story.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]story.AuditEntry(nil), a.entries...)
}
