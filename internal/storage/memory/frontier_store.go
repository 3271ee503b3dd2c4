package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// FrontierStore is an in-memory crawl frontier with the same transition rules as the Postgres store.
type FrontierStore struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64
	items  map[int64]story.DiscoveredURL
	byURL  map[string]int64
}

var (
	_ story.FrontierStore = (*FrontierStore)(nil)
	_ story.FrontierAdmin = (*FrontierStore)(nil)
)

// NewFrontierStore constructs an empty frontier. A nil clock uses time.Now.
func NewFrontierStore(clock story.Clock) *FrontierStore {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &FrontierStore{
		now:   func() time.Time { return now().UTC() },
		items: make(map[int64]story.DiscoveredURL),
		byURL: make(map[string]int64),
	}
}

// Enqueue inserts a new pending row or refreshes metadata on an existing one.
func (s *FrontierStore) Enqueue(_ context.Context, sourceID string, c story.Candidate) (bool, error) {
	if sourceID == "" || strings.TrimSpace(c.URL) == "" {
		return false, fmt.Errorf("enqueue: source and url are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byURL[c.URL]; ok {
		item := s.items[id]
		if c.CustomerName != "" {
			item.InferredCustomerName = c.CustomerName
		}
		if c.Title != "" {
			item.InferredTitle = c.Title
		}
		if c.PublishDate != nil {
			item.InferredPublishDate = pointerTime(*c.PublishDate)
		}
		if c.Notes != "" {
			item.Notes = c.Notes
		}
		s.items[id] = item
		return false, nil
	}

	s.nextID++
	item := story.DiscoveredURL{
		ID:                   s.nextID,
		SourceID:             sourceID,
		URL:                  c.URL,
		InferredCustomerName: c.CustomerName,
		InferredTitle:        c.Title,
		DiscoveredAt:         s.now(),
		Status:               story.StatusPending,
		Notes:                c.Notes,
	}
	if c.PublishDate != nil {
		item.InferredPublishDate = pointerTime(*c.PublishDate)
	}
	s.items[item.ID] = item
	s.byURL[item.URL] = item.ID
	return true, nil
}

// DequeueBatch lists pending rows for the source, newest publish date first.
func (s *FrontierStore) DequeueBatch(_ context.Context, sourceID string, limit int) ([]story.DiscoveredURL, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	var out []story.DiscoveredURL
	for _, item := range s.items {
		if item.SourceID == sourceID && item.Status == story.StatusPending {
			out = append(out, item)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return frontierLess(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func frontierLess(a, b story.DiscoveredURL) bool {
	switch {
	case a.InferredPublishDate != nil && b.InferredPublishDate == nil:
		return true
	case a.InferredPublishDate == nil && b.InferredPublishDate != nil:
		return false
	case a.InferredPublishDate != nil && !a.InferredPublishDate.Equal(*b.InferredPublishDate):
		return a.InferredPublishDate.After(*b.InferredPublishDate)
	}
	if !a.DiscoveredAt.Equal(b.DiscoveredAt) {
		return a.DiscoveredAt.Before(b.DiscoveredAt)
	}
	return a.ID < b.ID
}

// MarkAttempt applies one lifecycle transition.
func (s *FrontierStore) MarkAttempt(_ context.Context, id int64, status story.FrontierStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("frontier item %d: %w", id, story.ErrNotFound)
	}
	if !item.Status.CanAdvance(status) {
		return fmt.Errorf("frontier item %d %s -> %s: %w", id, item.Status, status, story.ErrInvalidTransition)
	}
	item.Status = status
	item.AttemptCount++
	item.LastAttemptAt = pointerTime(s.now())
	item.LastError = errText
	s.items[id] = item
	return nil
}

// Stats counts rows per source and status.
func (s *FrontierStore) Stats(_ context.Context, sourceID string) ([]story.StatusCount, error) {
	s.mu.RLock()
	counts := make(map[[2]string]int)
	for _, item := range s.items {
		if sourceID != "" && item.SourceID != sourceID {
			continue
		}
		counts[[2]string{item.SourceID, string(item.Status)}]++
	}
	s.mu.RUnlock()

	out := make([]story.StatusCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, story.StatusCount{SourceID: key[0], Status: story.FrontierStatus(key[1]), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// Reset returns items in status from to pending.
func (s *FrontierStore) Reset(_ context.Context, sourceID string, from story.FrontierStatus) (int64, error) {
	if !from.Resettable() {
		return 0, fmt.Errorf("reset from %s: %w", from, story.ErrInvalidTransition)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, item := range s.items {
		if item.Status != from || (sourceID != "" && item.SourceID != sourceID) {
			continue
		}
		item.Status = story.StatusPending
		item.LastError = ""
		s.items[id] = item
		n++
	}
	return n, nil
}

// Get returns a copy of one frontier row.
func (s *FrontierStore) Get(id int64) (story.DiscoveredURL, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

func pointerTime(t time.Time) *time.Time {
	return &t
}
