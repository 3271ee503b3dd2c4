package story

import (
	"context"
	"io"
	"time"
)

// FrontierStore persists discovered URLs and their lifecycle.
type FrontierStore interface {
	// Enqueue inserts the candidate or refreshes its metadata. It reports whether a new row was created.
	// An existing row's status is never changed.
	Enqueue(ctx context.Context, sourceID string, candidate Candidate) (bool, error)
	// DequeueBatch returns up to limit pending rows, newest publish date first, then oldest discovery.
	DequeueBatch(ctx context.Context, sourceID string, limit int) ([]DiscoveredURL, error)
	// MarkAttempt moves an item to status, bumps its attempt counter and records errText.
	MarkAttempt(ctx context.Context, id int64, status FrontierStatus, errText string) error
}

// FrontierAdmin exposes operator-only frontier operations.
type FrontierAdmin interface {
	Stats(ctx context.Context, sourceID string) ([]StatusCount, error)
	Reset(ctx context.Context, sourceID string, from FrontierStatus) (int64, error)
}

// StoryStore persists Story records.
type StoryStore interface {
	Exists(ctx context.Context, url, contentHash string) (bool, error)
	// Insert returns ErrDuplicate when the url or content hash is already stored.
	Insert(ctx context.Context, s Story) (int64, error)
}

// ReclassifyStore reads and rewrites story classifications.
type ReclassifyStore interface {
	ListForReclassification(ctx context.Context, filter StoryFilter) ([]Story, error)
	UpdateClassification(ctx context.Context, id int64, verdict Verdict, needsReview bool) error
}

// ReviewQueue lists stories flagged for human review.
type ReviewQueue interface {
	ListNeedingReview(ctx context.Context, sourceID string, limit int) ([]Story, error)
}

// AuditLog records applied reclassification changes.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// PageFetcher retrieves a single URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// ListingPage is an open listing UI that can reveal more content.
type ListingPage interface {
	// Snapshot returns the currently rendered HTML and the URL it was rendered from.
	Snapshot(ctx context.Context) (html string, pageURL string, err error)
	// Advance reveals more content (scroll, click or paginate) and reports whether anything new appeared.
	Advance(ctx context.Context) (bool, error)
	Close() error
}

// ListingOpener opens listing sessions.
type ListingOpener interface {
	OpenListing(ctx context.Context, url string, opts ListingOptions) (ListingPage, error)
}

// Page is what the fetch collaborator hands to the scrape driver.
type Page struct {
	URL        string
	StatusCode int
	HTML       string
	Text       string
	Metadata   Metadata
	Fetcher    string
	FetchedAt  time.Time
}

// Extractor calls the natural-language extraction service.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (Extraction, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes story events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
