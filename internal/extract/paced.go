// Package extract holds behavior shared by extraction clients.
package extract

import (
	"context"
	"fmt"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// Limiter delays a call keyed by endpoint.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Paced spaces out calls to the wrapped extractor. Every Extract waits on the
// limiter first, so back-to-back escalations from the scrape driver and from
// reclassification passes share one politeness budget.
type Paced struct {
	next     story.Extractor
	limiter  Limiter
	endpoint string
}

var _ story.Extractor = (*Paced)(nil)

// NewPaced wraps next. endpoint keys the limiter, normally the API base URL.
func NewPaced(next story.Extractor, limiter Limiter, endpoint string) *Paced {
	return &Paced{next: next, limiter: limiter, endpoint: endpoint}
}

// Extract waits for the limiter, then delegates. A wait cut short by ctx is
// reported as an extraction failure.
func (p *Paced) Extract(ctx context.Context, req story.ExtractionRequest) (story.Extraction, error) {
	if err := p.limiter.Wait(ctx, p.endpoint); err != nil {
		return story.Extraction{}, &story.ExtractionError{Err: fmt.Errorf("extraction pacing: %w", err)}
	}
	return p.next.Extract(ctx, req)
}
