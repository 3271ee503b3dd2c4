package story

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors shared by stores and drivers.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate story")
	ErrInvalidTransition = errors.New("invalid frontier transition")
	ErrInvalidURL        = errors.New("invalid story url")
)

// ErrorKind classifies per-item failures.
type ErrorKind string

// Error kinds handled by the scrape driver.
const (
	KindUnknown        ErrorKind = ""
	KindTransientFetch ErrorKind = "transient_fetch"
	KindPermanentFetch ErrorKind = "permanent_fetch"
	KindExtraction     ErrorKind = "extraction"
	KindDataIntegrity  ErrorKind = "data_integrity"
)

// FetchError wraps a failed fetch with its kind.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

// NewFetchError classifies err (and the HTTP status, when known) into a FetchError.
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		Kind:       classifyFetch(statusCode, err),
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s fetch %s (status %d): %v", e.Kind, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Gone reports whether the target no longer exists or was never a story page.
func (e *FetchError) Gone() bool {
	return e.StatusCode == http.StatusNotFound ||
		e.StatusCode == http.StatusGone ||
		errors.Is(e.Err, ErrInvalidURL)
}

func classifyFetch(statusCode int, err error) ErrorKind {
	if errors.Is(err, ErrInvalidURL) {
		return KindPermanentFetch
	}
	switch {
	case statusCode == 0:
		return KindTransientFetch
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooEarly,
		statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusForbidden,
		statusCode >= 500:
		return KindTransientFetch
	case statusCode >= 400:
		return KindPermanentFetch
	default:
		return KindTransientFetch
	}
}

// ExtractionError wraps a failed extraction call.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// KindOf maps any error onto the failure taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return KindExtraction
	}
	if errors.Is(err, ErrDuplicate) {
		return KindDataIntegrity
	}
	if errors.Is(err, ErrInvalidURL) {
		return KindPermanentFetch
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return KindTransientFetch
	}
	return KindUnknown
}
