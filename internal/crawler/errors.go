package crawler

import (
	"errors"
	"fmt"
)

// Sentinel errors for the crawl error taxonomy. Typed errors below match them
// through errors.Is.
var (
	ErrFetch       = errors.New("fetch failed")
	ErrExtraction  = errors.New("extraction failed")
	ErrIO          = errors.New("artifact write failed")
	ErrEndOfStream = errors.New("work queue closed")
	ErrChainCycle  = errors.New("chapter chain revisits a chapter")
	// ErrChainStalled reports a queue that drained before the completion sentinel.
	ErrChainStalled = errors.New("chapter chain ended without reaching the catalog")
)

// FetchError describes a transport failure or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ExtractionError reports a required rule that matched nothing.
type ExtractionError struct {
	Rule string
	Name string
}

func (e *ExtractionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("extract %s: no match", e.Rule)
	}
	return fmt.Sprintf("extract %s from %s: no match", e.Rule, e.Name)
}

// Is matches ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// IOError wraps a directory creation or write failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is matches ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }
