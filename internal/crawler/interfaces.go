package crawler

import (
	"context"
	"time"
)

// Fetcher performs a single GET and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResponse, error)
}

// Extractor pulls crawl facts out of fetched documents. It performs no I/O.
type Extractor interface {
	// FirstChapter returns the link of the first chapter listed on a catalog page.
	FirstChapter(body []byte) (string, error)
	// Chapter returns titles, image sources and next-chapter links of a chapter page.
	Chapter(body []byte) (ChapterPage, error)
}

// Persister writes a named artifact under a per-novel namespace and returns its URI.
type Persister interface {
	Persist(ctx context.Context, novelID, name string, data []byte) (string, error)
}

// Enqueuer is the sending half of the work queue.
type Enqueuer interface {
	Enqueue(item WorkItem) error
}

// Queue is an unbounded FIFO of work items with a single consumer.
type Queue interface {
	Enqueuer
	// Dequeue blocks until an item is available. It returns ErrEndOfStream once
	// the queue is closed and drained.
	Dequeue(ctx context.Context) (WorkItem, error)
	Len() int
	Close()
}

// RetryPolicy decides whether and when a failed fetch is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Hasher computes digests for persisted artifacts.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator produces crawl run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
