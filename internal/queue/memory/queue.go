// Package memory provides the in-process work queue used by the crawl engine.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/novel-crawler/internal/crawler"
)

// Queue is an unbounded FIFO with context-aware dequeue. Enqueue never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []crawler.WorkItem
	head   int
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Enqueue appends an item. It fails only after Close.
func (q *Queue) Enqueue(item crawler.WorkItem) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("enqueue %s: %w", item.Kind, crawler.ErrEndOfStream)
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue pops the oldest item, blocking until one is available. Items queued
// before Close are still delivered; afterwards it returns crawler.ErrEndOfStream.
func (q *Queue) Dequeue(ctx context.Context) (crawler.WorkItem, error) {
	for {
		item, ok, closed := q.pop()
		if ok {
			return item, nil
		}
		if closed {
			return crawler.WorkItem{}, crawler.ErrEndOfStream
		}
		select {
		case <-ctx.Done():
			return crawler.WorkItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.ready:
		case <-q.done:
		}
	}
}

func (q *Queue) pop() (crawler.WorkItem, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return crawler.WorkItem{}, false, q.closed
	}
	item := q.items[q.head]
	q.items[q.head] = crawler.WorkItem{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return item, true, q.closed
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close marks the queue as having no further senders. It is safe to call twice.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
