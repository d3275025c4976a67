// Package queue provides the bounded ingestion queue between producers
// and the single delivery worker. Producers never block: a full queue
// rejects the item immediately and the caller counts the drop. This is
// the only shared-mutable state in the pipeline.
package queue

import (
	"time"

	"github.com/xtrace-dev/xtrace-go/internal/record"
)

// Queue is a bounded FIFO of batches, safe for concurrent enqueue from
// many goroutines with a single dequeuer.
type Queue struct {
	ch chan *record.Batch
}

// New creates a queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan *record.Batch, capacity)}
}

// TryEnqueue adds a batch without blocking. Returns false if the queue
// is full; the batch is discarded in that case.
func (q *Queue) TryEnqueue(b *record.Batch) bool {
	select {
	case q.ch <- b:
		return true
	default:
		return false
	}
}

// C exposes the receive side for the delivery worker's select loop.
// Only the worker may receive from it.
func (q *Queue) C() <-chan *record.Batch {
	return q.ch
}

// DequeueTimeout waits up to d for the next batch. Returns false on
// timeout. Used only by tests; the worker selects on C directly so it
// can also observe its stop signal.
func (q *Queue) DequeueTimeout(d time.Duration) (*record.Batch, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case b := <-q.ch:
		return b, true
	case <-timer.C:
		return nil, false
	}
}

// DrainNonBlocking removes and returns everything currently queued
// without waiting. Used for the final drain pass during shutdown.
func (q *Queue) DrainNonBlocking() []*record.Batch {
	var out []*record.Batch
	for {
		select {
		case b := <-q.ch:
			out = append(out, b)
		default:
			return out
		}
	}
}

// Len reports the number of queued batches.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Empty reports whether the queue currently holds no batches.
func (q *Queue) Empty() bool {
	return len(q.ch) == 0
}
