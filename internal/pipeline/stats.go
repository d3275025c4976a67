// Package pipeline owns the background delivery loop: it drains the
// ingestion queue, accumulates a working buffer, groups it by trace
// identity, and hands each grouped batch to the exporter. One worker
// goroutine runs per client for the client's lifetime.
package pipeline

import "sync/atomic"

// Stats holds the pipeline's monotonic counters. Shared between the
// producer path (Dropped) and the worker (everything else); all access
// is atomic.
type Stats struct {
	Dropped       atomic.Int64
	SentBatches   atomic.Int64
	FailedBatches atomic.Int64
	Unroutable    atomic.Int64
}

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	Dropped       int64
	SentBatches   int64
	FailedBatches int64
	Unroutable    int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Dropped:       s.Dropped.Load(),
		SentBatches:   s.SentBatches.Load(),
		FailedBatches: s.FailedBatches.Load(),
		Unroutable:    s.Unroutable.Load(),
	}
}
