package pipeline

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtrace-dev/xtrace-go/internal/queue"
	"github.com/xtrace-dev/xtrace-go/internal/record"
)

// Sender delivers one grouped batch. Satisfied by exporter.Exporter;
// tests substitute fakes.
type Sender interface {
	Send(*record.Batch) bool
}

// Worker is the single background consumer of the ingestion queue.
// It moves through three states: running (drain, accumulate, release),
// draining (one final non-blocking sweep after the stop signal), and
// stopped (goroutine exited, nothing sends again).
type Worker struct {
	q             *queue.Queue
	sender        Sender
	stats         *Stats
	batchMaxSize  int
	flushInterval time.Duration
	log           zerolog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWorker wires a worker to its queue, sender, and counters.
func NewWorker(q *queue.Queue, sender Sender, stats *Stats, batchMaxSize int, flushInterval time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		q:             q,
		sender:        sender,
		stats:         stats,
		batchMaxSize:  batchMaxSize,
		flushInterval: flushInterval,
		log:           log,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Stop signals the worker to drain and exit. Safe to call more than
// once. It does not wait; use Join.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Join waits for the worker goroutine to exit, up to timeout. Returns
// false if the worker was still running when the timeout elapsed.
func (w *Worker) Join(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	}
}

func (w *Worker) run() {
	defer close(w.done)

	buf := make([]*record.Batch, 0, w.batchMaxSize)
	lastRelease := time.Now()

	timer := time.NewTimer(w.flushInterval)
	defer timer.Stop()

	for {
		// The stop signal is observed between cycles, never mid-send.
		select {
		case <-w.stop:
			w.drainAndExit(buf)
			return
		default:
		}

		wait := w.flushInterval - time.Since(lastRelease)
		if wait < 0 {
			wait = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-w.stop:
			w.drainAndExit(buf)
			return
		case b := <-w.q.C():
			buf = append(buf, b)
		case <-timer.C:
		}

		if len(buf) == 0 {
			// Nothing to release; restart the interval so an idle
			// worker blocks instead of spinning on an expired timer.
			if time.Since(lastRelease) >= w.flushInterval {
				lastRelease = time.Now()
			}
			continue
		}

		if len(buf) < w.batchMaxSize && time.Since(lastRelease) < w.flushInterval {
			continue
		}

		w.release(buf)
		buf = buf[:0]
		lastRelease = time.Now()
	}
}

// drainAndExit performs the single draining pass: whatever is in the
// working buffer plus everything still queued, released in one cycle.
// Items enqueued after this sweep are accepted but never delivered.
func (w *Worker) drainAndExit(buf []*record.Batch) {
	buf = append(buf, w.q.DrainNonBlocking()...)
	w.release(buf)
}

// release groups the buffer by trace and sends each grouped batch. A
// failed send is counted and skipped; it never stops the remaining
// batches or the worker itself.
func (w *Worker) release(items []*record.Batch) {
	if len(items) == 0 {
		return
	}

	groups, unroutable := GroupByTrace(items)
	if unroutable > 0 {
		w.stats.Unroutable.Add(int64(unroutable))
		w.log.Debug().Int("count", unroutable).Msg("dropped unroutable records")
	}

	for _, g := range groups {
		if w.sender.Send(g) {
			w.stats.SentBatches.Add(1)
		} else {
			w.stats.FailedBatches.Add(1)
		}
	}
}
