package xtrace

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtrace-dev/xtrace-go/internal/config"
	"github.com/xtrace-dev/xtrace-go/internal/exporter"
	"github.com/xtrace-dev/xtrace-go/internal/pipeline"
	"github.com/xtrace-dev/xtrace-go/internal/queue"
)

// flushPollInterval is the coarse sleep used while waiting for the
// queue to empty.
const flushPollInterval = 50 * time.Millisecond

// Client owns the ingestion queue and its delivery worker. Safe for
// concurrent use from any number of goroutines; the worker is the only
// consumer.
type Client struct {
	cfg    config.Config
	q      *queue.Queue
	stats  *pipeline.Stats
	worker *pipeline.Worker
	log    zerolog.Logger

	shutdownOnce sync.Once
}

// New creates a Client and starts its delivery worker. The one hard
// failure is a missing API key: everything else has a default or an
// environment fallback.
func New(opts ...Option) (*Client, error) {
	cc := clientConfig{log: zerolog.Nop()}
	for _, o := range opts {
		o(&cc)
	}

	cfg, err := config.Resolve(cc.cfg)
	if err != nil {
		return nil, fmt.Errorf("xtrace: %w", err)
	}

	sender := cc.sender
	if sender == nil {
		sender = exporter.New(cfg.BaseURL, cfg.APIKey, cfg.MaxRetries, cfg.RequestTimeout, cc.log)
	}

	q := queue.New(cfg.QueueMaxSize)
	stats := &pipeline.Stats{}
	worker := pipeline.NewWorker(q, sender, stats, cfg.BatchMaxSize, cfg.FlushInterval, cc.log)
	worker.Start()

	c := &Client{
		cfg:    cfg,
		q:      q,
		stats:  stats,
		worker: worker,
		log:    cc.log,
	}

	// Safety net only: explicit Shutdown remains the contract. If the
	// client is dropped without one, stop the worker so it drains what
	// it can before the process exits.
	runtime.AddCleanup(c, func(w *pipeline.Worker) { w.Stop() }, worker)

	return c, nil
}

// Enqueue hands a batch to the delivery pipeline. It never blocks: if
// the queue is full the batch is dropped and the Dropped counter
// increments. The batch must not be mutated after this call.
func (c *Client) Enqueue(b *Batch) {
	if b == nil {
		return
	}
	if !c.q.TryEnqueue(b) {
		c.stats.Dropped.Add(1)
		c.log.Debug().Str("trace_id", b.TraceID()).Msg("queue full, record dropped")
	}
}

// Flush waits until the ingestion queue is empty or the timeout
// elapses. It only guarantees the queue has been drained of pending
// items, not that in-flight sends have completed.
func (c *Client) Flush(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.q.Empty() {
			return
		}
		time.Sleep(flushPollInterval)
	}
}

// Shutdown signals the worker to drain, waits for the queue to empty
// (bounded by timeout), and joins the worker. Idempotent: a second call
// is a no-op. Records enqueued after shutdown are accepted into the
// queue but never delivered.
func (c *Client) Shutdown(timeout time.Duration) {
	c.shutdownOnce.Do(func() {
		c.worker.Stop()
		c.Flush(timeout)
		if !c.worker.Join(timeout) {
			c.log.Warn().Msg("delivery worker still draining at shutdown timeout")
		}
	})
}

// Stats returns a snapshot of the client's monotonic counters.
func (c *Client) Stats() Stats {
	return c.stats.Snapshot()
}

// ProjectID returns the resolved default project identifier.
func (c *Client) ProjectID() string {
	return c.cfg.ProjectID
}
