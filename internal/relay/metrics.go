package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xtrace-dev/xtrace-go/sdk/go/xtrace"
)

const metricsNamespace = "xtrace_relay"

// Metrics exposes the relay's delivery counters over Prometheus.
// Counters are read straight from the client's snapshot, so the relay
// carries no parallel bookkeeping.
type Metrics struct {
	registry *prometheus.Registry

	filesProcessed prometheus.Counter
	filesRejected  prometheus.Counter
}

// NewMetrics builds a registry wired to the given client's counters.
func NewMetrics(client *xtrace.Client) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sent_batches_total",
			Help:      "Total batches accepted by the collector",
		},
		func() float64 { return float64(client.Stats().SentBatches) },
	))
	registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "failed_batches_total",
			Help:      "Total batches that exhausted delivery retries",
		},
		func() float64 { return float64(client.Stats().FailedBatches) },
	))
	registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_records_total",
			Help:      "Total records dropped at enqueue because the queue was full",
		},
		func() float64 { return float64(client.Stats().Dropped) },
	))
	registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unroutable_records_total",
			Help:      "Total records that could not be assigned to a trace",
		},
		func() float64 { return float64(client.Stats().Unroutable) },
	))

	m := &Metrics{
		registry: registry,
		filesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_processed_total",
			Help:      "Total spool files read and enqueued",
		}),
		filesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_rejected_total",
			Help:      "Total spool files moved to the failed directory",
		}),
	}
	registry.MustRegister(m.filesProcessed, m.filesRejected)
	return m
}

// FileProcessed marks one spool file as enqueued.
func (m *Metrics) FileProcessed() { m.filesProcessed.Inc() }

// FileRejected marks one spool file as rejected.
func (m *Metrics) FileRejected() { m.filesRejected.Inc() }

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
