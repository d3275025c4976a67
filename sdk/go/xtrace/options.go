package xtrace

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/xtrace-dev/xtrace-go/internal/config"
	"github.com/xtrace-dev/xtrace-go/internal/pipeline"
)

// Option configures a Client at creation time. Anything left unset
// falls back to its XTRACE_* environment variable, then its default.
type Option func(*clientConfig)

type clientConfig struct {
	cfg    config.Config
	log    zerolog.Logger
	sender pipeline.Sender
}

// WithBaseURL sets the collector root URL (default http://127.0.0.1:8080,
// env XTRACE_BASE_URL).
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.cfg.BaseURL = url }
}

// WithAPIKey sets the bearer token for collector requests
// (env XTRACE_API_KEY or XTRACE_BEARER_TOKEN). Required: construction
// fails if no key can be resolved.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.cfg.APIKey = key }
}

// WithProjectID sets the default project recorded on traces and
// observations (default "default", env XTRACE_PROJECT_ID).
func WithProjectID(id string) Option {
	return func(c *clientConfig) { c.cfg.ProjectID = id }
}

// WithQueueMaxSize bounds the ingestion queue (default 10000,
// env XTRACE_QUEUE_MAX_SIZE). Enqueues past the bound are dropped and
// counted, never blocked.
func WithQueueMaxSize(n int) Option {
	return func(c *clientConfig) { c.cfg.QueueMaxSize = n }
}

// WithBatchMaxSize sets the buffer size that forces a release cycle
// (default 100, env XTRACE_BATCH_MAX_SIZE).
func WithBatchMaxSize(n int) Option {
	return func(c *clientConfig) { c.cfg.BatchMaxSize = n }
}

// WithFlushInterval sets the elapsed time that forces a release cycle
// (default 500ms, env XTRACE_FLUSH_INTERVAL).
func WithFlushInterval(d time.Duration) Option {
	return func(c *clientConfig) { c.cfg.FlushInterval = d }
}

// WithRequestTimeout bounds each delivery request (default 2s,
// env XTRACE_REQUEST_TIMEOUT).
func WithRequestTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.cfg.RequestTimeout = d }
}

// WithMaxRetries sets the retry budget per grouped batch (default 3,
// env XTRACE_MAX_RETRIES).
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) { c.cfg.MaxRetries = n }
}

// WithLogger attaches a logger for diagnostics (dropped records, failed
// deliveries). The default is a no-op logger: a telemetry side-channel
// should stay silent unless asked.
func WithLogger(log zerolog.Logger) Option {
	return func(c *clientConfig) { c.log = log }
}

// withSender replaces the HTTP exporter. Test seam.
func withSender(s pipeline.Sender) Option {
	return func(c *clientConfig) { c.sender = s }
}
