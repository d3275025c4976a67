package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtrace-dev/xtrace-go/sdk/go/xtrace"
)

// shutdownGrace bounds the final queue drain when the relay stops.
const shutdownGrace = 10 * time.Second

// Relay watches a spool directory and ships batch files to the
// collector through an embedded SDK client.
type Relay struct {
	cfg     *Config
	client  *xtrace.Client
	metrics *Metrics
	proc    *Processor
	log     zerolog.Logger
}

// New builds a relay from configuration. The embedded client is
// started immediately; call Run to begin watching and Shutdown to
// drain.
func New(cfg *Config, log zerolog.Logger) (*Relay, error) {
	client, err := xtrace.New(clientOptions(cfg.Collector, log)...)
	if err != nil {
		return nil, fmt.Errorf("collector client: %w", err)
	}

	dirs := Dirs{Spool: cfg.SpoolDir}
	if err := dirs.Ensure(); err != nil {
		client.Shutdown(shutdownGrace)
		return nil, err
	}

	metrics := NewMetrics(client)
	return &Relay{
		cfg:     cfg,
		client:  client,
		metrics: metrics,
		proc:    NewProcessor(client, dirs, metrics, log),
		log:     log,
	}, nil
}

// clientOptions maps the YAML collector section onto SDK options,
// passing only the fields that were set so env fallbacks still apply.
func clientOptions(c CollectorConfig, log zerolog.Logger) []xtrace.Option {
	opts := []xtrace.Option{xtrace.WithLogger(log)}
	if c.BaseURL != "" {
		opts = append(opts, xtrace.WithBaseURL(c.BaseURL))
	}
	if c.APIKey != "" {
		opts = append(opts, xtrace.WithAPIKey(c.APIKey))
	}
	if c.ProjectID != "" {
		opts = append(opts, xtrace.WithProjectID(c.ProjectID))
	}
	if c.QueueMaxSize > 0 {
		opts = append(opts, xtrace.WithQueueMaxSize(c.QueueMaxSize))
	}
	if c.BatchMaxSize > 0 {
		opts = append(opts, xtrace.WithBatchMaxSize(c.BatchMaxSize))
	}
	if c.FlushInterval > 0 {
		opts = append(opts, xtrace.WithFlushInterval(c.FlushInterval))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, xtrace.WithRequestTimeout(c.RequestTimeout))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, xtrace.WithMaxRetries(c.MaxRetries))
	}
	return opts
}

// Run processes files already in the spool, then watches for new ones
// until ctx is cancelled, then drains the embedded client.
func (r *Relay) Run(ctx context.Context) error {
	if r.cfg.MetricsAddr != "" {
		go func() {
			if err := r.metrics.Serve(ctx, r.cfg.MetricsAddr); err != nil {
				r.log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	if err := ScanExisting(r.cfg.SpoolDir, r.handle); err != nil {
		r.log.Warn().Err(err).Msg("initial spool scan failed")
	}

	var err error
	if r.cfg.Poll {
		err = NewPollWatcher(r.cfg.SpoolDir, r.handle, r.cfg.PollInterval).Run(ctx)
	} else {
		err = NewSpoolWatcher(r.cfg.SpoolDir, r.handle, r.log).Run(ctx)
	}

	r.client.Shutdown(shutdownGrace)
	return err
}

func (r *Relay) handle(path string) {
	if err := r.proc.Process(path); err != nil {
		r.log.Error().Err(err).Str("file", path).Msg("spool file processing failed")
	}
}
