// Package exporter posts grouped batches to the collector's ingest
// endpoint. Responses are classified three ways: 2xx succeeds, 429 and
// 5xx retry with exponential backoff, any other 4xx fails immediately.
// Transport errors retry under the same schedule, except on the final
// attempt where sleeping again would be pointless.
package exporter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtrace-dev/xtrace-go/internal/record"
)

// BatchPath is the collector's batch ingest endpoint.
const BatchPath = "/v1/l/batch"

const (
	backoffInitial = 200 * time.Millisecond
	backoffCap     = 5 * time.Second
)

// Exporter delivers batches to a single collector endpoint.
type Exporter struct {
	url        string
	apiKey     string
	maxRetries int
	client     *http.Client
	log        zerolog.Logger

	// Overridden in tests to keep retry schedules fast.
	initialDelay time.Duration
	maxDelay     time.Duration
	sleep        func(time.Duration)
}

// New creates an exporter. baseURL is the collector root (trailing
// slashes tolerated); timeout bounds each individual request.
func New(baseURL, apiKey string, maxRetries int, timeout time.Duration, log zerolog.Logger) *Exporter {
	return &Exporter{
		url:          strings.TrimRight(baseURL, "/") + BatchPath,
		apiKey:       apiKey,
		maxRetries:   maxRetries,
		client:       &http.Client{Timeout: timeout},
		log:          log,
		initialDelay: backoffInitial,
		maxDelay:     backoffCap,
		sleep:        time.Sleep,
	}
}

// Send posts one batch, retrying per the backoff schedule. Returns true
// on a 2xx response, false once the attempt budget is exhausted or a
// terminal status is seen. Never panics or returns an error: the worker
// only needs the success bit, failures surface through counters and the
// exporter's logger.
func (e *Exporter) Send(b *record.Batch) bool {
	body, err := json.Marshal(b)
	if err != nil {
		e.log.Error().Err(err).Msg("marshal batch")
		return false
	}

	delay := e.initialDelay
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodPost, e.url, bytes.NewReader(body))
		if err != nil {
			e.log.Error().Err(err).Msg("create request")
			return false
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			if attempt >= e.maxRetries {
				e.log.Warn().Err(err).Int("attempts", attempt+1).Msg("batch delivery failed")
				return false
			}
			e.sleep(delay)
			delay = nextDelay(delay, e.maxDelay)
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return true
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			e.sleep(delay)
			delay = nextDelay(delay, e.maxDelay)
		default:
			// Non-retryable client error: retrying would only repeat it.
			e.log.Warn().Int("status", resp.StatusCode).Msg("batch rejected")
			return false
		}
	}

	e.log.Warn().Int("attempts", e.maxRetries+1).Msg("batch delivery failed")
	return false
}

// nextDelay doubles the backoff, capped at max.
func nextDelay(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}
