// Package config resolves the client configuration from explicit
// options, environment variables, and defaults, in that order. The
// missing-credential case is the one construction-time hard failure:
// a client without an API key cannot deliver anything.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment variable fallbacks, one per configuration knob.
const (
	EnvBaseURL        = "XTRACE_BASE_URL"
	EnvAPIKey         = "XTRACE_API_KEY"
	EnvBearerToken    = "XTRACE_BEARER_TOKEN"
	EnvProjectID      = "XTRACE_PROJECT_ID"
	EnvQueueMaxSize   = "XTRACE_QUEUE_MAX_SIZE"
	EnvBatchMaxSize   = "XTRACE_BATCH_MAX_SIZE"
	EnvFlushInterval  = "XTRACE_FLUSH_INTERVAL"
	EnvRequestTimeout = "XTRACE_REQUEST_TIMEOUT"
	EnvMaxRetries     = "XTRACE_MAX_RETRIES"
)

// Defaults.
const (
	DefaultBaseURL        = "http://127.0.0.1:8080"
	DefaultProjectID      = "default"
	DefaultQueueMaxSize   = 10_000
	DefaultBatchMaxSize   = 100
	DefaultFlushInterval  = 500 * time.Millisecond
	DefaultRequestTimeout = 2 * time.Second
	DefaultMaxRetries     = 3
)

// Config is the resolved client configuration.
type Config struct {
	BaseURL        string        `validate:"required,url"`
	APIKey         string        `validate:"required"`
	ProjectID      string        `validate:"required"`
	QueueMaxSize   int           `validate:"gte=1"`
	BatchMaxSize   int           `validate:"gte=1"`
	FlushInterval  time.Duration `validate:"gt=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	MaxRetries     int           `validate:"gte=0"`
}

var validate = validator.New()

// Resolve fills empty fields from the environment, then defaults, and
// validates the result. Field resolution order: explicit value → env
// var → default. The API key has no default: resolution fails without
// one, and the error names both env vars a caller can set.
func Resolve(c Config) (Config, error) {
	c.BaseURL = firstNonEmpty(c.BaseURL, os.Getenv(EnvBaseURL), DefaultBaseURL)
	c.APIKey = firstNonEmpty(c.APIKey, os.Getenv(EnvAPIKey), os.Getenv(EnvBearerToken))
	c.ProjectID = firstNonEmpty(c.ProjectID, os.Getenv(EnvProjectID), DefaultProjectID)

	if c.APIKey == "" {
		return c, fmt.Errorf("missing API key (set %s or %s)", EnvAPIKey, EnvBearerToken)
	}

	var err error
	if c.QueueMaxSize, err = intFallback(c.QueueMaxSize, EnvQueueMaxSize, DefaultQueueMaxSize); err != nil {
		return c, err
	}
	if c.BatchMaxSize, err = intFallback(c.BatchMaxSize, EnvBatchMaxSize, DefaultBatchMaxSize); err != nil {
		return c, err
	}
	if c.FlushInterval, err = durationFallback(c.FlushInterval, EnvFlushInterval, DefaultFlushInterval); err != nil {
		return c, err
	}
	if c.RequestTimeout, err = durationFallback(c.RequestTimeout, EnvRequestTimeout, DefaultRequestTimeout); err != nil {
		return c, err
	}
	if c.MaxRetries, err = intFallback(c.MaxRetries, EnvMaxRetries, DefaultMaxRetries); err != nil {
		return c, err
	}

	if err := validate.Struct(c); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// intFallback resolves an integer knob: explicit non-zero value wins,
// then the env var, then the default.
func intFallback(explicit int, env string, def int) (int, error) {
	if explicit != 0 {
		return explicit, nil
	}
	if raw := os.Getenv(env); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", env, err)
		}
		return n, nil
	}
	return def, nil
}

// durationFallback resolves a duration knob; the env var takes Go
// duration syntax ("500ms", "2s").
func durationFallback(explicit time.Duration, env string, def time.Duration) (time.Duration, error) {
	if explicit != 0 {
		return explicit, nil
	}
	if raw := os.Getenv(env); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", env, err)
		}
		return d, nil
	}
	return def, nil
}
