package config

import (
	"strings"
	"testing"
	"time"
)

func TestResolveDefaults(t *testing.T) {
	c, err := Resolve(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if c.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL, DefaultBaseURL)
	}
	if c.ProjectID != DefaultProjectID {
		t.Errorf("ProjectID = %q, want %q", c.ProjectID, DefaultProjectID)
	}
	if c.QueueMaxSize != DefaultQueueMaxSize {
		t.Errorf("QueueMaxSize = %d, want %d", c.QueueMaxSize, DefaultQueueMaxSize)
	}
	if c.BatchMaxSize != DefaultBatchMaxSize {
		t.Errorf("BatchMaxSize = %d, want %d", c.BatchMaxSize, DefaultBatchMaxSize)
	}
	if c.FlushInterval != DefaultFlushInterval {
		t.Errorf("FlushInterval = %v, want %v", c.FlushInterval, DefaultFlushInterval)
	}
	if c.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want %v", c.RequestTimeout, DefaultRequestTimeout)
	}
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.MaxRetries, DefaultMaxRetries)
	}
}

func TestResolveMissingAPIKey(t *testing.T) {
	_, err := Resolve(Config{})
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !strings.Contains(err.Error(), EnvAPIKey) {
		t.Errorf("error should name %s: %v", EnvAPIKey, err)
	}
}

func TestResolveEnvFallbacks(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://collector.internal:9000")
	t.Setenv(EnvBearerToken, "tok-from-env")
	t.Setenv(EnvProjectID, "proj-env")
	t.Setenv(EnvBatchMaxSize, "250")
	t.Setenv(EnvFlushInterval, "750ms")

	c, err := Resolve(Config{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if c.BaseURL != "http://collector.internal:9000" {
		t.Errorf("BaseURL = %q", c.BaseURL)
	}
	if c.APIKey != "tok-from-env" {
		t.Errorf("APIKey = %q", c.APIKey)
	}
	if c.ProjectID != "proj-env" {
		t.Errorf("ProjectID = %q", c.ProjectID)
	}
	if c.BatchMaxSize != 250 {
		t.Errorf("BatchMaxSize = %d, want 250", c.BatchMaxSize)
	}
	if c.FlushInterval != 750*time.Millisecond {
		t.Errorf("FlushInterval = %v, want 750ms", c.FlushInterval)
	}
}

func TestResolveExplicitBeatsEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvBatchMaxSize, "9")

	c, err := Resolve(Config{APIKey: "explicit-key", BatchMaxSize: 42})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.APIKey != "explicit-key" {
		t.Errorf("APIKey = %q, explicit value should win", c.APIKey)
	}
	if c.BatchMaxSize != 42 {
		t.Errorf("BatchMaxSize = %d, explicit value should win", c.BatchMaxSize)
	}
}

func TestResolveAPIKeyEnvPrecedence(t *testing.T) {
	t.Setenv(EnvAPIKey, "primary")
	t.Setenv(EnvBearerToken, "secondary")

	c, err := Resolve(Config{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.APIKey != "primary" {
		t.Errorf("APIKey = %q, %s should take precedence", c.APIKey, EnvAPIKey)
	}
}

func TestResolveBadEnvValues(t *testing.T) {
	t.Setenv(EnvQueueMaxSize, "not-a-number")
	if _, err := Resolve(Config{APIKey: "k"}); err == nil {
		t.Error("expected error for non-numeric queue size")
	}

	t.Setenv(EnvQueueMaxSize, "")
	t.Setenv(EnvFlushInterval, "half a second")
	if _, err := Resolve(Config{APIKey: "k"}); err == nil {
		t.Error("expected error for unparseable flush interval")
	}
}

func TestResolveRejectsInvalidValues(t *testing.T) {
	if _, err := Resolve(Config{APIKey: "k", BaseURL: "not a url"}); err == nil {
		t.Error("expected error for malformed base URL")
	}
	if _, err := Resolve(Config{APIKey: "k", BatchMaxSize: -5}); err == nil {
		t.Error("expected error for negative batch size")
	}
}
