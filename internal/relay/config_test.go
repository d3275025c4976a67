package relay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
spool_dir: /var/spool/xtrace
metrics_addr: "127.0.0.1:9410"
poll: true
poll_interval: 2s
collector:
  base_url: http://collector.local:8080
  api_key: sk-test
  project_id: proj-a
  queue_max_size: 500
  batch_max_size: 50
  flush_interval: 250ms
  request_timeout: 5s
  max_retries: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SpoolDir != "/var/spool/xtrace" {
		t.Errorf("SpoolDir = %q", cfg.SpoolDir)
	}
	if cfg.MetricsAddr != "127.0.0.1:9410" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if !cfg.Poll || cfg.PollInterval != 2*time.Second {
		t.Errorf("poll settings = %v %v", cfg.Poll, cfg.PollInterval)
	}
	c := cfg.Collector
	if c.BaseURL != "http://collector.local:8080" || c.APIKey != "sk-test" {
		t.Errorf("collector endpoint = %q key %q", c.BaseURL, c.APIKey)
	}
	if c.QueueMaxSize != 500 || c.BatchMaxSize != 50 || c.MaxRetries != 4 {
		t.Errorf("collector sizes = %d %d %d", c.QueueMaxSize, c.BatchMaxSize, c.MaxRetries)
	}
	if c.FlushInterval != 250*time.Millisecond || c.RequestTimeout != 5*time.Second {
		t.Errorf("collector durations = %v %v", c.FlushInterval, c.RequestTimeout)
	}
}

func TestLoadConfigMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, "spool_dir: /tmp/spool\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SpoolDir != "/tmp/spool" {
		t.Errorf("SpoolDir = %q", cfg.SpoolDir)
	}
	if cfg.Collector.BaseURL != "" {
		t.Errorf("expected empty collector config, got %+v", cfg.Collector)
	}
}

func TestLoadConfigMissingSpoolDir(t *testing.T) {
	if _, err := Load(writeConfig(t, "metrics_addr: :9410\n")); err == nil {
		t.Fatal("expected validation error for missing spool_dir")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "spool_dir: [unclosed\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
