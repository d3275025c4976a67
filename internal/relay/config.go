// Package relay ships batch files dropped into a spool directory to the
// collector. It exists for producers that cannot link the SDK (shell
// scripts, other runtimes): write a JSON batch file into the spool and
// the relay enqueues it through the same pipeline the SDK uses.
package relay

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// CollectorConfig tunes the embedded delivery client. Empty fields fall
// back to the client's XTRACE_* environment variables and defaults.
type CollectorConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	ProjectID      string        `yaml:"project_id"`
	QueueMaxSize   int           `yaml:"queue_max_size" validate:"gte=0"`
	BatchMaxSize   int           `yaml:"batch_max_size" validate:"gte=0"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries" validate:"gte=0"`
}

// Config is the relay's YAML configuration.
type Config struct {
	SpoolDir     string          `yaml:"spool_dir" validate:"required"`
	Collector    CollectorConfig `yaml:"collector"`
	MetricsAddr  string          `yaml:"metrics_addr"`
	Poll         bool            `yaml:"poll"`
	PollInterval time.Duration   `yaml:"poll_interval"`
}

var validate = validator.New()

// Load reads and validates a relay configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
