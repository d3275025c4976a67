package relay

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/xtrace-dev/xtrace-go/internal/record"
	"github.com/xtrace-dev/xtrace-go/sdk/go/xtrace"
)

// Processor handles one spooled batch file: read, validate, enqueue,
// archive.
type Processor struct {
	client  *xtrace.Client
	dirs    Dirs
	metrics *Metrics
	log     zerolog.Logger
}

// NewProcessor creates a processor that enqueues through the given
// client. metrics may be nil.
func NewProcessor(client *xtrace.Client, dirs Dirs, metrics *Metrics, log zerolog.Logger) *Processor {
	return &Processor{client: client, dirs: dirs, metrics: metrics, log: log}
}

// Process ships a single spool file. Invalid files move to failed/ and
// are not retried; valid files are enqueued and archived to done/.
func (p *Processor) Process(path string) error {
	name := filepath.Base(path)

	// Reject symlinks before reading: a symlinked spool entry could
	// point anywhere on the filesystem.
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat spool file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		p.log.Warn().Str("file", name).Msg("rejected symlink in spool")
		return p.reject(path)
	}

	b, err := record.ReadFile(path)
	if err != nil {
		p.log.Warn().Err(err).Str("file", name).Msg("unreadable batch file")
		return p.reject(path)
	}
	if err := record.Validate(b); err != nil {
		p.log.Warn().Err(err).Str("file", name).Msg("invalid batch file")
		return p.reject(path)
	}

	p.client.Enqueue(b)

	if err := moveFile(path, filepath.Join(p.dirs.Done(), name)); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	if p.metrics != nil {
		p.metrics.FileProcessed()
	}
	p.log.Debug().Str("file", name).Str("trace_id", b.TraceID()).Msg("spooled batch enqueued")
	return nil
}

// reject moves a bad file to failed/ so it stops matching the watcher.
func (p *Processor) reject(path string) error {
	if err := moveFile(path, filepath.Join(p.dirs.Failed(), filepath.Base(path))); err != nil {
		return fmt.Errorf("move to failed: %w", err)
	}
	if p.metrics != nil {
		p.metrics.FileRejected()
	}
	return nil
}
