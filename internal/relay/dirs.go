package relay

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dirs describes the spool layout: incoming files at the root, shipped
// files under done/, rejected files under failed/.
type Dirs struct {
	Spool string
}

// Done is where successfully enqueued batch files are archived.
func (d Dirs) Done() string { return filepath.Join(d.Spool, "done") }

// Failed is where unreadable or invalid batch files land.
func (d Dirs) Failed() string { return filepath.Join(d.Spool, "failed") }

// Ensure creates the spool directory structure.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Spool, d.Done(), d.Failed()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// isBatchFile reports whether a path looks like a complete spooled
// batch (.json, not a .tmp partial write).
func isBatchFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".tmp")
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystem boundaries (bind mounts return EXDEV on rename).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
