package relay

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtrace-dev/xtrace-go/internal/record"
)

func TestRelayEndToEnd(t *testing.T) {
	col := &collector{}
	server := httptest.NewServer(col)
	defer server.Close()

	spool := t.TempDir()
	cfg := &Config{
		SpoolDir: spool,
		Collector: CollectorConfig{
			BaseURL:       server.URL,
			APIKey:        "test-key",
			FlushInterval: 20 * time.Millisecond,
		},
	}

	r, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// One file already waiting when the relay starts.
	if err := record.WriteFile(&record.Batch{
		Trace: &record.Trace{ID: "pre-existing", Name: "run"},
	}, spool, "pre"); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(spool, "done", "pre.json"))
		return err == nil
	})

	// One arriving while the relay is watching.
	if err := record.WriteFile(&record.Batch{
		Trace: &record.Trace{ID: "live", Name: "run"},
	}, spool, "live"); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(spool, "done", "live.json"))
		return err == nil
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("relay did not stop on cancel")
	}

	// Both batches delivered by the time Run returned (shutdown drains).
	waitFor(t, func() bool { return col.count() >= 2 })
}
