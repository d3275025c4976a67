package relay

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounceDefault coalesces bursts of file events before dispatch.
const debounceDefault = 200 * time.Millisecond

// maxConcurrentFiles bounds parallel file processing under burst load.
const maxConcurrentFiles = 5

// dispatchQueueSize buffers debounced paths ahead of the worker pool.
const dispatchQueueSize = 200

// pollDefault is the fallback polling interval where fsnotify cannot
// work (NFS and friends).
const pollDefault = 5 * time.Second

// SpoolWatcher reacts to new batch files appearing in the spool root.
type SpoolWatcher struct {
	spool    string
	handler  func(path string)
	debounce time.Duration
	log      zerolog.Logger
}

// NewSpoolWatcher creates an fsnotify-backed watcher.
func NewSpoolWatcher(spool string, handler func(path string), log zerolog.Logger) *SpoolWatcher {
	return &SpoolWatcher{
		spool:    spool,
		handler:  handler,
		debounce: debounceDefault,
		log:      log,
	}
}

// Run watches the spool root for new .json files. Blocks until ctx is
// cancelled. Events are debounced through a single timer and handed to
// a fixed worker pool, so a burst of files creates no extra goroutines.
func (w *SpoolWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.spool); err != nil {
		return err
	}

	var mu sync.Mutex
	pending := make(map[string]bool)
	dispatch := make(chan string, dispatchQueueSize)

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrentFiles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range dispatch {
				w.handler(path)
			}
		}()
	}

	flush := func() {
		mu.Lock()
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		for _, p := range batch {
			select {
			case dispatch <- p:
			case <-ctx.Done():
				return
			}
		}
	}

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()

	defer func() {
		debounceTimer.Stop()
		flush()
		close(dispatch)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			flush()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !isBatchFile(event.Name) {
				continue
			}

			mu.Lock()
			pending[event.Name] = true
			mu.Unlock()

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("spool watch error")
		}
	}
}

// PollWatcher scans the spool on a fixed interval. Fallback for
// filesystems without change notification.
type PollWatcher struct {
	spool    string
	handler  func(path string)
	interval time.Duration
	seen     map[string]bool
}

// NewPollWatcher creates a polling watcher.
func NewPollWatcher(spool string, handler func(path string), interval time.Duration) *PollWatcher {
	if interval == 0 {
		interval = pollDefault
	}
	return &PollWatcher{
		spool:    spool,
		handler:  handler,
		interval: interval,
		seen:     make(map[string]bool),
	}
}

// Run polls the spool. Blocks until ctx is cancelled.
func (w *PollWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *PollWatcher) scan() {
	entries, err := os.ReadDir(w.spool)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.spool, e.Name())
		if !isBatchFile(path) || w.seen[path] {
			continue
		}
		w.seen[path] = true
		w.handler(path)
	}
}

// ScanExisting handles batch files already present in the spool,
// typically ones that arrived while the relay was down.
func ScanExisting(spool string, handler func(path string)) error {
	entries, err := os.ReadDir(spool)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(spool, e.Name())
		if isBatchFile(path) {
			handler(path)
		}
	}
	return nil
}
