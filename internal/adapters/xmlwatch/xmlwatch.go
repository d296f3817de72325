// Package xmlwatch watches the download directory for the XML a replay
// sequence should have produced.
//
// This is the engine's only failure signal and it is best-effort: the file
// either shows up within the window or the attempt is presumed failed.
// Nothing verifies that clicks landed where intended.
package xmlwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultTimeout = 10 * time.Second

// Watcher awaits downloaded XML files by invoice key.
type Watcher struct {
	dir     string
	timeout time.Duration
}

// Option applies a configuration option to the Watcher.
type Option func(*Watcher)

// WithDir sets the download directory.
func WithDir(dir string) Option {
	return func(w *Watcher) {
		if dir != "" {
			w.dir = dir
		}
	}
}

// WithTimeout bounds how long AwaitDownload waits for the file.
func WithTimeout(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// New creates a Watcher over the current directory unless configured.
func New(opts ...Option) *Watcher {
	w := &Watcher{dir: ".", timeout: defaultTimeout}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched download directory.
func (w *Watcher) Dir() string { return w.dir }

// AwaitDownload blocks until <key>.xml exists in the download directory,
// the timeout elapses (ErrDetectionTimeout), or ctx is canceled.
func (w *Watcher) AwaitDownload(ctx context.Context, key string) error {
	target := filepath.Join(w.dir, key+".xml")

	// The file may already be there from a faster-than-expected download.
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start download watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Re-check after the watch is in place to close the startup race.
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s not seen within %s", ErrDetectionTimeout, filepath.Base(target), w.timeout)
		case ev, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("%w: watcher closed", ErrDetectionTimeout)
			}
			if ev.Name == target && ev.Op.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				return nil
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("%w: watcher closed", ErrDetectionTimeout)
			}
			return fmt.Errorf("download watcher: %w", err)
		}
	}
}
