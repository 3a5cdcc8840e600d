// Package watch signals library changes between vibe processes.
//
// Every process that makes a user-visible change rewrites a small marker file next to the
// database. A long-running process watches that file with fsnotify and treats each write
// from another process as a local storage update.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/fsnotify/fsnotify"
)

// Touch replaces the marker at path with this process id and the current time.
//
// The content is renamed into place so watchers never read a partial marker.
func Touch(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".marker-*")
	if err != nil {
		return fmt.Errorf("failed to write change marker: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = fmt.Fprintf(tmp, "%d %d\n", os.Getpid(), time.Now().UnixMilli())
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write change marker: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write change marker: %w", err)
	}
	return nil
}

// Toucher returns an event handler that touches path on every local storage update.
func Toucher(path string, logger *log.Logger) events.Handler {
	return events.Filter(events.StorageUpdated, events.OriginLocal, func(events.Event) {
		if err := Touch(path); err != nil && logger != nil {
			logger.Warn("failed to signal change", "error", err)
		}
	})
}

// writerPID returns the process id recorded in the marker, or 0.
func writerPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, _, _ := strings.Cut(strings.TrimSpace(string(data)), " ")
	n, _ := strconv.Atoi(pid)
	return n
}

// Watcher reports marker writes made by other processes.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	logger  *log.Logger
	selfPID int
}

// New watches the marker at path, creating it when missing.
//
// The parent directory is watched so the marker may be replaced atomically.
func New(path string, logger *log.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: change marker path is empty", shared.ErrInvalidConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve marker path: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Touch(path); err != nil {
			return nil, err
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{path: path, fs: fsw, logger: logger, selfPID: os.Getpid()}, nil
}

// Path returns the absolute marker path.
func (w *Watcher) Path() string { return w.path }

// Run calls onChange for every marker write by another process until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if pid := writerPID(w.path); pid == w.selfPID {
				continue
			}

			w.logger.Debug("library changed by another process", "op", event.Op)
			onChange()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
