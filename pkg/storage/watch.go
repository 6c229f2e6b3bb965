package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDelay coalesces bursts of writes into a single change signal.
const DefaultWatchDelay = 150 * time.Millisecond

// Watch signals on the returned channel whenever the database file at path,
// or one of its journal siblings (path-wal, path-journal), changes. Bursts of
// writes within delay produce a single signal. The channel is closed once ctx
// is done or the watcher fails.
func Watch(ctx context.Context, path string, delay time.Duration) (<-chan struct{}, error) {
	if path == "" || path == ":memory:" {
		return nil, errors.New("storage: nothing to watch for an in-memory database")
	}
	if delay <= 0 {
		delay = DefaultWatchDelay
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("storage: create watcher: %w", err)
	}

	// SQLite replaces journal files, so the directory is watched rather than
	// the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("storage: watch %s: %w", filepath.Dir(abs), err)
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		defer watcher.Close()

		// fire is never closed so a late timer cannot send on a closed channel.
		fire := make(chan struct{}, 1)
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-fire:
				timer = nil
				select {
				case changes <- struct{}{}:
				default:
					// a signal is already pending
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Clean(evt.Name), abs) {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(delay, func() {
						select {
						case fire <- struct{}{}:
						default:
						}
					})
				}
			}
		}
	}()

	return changes, nil
}
