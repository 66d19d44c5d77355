// pkg/fileops/wait.go

package fileops

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// WaitForFile blocks until path exists, the timeout passes, or ctx is
// cancelled. It watches the parent directory for create/write events and
// polls as a fallback, since the file may be created by a process that the
// watcher backend misses. Returns true when the file exists.
func WaitForFile(ctx context.Context, path string, timeout time.Duration) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}

	logger := otelzap.Ctx(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, polling only", zap.Error(err))
		return pollForFile(ctx, path, timeout)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Cannot watch directory, polling only",
			zap.String("dir", filepath.Dir(path)), zap.Error(err))
		return pollForFile(ctx, path, timeout)
	}

	// The file may have appeared between the Stat and the Add.
	if _, err := os.Stat(path); err == nil {
		return true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(500 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case ev := <-watcher.Events:
			if ev.Name == path && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return true
			}
		case err := <-watcher.Errors:
			logger.Warn("watch error", zap.Error(err))
		case <-poll.C:
			if _, err := os.Stat(path); err == nil {
				return true
			}
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func pollForFile(ctx context.Context, path string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(500 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-poll.C:
			if _, err := os.Stat(path); err == nil {
				return true
			}
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
