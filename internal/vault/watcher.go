package vault

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runevault/ansuz/internal/apperr"
)

// RescanCallback is called after a watcher-driven rescan completes.
type RescanCallback func(snap *Snapshot)

// Watch starts an fsnotify watcher on the vault root and triggers a
// debounced full rescan on any relevant change, until ctx is cancelled.
// There is no incremental invalidation: every change, however small,
// leads to a complete rebuild-and-swap, so a burst of events coalesces
// into one scan. New directories created at runtime are added to the
// watch list.
func Watch(ctx context.Context, ix *Index, vaultRoot string, exclude []string, logger *slog.Logger, cb RescanCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	skip := make(map[string]struct{}, len(exclude))
	for _, d := range exclude {
		skip[d] = struct{}{}
	}

	if err := addDirsRecursive(w, vaultRoot, skip); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	const debounce = 300 * time.Millisecond
	var rescanTimer *time.Timer
	var rescanCh <-chan time.Time

	scheduleRescan := func() {
		if rescanTimer == nil {
			rescanTimer = time.NewTimer(debounce)
			rescanCh = rescanTimer.C
		} else {
			rescanTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rescanTimer != nil {
				rescanTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rescanCh:
			snap, scanErr := ix.Scan(ctx)
			if scanErr != nil {
				if errors.Is(scanErr, apperr.ErrScanInProgress) {
					// Another caller is already rebuilding; try again shortly.
					scheduleRescan()
					continue
				}
				logger.Warn("watcher: rescan failed", slog.String("error", scanErr.Error()))
				continue
			}
			logger.Debug("watcher: rescan complete", slog.Int("notes", len(snap.Notes)))
			if cb != nil {
				cb(snap)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if excluded(ev.Name, skip) {
				continue
			}

			// New directories join the watch list immediately.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, skip); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					scheduleRescan()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleRescan()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// excluded reports whether any path element is on the skip list.
func excluded(path string, skip map[string]struct{}) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if _, ok := skip[part]; ok {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-excluded subdirectories to
// the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, skip map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if _, ok := skip[d.Name()]; ok {
				return fs.SkipDir
			}
		}
		return w.Add(path)
	})
}
