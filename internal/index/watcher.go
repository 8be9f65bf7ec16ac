package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"notelink/internal/storage/fs"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch keeps idx in sync with the notes under repoPath until ctx is
// cancelled. New directories are watched as they appear; renames schedule
// a recheck that drops entries whose files are gone.
func Watch(ctx context.Context, idx *Index, repoPath string, logger *slog.Logger, cb EventCallback) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, repoPath); err != nil {
		return err
	}
	logger.Info("watcher started", "root", repoPath)

	var recheckTimer *time.Timer
	var recheckCh <-chan time.Time
	scheduleRecheck := func() {
		if recheckTimer == nil {
			recheckTimer = time.NewTimer(200 * time.Millisecond)
			recheckCh = recheckTimer.C
			return
		}
		recheckTimer.Reset(200 * time.Millisecond)
	}

	notify := func(kind, rel string) {
		logger.Debug("watcher indexed", "path", rel, "op", kind)
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if recheckTimer != nil {
				recheckTimer.Stop()
			}
			logger.Info("watcher stopped")
			return nil

		case <-recheckCh:
			if err := idx.RecheckFromFS(ctx, repoPath); err != nil {
				logger.Warn("watcher recheck failed", "err", err)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, err := fs.RelNotePath(repoPath, ev.Name)
			if err != nil || fs.IsHidden(rel) {
				continue
			}

			if ev.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if err := addDirsRecursive(w, ev.Name); err != nil {
						logger.Warn("watcher add dir failed", "path", rel, "err", err)
					}
					indexNewDir(ctx, idx, repoPath, ev.Name, logger, notify)
					continue
				}
			}
			if !fs.IsNoteFile(rel) {
				continue
			}

			switch {
			case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
				if err := idx.IndexFile(ctx, repoPath, rel); err != nil {
					logger.Warn("watcher index failed", "path", rel, "err", err)
					continue
				}
				kind := "updated"
				if ev.Has(fsnotify.Create) {
					kind = "created"
				}
				notify(kind, rel)

			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				if err := idx.RemoveNote(ctx, rel); err != nil {
					if !errors.Is(err, ErrNoteNotFound) {
						logger.Warn("watcher delete failed", "path", rel, "err", err)
					}
				} else {
					notify("deleted", rel)
				}
				if ev.Has(fsnotify.Rename) {
					scheduleRecheck()
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "err", err)
		}
	}
}

func indexNewDir(ctx context.Context, idx *Index, repoPath, dir string, logger *slog.Logger, notify func(kind, rel string)) {
	err := walkNotes(dir, func(_, full string, _ os.FileInfo) error {
		rel, err := fs.RelNotePath(repoPath, full)
		if err != nil {
			return nil
		}
		if err := idx.IndexFile(ctx, repoPath, rel); err != nil {
			logger.Warn("watcher index failed", "path", rel, "err", err)
			return nil
		}
		notify("created", rel)
		return nil
	})
	if err != nil {
		logger.Warn("watcher walk failed", "dir", dir, "err", err)
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
