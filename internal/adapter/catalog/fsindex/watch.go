package fsindex

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports music files that are created, written, removed or renamed
// below any root. Folders created while watching are watched too.
// It blocks until ctx is done and returns ctx.Err().
func (i *Index) Watch(ctx context.Context, onChange func(paths []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range i.Roots() {
		i.watchTree(watcher, root)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					i.watchTree(watcher, event.Name)
					continue
				}
			}

			if !IsMusic(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				onChange([]string{event.Name})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			i.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

// watchTree adds root and every folder below it to watcher.
func (i *Index) watchTree(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			i.logger.Debug("not watching unreadable entry", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			i.logger.Warn("failed to watch folder", slog.String("path", path), slog.Any("error", err))
		}
		return nil
	})
}
