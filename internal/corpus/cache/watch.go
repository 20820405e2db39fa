package cache

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the cache whenever a file or directory under the root
// changes. It blocks until ctx is cancelled. Directories created after Watch
// starts are added to the watch set.
func (c *Cache) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := addTree(w, c.root); err != nil {
		return fmt.Errorf("watching %s: %w", c.root, err)
	}
	c.logger.Info("watching corpus for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				_ = addTree(w, event.Name)
			}
			c.logger.Debug("corpus change observed", "path", event.Name, "op", event.Op.String())
			c.Invalidate()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("corpus watcher error", "error", err)
		}
	}
}

// addTree adds path and every directory below it. Non-directories are
// ignored.
func addTree(w *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(p)
	})
}
