package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher re-applies the catalog seed when the seed file changes on disk.
type Watcher struct {
	seeder   *Seeder
	path     string
	debounce time.Duration
	log      *logrus.Logger
}

// NewWatcher creates a watcher for the seed file at path
func NewWatcher(seeder *Seeder, path string, log *logrus.Logger) *Watcher {
	if log == nil {
		log = logrus.New()
	}
	return &Watcher{
		seeder:   seeder,
		path:     path,
		debounce: 500 * time.Millisecond,
		log:      log,
	}
}

// Run watches the seed file until ctx is cancelled. Editors replace files
// rather than writing in place, so the parent directory is watched and
// events are filtered by name.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	w.log.WithField("path", w.path).Info("Watching catalog seed file")

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.seeder.Apply(ctx, w.path); err != nil {
				w.log.WithError(err).Warn("Failed to re-apply catalog seed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Seed watcher error")
		}
	}
}
