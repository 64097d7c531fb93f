package ui

import (
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher calls reload when the watched file is rewritten. Bursts of events
// within the debounce window collapse into one reload.
type Watcher struct {
	fw       *fsnotify.Watcher
	path     string
	debounce time.Duration
	reload   func(path string)
	logger   *log.Logger
}

// NewWatcher watches path. The parent directory is watched so editors that
// replace the file by rename are still seen.
func NewWatcher(path string, debounce time.Duration, logger *log.Logger, reload func(path string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		fw:       fw,
		path:     abs,
		debounce: debounce,
		reload:   reload,
		logger:   logger.WithPrefix("watch"),
	}, nil
}

// Run delivers reloads until Close. Reloads run on the caller's goroutine,
// one at a time.
func (w *Watcher) Run() {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("file changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Info("reloading", "path", w.path)
			w.reload(w.path)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// Close stops watching and ends Run
func (w *Watcher) Close() error {
	return w.fw.Close()
}
