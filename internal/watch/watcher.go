// Package watch reloads the board when its backing table file is edited
// outside the process.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Table is the watched file.
type Table interface {
	Path() string
	Checksum() (string, error)
	// OwnWrite reports whether sum matches contents this process wrote.
	OwnWrite(sum string) bool
}

// ChangeFunc is called after the table's contents changed on disk.
type ChangeFunc func(ctx context.Context)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before checking the file.
const DefaultDebounce = 200 * time.Millisecond

// Watch observes the directory holding the table, so that editors which
// replace the file by rename are seen too, and calls onChange once per
// settled burst of events that leaves the file with new contents. Writes
// made through the table itself are ignored. It returns when ctx is
// cancelled.
func Watch(ctx context.Context, table Table, debounce time.Duration, logger *slog.Logger, onChange ChangeFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(table.Path())
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	last, err := table.Checksum()
	if err != nil {
		logger.Warn("watcher: initial checksum failed", slog.String("path", target), slog.String("error", err.Error()))
	}
	logger.Info("watcher: started", slog.String("path", target))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			sum, err := table.Checksum()
			if err != nil {
				// Mid-rename; the Create for the new file reschedules.
				logger.Debug("watcher: checksum failed", slog.String("error", err.Error()))
				continue
			}
			if sum == last {
				continue
			}
			last = sum
			if table.OwnWrite(sum) {
				logger.Debug("watcher: own write ignored", slog.String("path", target))
				continue
			}
			logger.Info("watcher: table changed", slog.String("path", target))
			onChange(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
