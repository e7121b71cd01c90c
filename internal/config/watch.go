package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the file must stay quiet before it is re-read.
// os.WriteFile and most editors truncate before writing, so a single save
// arrives as several events.
const settleDelay = 250 * time.Millisecond

// Watch reloads path after it changes and passes each valid result to
// onChange. Bursts of events are coalesced, content identical to the last
// applied file is skipped and an empty or invalid file keeps the previous
// config. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return newFileWatch(path, settleDelay, onChange).run(ctx, nil)
}

type fileWatch struct {
	path     string
	settle   time.Duration
	onChange func(*Config)

	// applied is the content behind the config currently in use.
	applied []byte
}

func newFileWatch(path string, settle time.Duration, onChange func(*Config)) *fileWatch {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &fileWatch{path: filepath.Clean(path), settle: settle, onChange: onChange}
}

// run watches the parent directory so atomic renames keep being seen.
// ready, if set, is called once events are being delivered.
func (w *fileWatch) run(ctx context.Context, ready func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: start watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	w.applied, _ = os.ReadFile(w.path)

	slog.Info("config: watching for changes", "path", w.path, "settle", w.settle)
	if ready != nil {
		ready()
	}

	var (
		timer   *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			settled = timer.C

		case <-settled:
			settled = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

func (w *fileWatch) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Error("config: reload failed, keeping previous config", "path", w.path, "err", err)
		return
	}
	if bytes.Equal(data, w.applied) {
		slog.Debug("config: unchanged", "path", w.path)
		return
	}

	cfg, err := Parse(data)
	switch {
	case errors.Is(err, ErrEmpty):
		slog.Warn("config: file is empty, keeping previous config", "path", w.path)
		return
	case err != nil:
		slog.Error("config: reload failed, keeping previous config", "path", w.path, "err", err)
		return
	}

	w.applied = data
	slog.Info("config: reloaded", "path", w.path)
	w.onChange(cfg)
}
