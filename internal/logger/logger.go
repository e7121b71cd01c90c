// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level is the shared level of every handler built here.
var Level = &level{lvl: &slog.LevelVar{}}

type level struct {
	lvl *slog.LevelVar
}

func (l *level) Enabled(level slog.Level) bool {
	return level >= l.lvl.Level()
}

func (l *level) Set(level slog.Level) {
	l.lvl.Set(level)
}

// SetByName accepts debug, info, warn(ing) and err(or). Unknown names leave
// the level unchanged and return false.
func (l *level) SetByName(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		l.lvl.Set(slog.LevelDebug)
	case "info", "":
		l.lvl.Set(slog.LevelInfo)
	case "warn", "warning":
		l.lvl.Set(slog.LevelWarn)
	case "err", "error":
		l.lvl.Set(slog.LevelError)
	default:
		return false
	}
	return true
}

// Init installs the default logger: colored output on a terminal, plain
// key=value text otherwise.
func Init() {
	var h slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		h = newTerminalHandler(os.Stderr)
	} else {
		h = newTextHandler(os.Stderr)
	}
	slog.SetDefault(slog.New(h))
}

func newTextHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: Level.lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				return slog.String(a.Key, strings.ToLower(a.Value.String()))
			}
			return a
		},
	})
}

func newTerminalHandler(w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		NoColor:    runtime.GOOS == "windows",
		Level:      Level.lvl,
		TimeFormat: "15:04:05.000",
	})
}
