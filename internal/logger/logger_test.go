package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetByName(t *testing.T) {
	defer Level.Set(slog.LevelInfo)

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"err":     slog.LevelError,
	}
	for name, want := range cases {
		if !Level.SetByName(name) {
			t.Errorf("SetByName(%q) rejected", name)
		}
		if got := Level.lvl.Level(); got != want {
			t.Errorf("SetByName(%q): got %v, want %v", name, got, want)
		}
	}

	Level.Set(slog.LevelWarn)
	if Level.SetByName("verbose") {
		t.Error("expected unknown level name to be rejected")
	}
	if Level.lvl.Level() != slog.LevelWarn {
		t.Error("unknown level name should not change the level")
	}
}

func TestTextHandlerRespectsLevel(t *testing.T) {
	defer Level.Set(slog.LevelInfo)
	Level.Set(slog.LevelWarn)

	var buf bytes.Buffer
	log := slog.New(newTextHandler(&buf))
	log.Info("hidden")
	log.Warn("source: read failed", "err", "boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "level=warn") {
		t.Errorf("expected lowercase level, got %q", out)
	}
	if !strings.Contains(out, "err=boom") {
		t.Errorf("expected attrs in output, got %q", out)
	}
}

func TestTerminalHandlerWrites(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newTerminalHandler(&buf)).Info("started", "trackers", 3)

	if !strings.Contains(buf.String(), "started") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}
