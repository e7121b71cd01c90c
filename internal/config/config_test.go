package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/sigtrack/internal/logic"
)

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigtrack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoadValid(t *testing.T) {
	cfg := loadFromString(t, `
source:
  type: serial
  poll_interval: 50ms
  frame_size: 4
  unit: s
  serial:
    port: /dev/ttyUSB0
    baud_rate: 9600
trackers:
  - name: temp-change
    kind: change_forced
    force_interval: 60
  - name: temp-avg
    kind: average
    window: 10
  - name: comfort
    kind: range
    min: 18
    max: 24
    enter_window: 30
    leave_window: 60
mqtt:
  broker: tcp://broker:1883
  topic: home/temp
http: ":9090"
heartbeat: 1m
log_level: debug
`)

	if cfg.Source.Type != "serial" {
		t.Errorf("source.type: got %q", cfg.Source.Type)
	}
	if cfg.Source.PollInterval != 50*time.Millisecond {
		t.Errorf("poll_interval: got %v", cfg.Source.PollInterval)
	}
	if cfg.Source.Serial.BaudRate != 9600 {
		t.Errorf("baud_rate: got %d", cfg.Source.Serial.BaudRate)
	}
	if len(cfg.Trackers) != 3 {
		t.Fatalf("trackers: got %d, want 3", len(cfg.Trackers))
	}
	if cfg.Trackers[2].LeaveWindow != 60 {
		t.Errorf("leave_window: got %v", cfg.Trackers[2].LeaveWindow)
	}
	if cfg.MQTT.Topic != "home/temp" {
		t.Errorf("mqtt.topic: got %q", cfg.MQTT.Topic)
	}
	if cfg.MQTT.BufferSize != DefaultBufferSize {
		t.Errorf("mqtt.buffer_size default: got %d", cfg.MQTT.BufferSize)
	}
	if cfg.HTTP != ":9090" {
		t.Errorf("http: got %q", cfg.HTTP)
	}
	if cfg.Heartbeat != time.Minute {
		t.Errorf("heartbeat: got %v", cfg.Heartbeat)
	}
}

func TestDefaultsAreValid(t *testing.T) {
	if err := validate(Defaults()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestParseKindAliases(t *testing.T) {
	cfg, err := Parse([]byte(`
source: {type: fake, fake: {values: [1]}}
trackers:
  - {name: a, kind: RMSE, window: 5}
  - {name: b, kind: sd, window: 5}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Trackers[0].Kind != logic.KindStdDev {
		t.Errorf("rmse alias: got %q", cfg.Trackers[0].Kind)
	}
	if cfg.Trackers[1].Kind != logic.KindMeanAbsDev {
		t.Errorf("sd alias: got %q", cfg.Trackers[1].Kind)
	}
}

func TestParseUnknownKind(t *testing.T) {
	_, err := Parse([]byte(`
source: {type: fake, fake: {values: [1]}}
trackers:
  - {name: a, kind: median}
`))
	if !errors.Is(err, logic.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown source":       `source: {type: carrier-pigeon}`,
		"serial without port":  `source: {type: serial}`,
		"prometheus no metric": `source: {type: prometheus, prometheus: {endpoint: "http://x"}}`,
		"empty fake":           `source: {type: fake}`,
		"zero poll":            `source: {type: fake, poll_interval: 0s, fake: {values: [1]}}`,
		"bad unit":             `source: {type: fake, unit: h, fake: {values: [1]}}`,
		"missing name": `
source: {type: fake, fake: {values: [1]}}
trackers: [{kind: change}]`,
		"duplicate name": `
source: {type: fake, fake: {values: [1]}}
trackers: [{name: a, kind: change}, {name: a, kind: max}]`,
		"forced without interval": `
source: {type: fake, fake: {values: [1]}}
trackers: [{name: a, kind: change_forced}]`,
		"buffered without capacity": `
source: {type: fake, fake: {values: [1]}}
trackers: [{name: a, kind: buffered}]`,
		"inverted range": `
source: {type: fake, fake: {values: [1]}}
trackers: [{name: a, kind: range, min: 5, max: 1}]`,
		"negative window": `
source: {type: fake, fake: {values: [1]}}
trackers: [{name: a, kind: max, window: -1}]`,
		"bad yaml": `source: [`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	for name, content := range map[string]string{
		"nil":          "",
		"whitespace":   "  \n\n",
		"comment only": "# trackers go here\n",
		"null":         "~\n",
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(content))
			if !errors.Is(err, ErrEmpty) {
				t.Fatalf("got %v, %v; want ErrEmpty", cfg, err)
			}
		})
	}
}

const watchedConfig = `
source: {type: fake, fake: {values: [1]}}
trackers: [{name: level, kind: change}]
`

// startWatch runs a watch on a fresh file holding initial and returns the
// path and the stream of reloads once events are being delivered.
func startWatch(t *testing.T, initial string) (string, <-chan *Config) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigtrack.yaml")
	writeFile(t, path, initial)

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *Config, 8)
	ready := make(chan struct{})
	done := make(chan error, 1)
	w := newFileWatch(path, 50*time.Millisecond, func(c *Config) { reloaded <- c })
	go func() { done <- w.run(ctx, func() { close(ready) }) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watch returned %v", err)
		}
	})

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("watch failed to start: %v", err)
	}
	return path, reloaded
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func nextReload(t *testing.T, reloaded <-chan *Config) *Config {
	t.Helper()
	select {
	case cfg := <-reloaded:
		return cfg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
		return nil
	}
}

func noReload(t *testing.T, reloaded <-chan *Config) {
	t.Helper()
	select {
	case cfg := <-reloaded:
		t.Fatalf("unexpected reload: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchReloads(t *testing.T) {
	path, reloaded := startWatch(t, watchedConfig)

	writeFile(t, path, watchedConfig+"heartbeat: 2m\n")

	cfg := nextReload(t, reloaded)
	if cfg.Heartbeat != 2*time.Minute {
		t.Errorf("heartbeat: got %v, want 2m", cfg.Heartbeat)
	}
	if len(cfg.Trackers) != 1 || cfg.Trackers[0].Name != "level" {
		t.Errorf("trackers: got %+v", cfg.Trackers)
	}
	noReload(t, reloaded)
}

func TestWatchKeepsConfigWhileFileIsEmpty(t *testing.T) {
	path, reloaded := startWatch(t, watchedConfig)

	writeFile(t, path, "")
	noReload(t, reloaded)

	writeFile(t, path, watchedConfig+"heartbeat: 3m\n")
	cfg := nextReload(t, reloaded)
	if cfg.Source.Type != "fake" || len(cfg.Trackers) != 1 {
		t.Errorf("reload after truncate: got source %q, %d trackers", cfg.Source.Type, len(cfg.Trackers))
	}
	if cfg.Heartbeat != 3*time.Minute {
		t.Errorf("heartbeat: got %v, want 3m", cfg.Heartbeat)
	}
	noReload(t, reloaded)
}

func TestWatchCoalescesBurstOfWrites(t *testing.T) {
	path, reloaded := startWatch(t, watchedConfig)

	for _, hb := range []string{"1m", "2m", "4m"} {
		writeFile(t, path, watchedConfig+"heartbeat: "+hb+"\n")
	}

	cfg := nextReload(t, reloaded)
	if cfg.Heartbeat != 4*time.Minute {
		t.Errorf("heartbeat: got %v, want the last write (4m)", cfg.Heartbeat)
	}
	noReload(t, reloaded)
}

func TestWatchSkipsUnchangedContent(t *testing.T) {
	path, reloaded := startWatch(t, watchedConfig)

	writeFile(t, path, watchedConfig)
	noReload(t, reloaded)
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	path, reloaded := startWatch(t, watchedConfig)

	writeFile(t, filepath.Join(filepath.Dir(path), "other.yaml"), watchedConfig+"heartbeat: 1m\n")
	noReload(t, reloaded)
}
