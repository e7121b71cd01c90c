// Command sigtrack polls a signal source, runs the configured trackers over
// frames of readings and publishes their reports to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/sigtrack/internal/config"
	"github.com/sweeney/sigtrack/internal/logger"
	"github.com/sweeney/sigtrack/internal/logic"
	"github.com/sweeney/sigtrack/internal/mqtt"
	"github.com/sweeney/sigtrack/internal/source"
	"github.com/sweeney/sigtrack/internal/status"
	"github.com/sweeney/sigtrack/internal/stream"
	"github.com/sweeney/sigtrack/internal/web"
	"github.com/sweeney/sigtrack/pkg/tracker"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config (built-in defaults when empty)")
	printState := flag.Bool("print-state", false, "Print one reading and exit")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	broker := flag.String("broker", "", "MQTT broker address override")
	httpAddr := flag.String("http", "", `HTTP status address override ("off" disables)`)

	flag.Parse()
	logger.Init()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *broker, *httpAddr, *logLevel)
	if !logger.Level.SetByName(cfg.LogLevel) {
		slog.Warn("unknown log level, keeping info", "level", cfg.LogLevel)
	}

	if err := run(cfg, *configPath, *printState); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

// applyOverrides lets flags win over the file.
func applyOverrides(cfg *config.Config, broker, httpAddr, logLevel string) {
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP = ""
	default:
		cfg.HTTP = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

func openReader(src config.Source) (source.Reader, error) {
	switch src.Type {
	case "gpio":
		r, err := source.NewGPIOReader(src.GPIO.Chip, src.GPIO.Line, src.GPIO.ActiveLow)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "serial":
		r, err := source.OpenSerial(src.Serial.Port, source.PortOptions{
			BaudRate: src.Serial.BaudRate,
			DataBits: src.Serial.DataBits,
			StopBits: src.Serial.StopBits,
			Parity:   src.Serial.Parity,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case "prometheus":
		return source.NewScrapeReader(src.Prometheus.Endpoint, src.Prometheus.Metric, src.Prometheus.Labels), nil
	case "fake":
		return source.NewFakeReader(src.Fake.Values), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
}

func describe(src config.Source) string {
	if src.Description != "" {
		return src.Description
	}
	return src.Type
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		SourceType:  cfg.Source.Type,
		Source:      cfg.Source.Description,
		Unit:        cfg.Source.Unit,
		PollMs:      cfg.Source.PollInterval.Milliseconds(),
		FrameSize:   cfg.Source.FrameSize,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		Topic:       cfg.MQTT.Topic,
		HTTPAddr:    cfg.HTTP,
	}
}

func run(cfg *config.Config, configPath string, printState bool) error {
	reader, err := openReader(cfg.Source)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	defer reader.Close()

	// Print state mode
	if printState {
		v, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		fmt.Printf("%s: %g\n", describe(cfg.Source), v)
		return nil
	}

	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.MQTT.ClientID, cfg.MQTT.BufferSize)
	defer publisher.Close()

	st := status.NewTracker(time.Now(), statusConfig(cfg))

	ticker := time.NewTicker(cfg.Source.PollInterval)
	defer ticker.Stop()

	d, err := newDaemon(cfg, reader, publisher, publisher, st, time.Now)
	if err != nil {
		return err
	}
	d.setPoll = ticker.Reset

	// Publish startup event with full status snapshot
	snap := st.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		slog.Warn("failed to publish startup event", "err", err)
	} else {
		slog.Info("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, st)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.HTTP)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan *config.Config)
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(c *config.Config) {
				select {
				case reloads <- c:
				case <-ctx.Done():
				}
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	slog.Info("started",
		"source", describe(cfg.Source),
		"poll", cfg.Source.PollInterval,
		"frame_size", cfg.Source.FrameSize,
		"trackers", len(cfg.Trackers),
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(ticker.C, sigCh, reloads)
}

// daemon owns the state the run loop mutates. Everything runs on the loop's
// goroutine: frames are delivered synchronously from stream.Push.
type daemon struct {
	cfg       *config.Config
	reader    source.Reader
	publisher mqtt.Publisher
	tracker   *status.Tracker
	now       func() time.Time

	stream      *stream.Stream
	unsubscribe func()
	pipeline    *logic.Pipeline

	// setPoll changes the tick interval after a reload; nil in tests.
	setPoll func(time.Duration)
}

func newDaemon(cfg *config.Config, reader source.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, st *status.Tracker, now func() time.Time) (*daemon, error) {
	d := &daemon{
		reader:    reader,
		publisher: publisher,
		tracker:   st,
		now:       now,
	}
	if st != nil && mqttStatus != nil {
		st.SetLink(mqttStatus)
	}
	if err := d.apply(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// apply builds a stream and pipeline for cfg, replacing the current ones.
// Event counts and the heartbeat schedule survive; tracker state restarts.
func (d *daemon) apply(cfg *config.Config) error {
	unit, err := tracker.ParseUnit(cfg.Source.Unit)
	if err != nil {
		return fmt.Errorf("source.unit: %w", err)
	}
	p, err := logic.NewPipeline(cfg.Trackers, unit, d.now())
	if err != nil {
		return fmt.Errorf("build trackers: %w", err)
	}
	p.Inherit(d.pipeline)

	s := stream.New(describe(cfg.Source), cfg.Source.FrameSize, cfg.Source.PollInterval, unit)
	s.OnActiveChanged(func(active bool) {
		slog.Info("source activity changed", "source", s.Description(), "active", active)
	})

	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.cfg = cfg
	d.pipeline = p
	d.stream = s
	d.unsubscribe = s.Subscribe(d.onFrame)
	if d.tracker != nil {
		d.tracker.SetSource(s)
		d.tracker.SetConfig(statusConfig(cfg))
		d.updateStatus()
	}
	return nil
}

func (d *daemon) onFrame(f stream.Frame) {
	for _, event := range d.pipeline.Process(f) {
		slog.Info("event", "tracker", event.Tracker, "type", event.Type, "value", event.Value)
		if err := d.publisher.Publish(event); err != nil {
			slog.Warn("publish error", "err", err)
			// Don't crash on publish failure
		}
	}
}

func (d *daemon) updateStatus() {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(d.pipeline.States(), d.pipeline.Ready(), d.pipeline.Frames(), d.pipeline.Counts())
}

// systemEvent wraps a full status snapshot in a lifecycle event.
func (d *daemon) systemEvent(at time.Time, name, reason string, retained bool) mqtt.SystemEvent {
	event := mqtt.SystemEvent{
		Timestamp: at,
		Event:     name,
		Reason:    reason,
		Retained:  retained,
	}
	if d.tracker != nil {
		d.updateStatus()
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), name, reason)
	}
	return event
}

func (d *daemon) reload(cfg *config.Config) {
	if sourceChanged(d.cfg, cfg) {
		slog.Warn("source or mqtt settings changed; restart to apply them")
	}
	// Only the tracker-facing parts of the new file are applied.
	next := *d.cfg
	next.Source.PollInterval = cfg.Source.PollInterval
	next.Source.FrameSize = cfg.Source.FrameSize
	next.Source.Unit = cfg.Source.Unit
	next.Source.Description = cfg.Source.Description
	next.Trackers = cfg.Trackers
	next.Heartbeat = cfg.Heartbeat
	next.LogLevel = cfg.LogLevel

	if err := d.apply(&next); err != nil {
		slog.Error("reload rejected", "err", err)
		return
	}
	if !logger.Level.SetByName(next.LogLevel) {
		slog.Warn("unknown log level", "level", next.LogLevel)
	}
	if d.setPoll != nil {
		d.setPoll(next.Source.PollInterval)
	}
	slog.Info("reloaded", "trackers", len(next.Trackers))

	if err := d.publisher.PublishSystem(d.systemEvent(d.now(), "RELOAD", "", false)); err != nil {
		slog.Warn("reload publish error", "err", err)
	}
}

// sourceChanged reports whether cfg differs from cur in settings that need a
// new reader or broker connection.
func sourceChanged(cur, cfg *config.Config) bool {
	return cur.Source.Type != cfg.Source.Type ||
		cur.Source.GPIO != cfg.Source.GPIO ||
		cur.Source.Serial != cfg.Source.Serial ||
		cur.Source.Prometheus.Endpoint != cfg.Source.Prometheus.Endpoint ||
		cur.Source.Prometheus.Metric != cfg.Source.Prometheus.Metric ||
		cur.MQTT != cfg.MQTT ||
		cur.HTTP != cfg.HTTP
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func (d *daemon) runLoop(tick <-chan time.Time, sig <-chan os.Signal, reloads <-chan *config.Config) error {
	defer func() { d.unsubscribe() }()

	for {
		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", s)
			event := d.systemEvent(d.now(), "SHUTDOWN", signalName(s), true)
			if err := d.publisher.PublishSystem(event); err != nil {
				slog.Warn("failed to publish shutdown event", "err", err)
			} else {
				slog.Info("published shutdown event")
			}
			return nil

		case cfg := <-reloads:
			d.reload(cfg)

		case <-tick:
			t := d.now()
			v, err := d.reader.Read()
			if err != nil {
				if errors.Is(err, source.ErrNoSamples) {
					slog.Debug("no reading yet", "err", err)
				} else {
					slog.Warn("source read error", "err", err)
				}
				d.stream.SetActive(false)
				continue
			}
			d.stream.SetActive(true)
			d.stream.Push(v, t)

			// Check for heartbeat
			if hb := d.pipeline.CheckHeartbeat(t, d.cfg.Heartbeat); hb != nil {
				slog.Info("heartbeat", "uptime", hb.Uptime, "events", hb.Counts.Total())
				event := d.systemEvent(hb.Timestamp, "HEARTBEAT", "", false)
				if err := d.publisher.PublishSystem(event); err != nil {
					slog.Warn("heartbeat publish error", "err", err)
				}
			}

			// Update status tracker for HTTP consumers
			d.updateStatus()
		}
	}
}
