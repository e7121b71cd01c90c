// Package config loads the sigtrack daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/sigtrack/internal/logic"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultFrameSize    = 10
	DefaultHeartbeat    = 15 * time.Minute
	DefaultBroker       = "tcp://localhost:1883"
	DefaultTopic        = "sigtrack"
	DefaultBufferSize   = 1000
	DefaultHTTPAddr     = ":8080"
)

// Config is the top-level daemon configuration.
type Config struct {
	Source    Source        `yaml:"source"`
	Trackers  []logic.Spec  `yaml:"trackers"`
	MQTT      MQTT          `yaml:"mqtt"`
	HTTP      string        `yaml:"http"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	LogLevel  string        `yaml:"log_level"`
}

// Source selects and configures the sample reader.
type Source struct {
	// Type is one of gpio, serial, prometheus or fake.
	Type         string        `yaml:"type"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// FrameSize is the number of readings delivered to the trackers at once.
	FrameSize int `yaml:"frame_size"`
	// Unit is the time basis of tracker windows and timestamps (s or ms).
	Unit        string     `yaml:"unit"`
	Description string     `yaml:"description"`
	GPIO        GPIO       `yaml:"gpio"`
	Serial      Serial     `yaml:"serial"`
	Prometheus  Prometheus `yaml:"prometheus"`
	Fake        Fake       `yaml:"fake"`
}

type GPIO struct {
	Chip      string `yaml:"chip"`
	Line      int    `yaml:"line"`
	ActiveLow bool   `yaml:"active_low"`
}

type Serial struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

type Prometheus struct {
	Endpoint string            `yaml:"endpoint"`
	Metric   string            `yaml:"metric"`
	Labels   map[string]string `yaml:"labels"`
}

type Fake struct {
	Values []float64 `yaml:"values"`
}

type MQTT struct {
	Broker string `yaml:"broker"`
	// Topic is the prefix; events go to <topic>/events, lifecycle to <topic>/system.
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	// BufferSize caps messages held while disconnected.
	BufferSize int `yaml:"buffer_size"`
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// ErrEmpty is returned for a document with no content. A file caught
// between truncate and write reads this way, and applying defaults to it
// would drop every tracker.
var ErrEmpty = errors.New("config: empty document")

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if blank(&doc) {
		return nil, ErrEmpty
	}
	cfg := Defaults()
	if err := doc.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	for i := range cfg.Trackers {
		k := logic.Kind(strings.ToLower(strings.TrimSpace(string(cfg.Trackers[i].Kind))))
		cfg.Trackers[i].Kind = k.Canonical()
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// blank reports whether doc holds nothing but comments or a null.
func blank(doc *yaml.Node) bool {
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return true
	}
	root := doc.Content[0]
	return root.Kind == yaml.ScalarNode && root.Tag == "!!null"
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Source: Source{
			Type:         "gpio",
			PollInterval: DefaultPollInterval,
			FrameSize:    DefaultFrameSize,
			Unit:         "ms",
			GPIO:         GPIO{Chip: "gpiochip0", Line: 26},
		},
		MQTT: MQTT{
			Broker:     DefaultBroker,
			Topic:      DefaultTopic,
			BufferSize: DefaultBufferSize,
		},
		HTTP:      DefaultHTTPAddr,
		Heartbeat: DefaultHeartbeat,
		LogLevel:  "info",
	}
}

func validate(cfg *Config) error {
	src := cfg.Source
	switch src.Type {
	case "gpio":
		if src.GPIO.Line < 0 {
			return fmt.Errorf("source.gpio.line must not be negative")
		}
	case "serial":
		if src.Serial.Port == "" {
			return fmt.Errorf("source.serial.port is required")
		}
	case "prometheus":
		if src.Prometheus.Endpoint == "" || src.Prometheus.Metric == "" {
			return fmt.Errorf("source.prometheus endpoint and metric are required")
		}
	case "fake":
		if len(src.Fake.Values) == 0 {
			return fmt.Errorf("source.fake.values must not be empty")
		}
	default:
		return fmt.Errorf("source.type: unknown type %q", src.Type)
	}
	if src.PollInterval <= 0 {
		return fmt.Errorf("source.poll_interval must be positive")
	}
	if src.FrameSize <= 0 {
		return fmt.Errorf("source.frame_size must be positive")
	}
	switch strings.ToLower(src.Unit) {
	case "s", "ms":
	default:
		return fmt.Errorf("source.unit: must be s or ms, got %q", src.Unit)
	}
	if cfg.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative")
	}
	if cfg.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic is required")
	}
	if cfg.MQTT.BufferSize < 0 {
		return fmt.Errorf("mqtt.buffer_size must not be negative")
	}

	seen := make(map[string]bool, len(cfg.Trackers))
	for i, tr := range cfg.Trackers {
		if seen[tr.Name] && tr.Name != "" {
			return fmt.Errorf("trackers[%d]: duplicate name %q", i, tr.Name)
		}
		seen[tr.Name] = true
		if err := tr.Validate(); err != nil {
			return fmt.Errorf("trackers[%d] %q: %w", i, tr.Name, err)
		}
	}
	return nil
}
