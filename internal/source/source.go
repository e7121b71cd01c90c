// Package source reads single numeric samples from hardware or the network.
// Real implementations talk to GPIO lines, serial ports and Prometheus
// endpoints; FakeReader allows testing without any of them.
package source

import "errors"

var (
	// ErrNoSamples is returned when a reader has nothing to report yet.
	ErrNoSamples = errors.New("source: no samples")
	// ErrNotSupported is returned for sources unavailable on this platform
	// or metric types that do not carry a single value.
	ErrNotSupported = errors.New("source: not supported")
)

// Reader reads the current value of a signal.
type Reader interface {
	// Read returns the latest sample.
	Read() (float64, error)

	// Close releases the underlying resources.
	Close() error
}
