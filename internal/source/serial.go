package source

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// PortOptions describes the serial line settings. Zero values take defaults.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize validates the options and applies defaults for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch p := strings.TrimSpace(strings.ToUpper(opts.Parity)); p {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// Mode converts the options into the structure serial.Open expects.
func (o PortOptions) Mode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// SerialReader follows a device that prints one numeric reading per line.
// A background goroutine consumes the lines; Read returns the most recent
// value without blocking.
type SerialReader struct {
	port io.ReadCloser

	mu   sync.Mutex
	last float64
	seen bool
	err  error
	done chan struct{}
}

// OpenSerial opens path with opts and starts following it.
func OpenSerial(path string, opts PortOptions) (*SerialReader, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w", path, err)
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	return newSerialReader(port), nil
}

func newSerialReader(port io.ReadCloser) *SerialReader {
	r := &SerialReader{port: port, done: make(chan struct{})}
	go r.follow()
	return r
}

func (r *SerialReader) follow() {
	defer close(r.done)
	sc := bufio.NewScanner(r.port)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := parseReading(line)
		if err != nil {
			slog.Debug("source: skipping serial line", "line", line, "err", err)
			continue
		}
		r.mu.Lock()
		r.last, r.seen = v, true
		r.mu.Unlock()
	}
	r.mu.Lock()
	r.err = sc.Err()
	if r.err == nil {
		r.err = io.EOF
	}
	r.mu.Unlock()
}

// parseReading accepts "12.5" as well as "temp=12.5" style lines.
func parseReading(line string) (float64, error) {
	if i := strings.LastIndexAny(line, "=: \t"); i >= 0 {
		line = line[i+1:]
	}
	return strconv.ParseFloat(line, 64)
}

// Read returns the latest reading, ErrNoSamples before the first one, or the
// error that stopped the port.
func (r *SerialReader) Read() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, fmt.Errorf("serial: %w", r.err)
	}
	if !r.seen {
		return 0, ErrNoSamples
	}
	return r.last, nil
}

// Close closes the port and waits for the follower to exit.
func (r *SerialReader) Close() error {
	err := r.port.Close()
	<-r.done
	return err
}
