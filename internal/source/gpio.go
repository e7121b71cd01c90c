//go:build linux

package source

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOReader samples one GPIO line through the Linux character device and
// reports 1 for active, 0 for inactive.
type GPIOReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewGPIOReader requests offset on chip (e.g. "gpiochip0") as an input.
// activeLow inverts the logical level, for inputs wired through an
// optocoupler that pulls the line low when on.
func NewGPIOReader(chip string, offset int, activeLow bool) (*GPIOReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := c.RequestLine(offset, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}

	return &GPIOReader{chip: c, line: line}, nil
}

// Read returns the logical level of the line.
func (r *GPIOReader) Read() (float64, error) {
	v, err := r.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read line: %w", err)
	}
	return float64(v), nil
}

// Close returns the line to input with pull-down, matching the boot default,
// then releases the line and chip.
func (r *GPIOReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
