//go:build !linux

package source

import "fmt"

// GPIOReader is not available on non-Linux platforms.
type GPIOReader struct{}

// NewGPIOReader returns ErrNotSupported on non-Linux platforms.
func NewGPIOReader(chip string, offset int, activeLow bool) (*GPIOReader, error) {
	return nil, fmt.Errorf("gpio requires linux: %w", ErrNotSupported)
}

func (r *GPIOReader) Read() (float64, error) {
	return 0, ErrNotSupported
}

func (r *GPIOReader) Close() error {
	return nil
}
