//go:build !linux

package emg

import "errors"

// GPIOReader is not available on non-Linux platforms.
type GPIOReader struct{}

// NewGPIOReader returns an error on non-Linux platforms.
func NewGPIOReader(chip string, pinCh1, pinCh2 int) (*GPIOReader, error) {
	return nil, errors.New("emg: gpio not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *GPIOReader) Read() (float64, float64, error) {
	return 0, 0, errors.New("emg: gpio not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *GPIOReader) Close() error {
	return nil
}
