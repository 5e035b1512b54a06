//go:build linux

package emg

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOReader reads two EMG comparator board outputs from the Linux GPIO
// character device. A high output reads as 1.0 and a low output as 0.0.
type GPIOReader struct {
	chip *gpiocdev.Chip
	ch1  *gpiocdev.Line
	ch2  *gpiocdev.Line
}

// NewGPIOReader requests the two comparator lines on chip as inputs.
func NewGPIOReader(chip string, pinCh1, pinCh2 int) (*GPIOReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	// Pull-down holds an unplugged board at rest.
	l1, err := c.RequestLine(pinCh1, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request ch1 pin %d: %w", pinCh1, err)
	}

	l2, err := c.RequestLine(pinCh2, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		l1.Close()
		c.Close()
		return nil, fmt.Errorf("request ch2 pin %d: %w", pinCh2, err)
	}

	return &GPIOReader{chip: c, ch1: l1, ch2: l2}, nil
}

// Read samples both lines.
func (r *GPIOReader) Read() (float64, float64, error) {
	v1, err := r.ch1.Value()
	if err != nil {
		return 0, 0, fmt.Errorf("read ch1 pin: %w", err)
	}
	v2, err := r.ch2.Value()
	if err != nil {
		return 0, 0, fmt.Errorf("read ch2 pin: %w", err)
	}
	return level(v1), level(v2), nil
}

// Close releases the lines and chip.
func (r *GPIOReader) Close() error {
	var errs []error
	lines := []struct {
		name string
		line *gpiocdev.Line
	}{
		{"ch1", r.ch1},
		{"ch2", r.ch2},
	}
	for _, l := range lines {
		if l.line == nil {
			continue
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
