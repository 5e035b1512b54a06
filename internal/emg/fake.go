package emg

import "errors"

// Reading is a single two-channel sample.
type Reading struct {
	Ch1, Ch2 float64
}

// Fake is a test double that returns scripted readings.
type Fake struct {
	// Readings contains values to return. Each call to Read consumes the next
	// reading; once exhausted the last one repeats.
	Readings []Reading

	index int

	// Reads counts calls to Read, including failed ones.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read
	ReadError error

	// CloseError, if set, will be returned by Close
	CloseError error
}

// NewFake creates a Fake with the given readings.
func NewFake(readings ...Reading) *Fake {
	return &Fake{Readings: readings}
}

// Read returns the next scripted reading.
func (f *Fake) Read() (float64, float64, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, 0, f.ReadError
	}
	if len(f.Readings) == 0 {
		return 0, 0, errors.New("no readings configured")
	}

	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r.Ch1, r.Ch2, nil
}

// Close marks the source as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return f.CloseError
}

// Reset rewinds to the first reading.
func (f *Fake) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}
