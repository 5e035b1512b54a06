// Package emg provides two-channel EMG signal sources.
// The GPIO implementation reads comparator boards on Linux; the static,
// scripted and fake implementations allow running and testing without hardware.
package emg

import (
	"errors"
	"fmt"
	"time"
)

// Source yields one two-channel reading per call.
type Source interface {
	// Read returns the current normalized channel values. Values are nominally
	// in [-1, 1] but are not clamped.
	Read() (ch1, ch2 float64, err error)

	// Close releases source resources.
	Close() error
}

// Static returns the same reading on every call.
type Static struct {
	Ch1, Ch2 float64
}

// Read returns the configured values.
func (s Static) Read() (float64, float64, error) {
	return s.Ch1, s.Ch2, nil
}

// Close is a no-op.
func (s Static) Close() error {
	return nil
}

// Segment is a reading held for a duration.
type Segment struct {
	Ch1, Ch2 float64
	Duration time.Duration
}

// Scripted plays a time-indexed sequence of segments.
// Elapsed time is measured from construction with the injected clock.
type Scripted struct {
	segments []Segment
	repeat   bool
	now      func() time.Time
	start    time.Time
	total    time.Duration
}

// NewScripted creates a scripted source. With repeat set the sequence wraps
// by its total duration; otherwise the last segment is held.
func NewScripted(segments []Segment, repeat bool, now func() time.Time) (*Scripted, error) {
	if len(segments) == 0 {
		return nil, errors.New("emg: scripted source needs at least one segment")
	}
	if now == nil {
		now = time.Now
	}

	var total time.Duration
	for i, seg := range segments {
		if seg.Duration < 0 {
			return nil, fmt.Errorf("emg: segment %d has negative duration", i)
		}
		total += seg.Duration
	}

	return &Scripted{
		segments: segments,
		repeat:   repeat,
		now:      now,
		start:    now(),
		total:    total,
	}, nil
}

// Read returns the segment active at the current elapsed time.
func (s *Scripted) Read() (float64, float64, error) {
	seg := s.At(s.now().Sub(s.start))
	return seg.Ch1, seg.Ch2, nil
}

// At returns the segment active after elapsed time.
func (s *Scripted) At(elapsed time.Duration) Segment {
	if elapsed < 0 {
		elapsed = 0
	}
	if s.repeat && s.total > 0 {
		elapsed %= s.total
	}

	var end time.Duration
	for _, seg := range s.segments {
		end += seg.Duration
		if elapsed < end {
			return seg
		}
	}
	return s.segments[len(s.segments)-1]
}

// Total returns the duration of one pass through the sequence.
func (s *Scripted) Total() time.Duration {
	return s.total
}

// Close is a no-op.
func (s *Scripted) Close() error {
	return nil
}

// Demo readings for a fully activated and a resting channel.
const (
	demoHigh = 0.9
	demoRest = 0.0
)

// DemoSegments returns one pass of the demo gesture sequence. Played on repeat
// with default thresholds it walks the workflow through a full cycle in three
// passes, since each state only reacts to the gesture it waits for.
func DemoSegments() []Segment {
	ms := time.Millisecond
	return []Segment{
		{demoRest, demoRest, 500 * ms},
		{demoHigh, demoRest, 200 * ms}, // start
		{demoRest, demoRest, 200 * ms},
		{demoHigh, demoRest, 200 * ms}, // next bin
		{demoRest, demoRest, 400 * ms},
		{demoRest, demoHigh, 300 * ms}, // select bin
		{demoRest, demoRest, 300 * ms},
		{demoHigh, demoHigh, 300 * ms}, // door
		{demoRest, demoRest, 300 * ms},
		{demoRest, demoHigh, 300 * ms}, // grip or release
		{demoRest, demoRest, 500 * ms},
	}
}

// DemoCycle returns a repeating scripted source playing DemoSegments.
func DemoCycle(now func() time.Time) *Scripted {
	s, _ := NewScripted(DemoSegments(), true, now)
	return s
}
