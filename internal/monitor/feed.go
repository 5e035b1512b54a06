// Package monitor renders a live terminal view of the control loop:
// both EMG channels as a streaming line chart, the workflow context and
// a rolling log of intents and transitions.
package monitor

import (
	"github.com/sweeney/musclemate/internal/control"
)

// Feed carries samples and log lines from the control loop to the UI.
// Sends never block; when the UI falls behind, samples are dropped.
type Feed struct {
	samples chan control.Sample
	logs    chan string
}

// NewFeed creates a feed with room for buf pending samples.
func NewFeed(buf int) *Feed {
	if buf < 1 {
		buf = 1
	}
	return &Feed{
		samples: make(chan control.Sample, buf),
		logs:    make(chan string, 16),
	}
}

// Observe queues a sample. It matches the runner observer signature.
func (f *Feed) Observe(s control.Sample) {
	select {
	case f.samples <- s:
	default:
	}
}

// Log queues a line for the log box.
func (f *Feed) Log(msg string) {
	select {
	case f.logs <- msg:
	default:
	}
}
