package control

import (
	"errors"
	"sync"

	"github.com/sweeney/musclemate/internal/workflow"
)

// Sink receives every tick event in order.
type Sink interface {
	Append(workflow.Event) error
}

// SliceSink keeps an in-memory trace of events.
type SliceSink struct {
	mu     sync.Mutex
	events []workflow.Event
}

// Append records ev.
func (s *SliceSink) Append(ev workflow.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the recorded trace.
func (s *SliceSink) Events() []workflow.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]workflow.Event, len(s.events))
	copy(out, s.events)
	return out
}

// FuncSink adapts a function to Sink.
type FuncSink func(workflow.Event) error

// Append calls f.
func (f FuncSink) Append(ev workflow.Event) error {
	return f(ev)
}

// MultiSink appends to every sink in order. All sinks see the event even if
// an earlier one fails; the errors are joined.
type MultiSink []Sink

// Append fans ev out.
func (m MultiSink) Append(ev workflow.Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Append(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
