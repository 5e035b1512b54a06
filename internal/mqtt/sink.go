package mqtt

import (
	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/workflow"
)

// ChangeSink publishes only ticks that carry news: a non-None intent or a
// change of state or context. Idle ticks at the loop rate are not sent.
type ChangeSink struct {
	pub  Publisher
	last workflow.Event
	seen bool
}

// NewChangeSink wraps pub.
func NewChangeSink(pub Publisher) *ChangeSink {
	return &ChangeSink{pub: pub}
}

// Append publishes ev if it differs from the previous tick.
func (s *ChangeSink) Append(ev workflow.Event) error {
	changed := !s.seen ||
		ev.Intent != gesture.None ||
		ev.State != s.last.State ||
		ev.SelectedBin != s.last.SelectedBin ||
		ev.DoorOpen != s.last.DoorOpen ||
		ev.LastGripClosed != s.last.LastGripClosed
	s.last = ev
	s.seen = true
	if !changed {
		return nil
	}
	return s.pub.Publish(ev)
}
