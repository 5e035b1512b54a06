// Package status provides a thread-safe status tracker for the controller.
// It is written by the control loop and read by the HTTP server and monitor.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/musclemate/internal/control"
	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/workflow"
)

// Config contains run configuration for display.
type Config struct {
	RunID       string
	LoopHz      float64
	RuntimeMs   int64
	EMGOn       float64
	EMGOff      float64
	DebounceMs  int64
	CooldownMs  int64
	LongPressMs int64
	ArmDriver   string
	Source      string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Event         workflow.Event
	Ch1, Ch2      float64
	Channels      [gesture.NumChannels]gesture.ChannelState
	IntentCounts  gesture.IntentCounts
	StateEntries  map[workflow.State]int
	Ticks         int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the run started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	subs map[chan Snapshot]struct{}
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Event:        workflow.Event{State: workflow.Idle, Intent: gesture.None},
			StateEntries: make(map[workflow.State]int),
			StartTime:    startTime,
			Config:       cfg,
		},
		subs: make(map[chan Snapshot]struct{}),
		now:  time.Now,
	}
}

// Record stores one tick. Subscribers are notified when the controller
// event differs from the previous tick or carries an intent.
// Called from the control loop on every tick.
func (t *Tracker) Record(s control.Sample) {
	t.mu.Lock()
	prev := t.snap.Event
	changed := t.snap.Ticks == 0 || s.Intent != gesture.None || !sameContext(prev, s.Event)
	if s.Event.State != prev.State {
		t.snap.StateEntries[s.Event.State]++
	}
	t.snap.Event = s.Event
	t.snap.Ch1 = s.Ch1
	t.snap.Ch2 = s.Ch2
	t.snap.Channels = s.Channels
	t.snap.IntentCounts = s.Counts
	t.snap.Ticks++

	send := changed && len(t.subs) > 0
	var out Snapshot
	if send {
		out = t.copyLocked()
	}
	t.mu.Unlock()

	if send {
		t.notify(out)
	}
}

func sameContext(a, b workflow.Event) bool {
	return a.State == b.State &&
		a.SelectedBin == b.SelectedBin &&
		a.DoorOpen == b.DoorOpen &&
		a.LastGripClosed == b.LastGripClosed
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.copyLocked()
	t.mu.RUnlock()
	return s
}

func (t *Tracker) copyLocked() Snapshot {
	s := t.snap
	s.StateEntries = make(map[workflow.State]int, len(t.snap.StateEntries))
	for k, v := range t.snap.StateEntries {
		s.StateEntries[k] = v
	}
	s.Now = t.now()
	return s
}

// Subscribe returns a channel receiving a snapshot on every change and a
// function that cancels the subscription. Updates are dropped for
// subscribers whose buffer is full.
func (t *Tracker) Subscribe(buf int) (<-chan Snapshot, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Snapshot, buf)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *Tracker) notify(s Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
