package gesture

import (
	"math"
	"time"

	"github.com/sweeney/musclemate/internal/config"
)

// Channel indexes.
const (
	Ch1 = 0
	Ch2 = 1
)

// Decoder tracks per-channel hysteresis and turns it into intents with
// debounce, cooldown and long-press rules.
type Decoder struct {
	th          config.Thresholds
	ch          [NumChannels]ChannelState
	lastEmitted time.Time
	counts      IntentCounts
}

// NewDecoder creates a decoder with both channels inactive.
func NewDecoder(th config.Thresholds) *Decoder {
	return &Decoder{th: th}
}

// Update feeds one reading per channel sampled at now.
//
// Readings below the deadband count as zero. A channel turns active at or above
// EMGOn and inactive at or below EMGOff; values in between leave it unchanged.
// NaN readings are ignored. Values outside [-1, 1] are used as-is.
func (d *Decoder) Update(ch1, ch2 float64, now time.Time) {
	d.updateChannel(&d.ch[Ch1], ch1, now)
	d.updateChannel(&d.ch[Ch2], ch2, now)
}

func (d *Decoder) updateChannel(ch *ChannelState, v float64, now time.Time) {
	if math.IsNaN(v) {
		return
	}
	if math.Abs(v) < d.th.Deadband {
		v = 0
	}

	switch {
	case !ch.Active && v >= d.th.EMGOn:
		ch.Active = true
		ch.LastTransition = now
		ch.PressStart = now
		ch.Pressed = true
	case ch.Active && v <= d.th.EMGOff:
		ch.Active = false
		ch.LastTransition = now
		ch.PressStart = time.Time{}
		ch.Pressed = false
		ch.Latched = false
	}
}

// Intent classifies the current channel state at now.
//
// Cooldown gates every rule, Abort included. A channel-2 hold of at least
// LongPress yields Abort once; the hold then stops contributing until released.
// Otherwise debounced channel 1 alone is Start, channel 2 alone is Grip and
// both together are OpenDoor.
func (d *Decoder) Intent(now time.Time) Intent {
	if !d.lastEmitted.IsZero() && now.Sub(d.lastEmitted) < d.th.Cooldown {
		return None
	}

	ch2 := &d.ch[Ch2]
	if ch2.Pressed && !ch2.Latched && now.Sub(ch2.PressStart) >= d.th.LongPress {
		ch2.Latched = true
		return d.emit(Abort, now)
	}

	a1 := d.debounced(Ch1, now)
	a2 := d.debounced(Ch2, now)
	switch {
	case a1 && a2:
		return d.emit(OpenDoor, now)
	case a1:
		return d.emit(Start, now)
	case a2:
		return d.emit(Grip, now)
	}
	return None
}

func (d *Decoder) debounced(i int, now time.Time) bool {
	ch := d.ch[i]
	if !ch.Active || ch.Latched {
		return false
	}
	return now.Sub(ch.LastTransition) >= d.th.Debounce
}

func (d *Decoder) emit(in Intent, now time.Time) Intent {
	d.lastEmitted = now
	switch in {
	case Start:
		d.counts.Start++
	case Grip:
		d.counts.Grip++
	case OpenDoor:
		d.counts.OpenDoor++
	case Abort:
		d.counts.Abort++
	}
	return in
}

// Channel returns a copy of channel i's state.
func (d *Decoder) Channel(i int) ChannelState {
	return d.ch[i]
}

// Counts returns the emitted intent counters.
func (d *Decoder) Counts() IntentCounts {
	return d.counts
}

// Thresholds returns the decoder's configuration.
func (d *Decoder) Thresholds() config.Thresholds {
	return d.th
}
