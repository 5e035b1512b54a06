// Package gesture decodes two-channel EMG readings into discrete intents.
// This package has NO external dependencies (no hardware, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package gesture

import "time"

// Intent is a high-level command derived from a gesture.
type Intent string

const (
	None      Intent = "NONE"
	Start     Intent = "START"
	Grip      Intent = "GRIP"
	Release   Intent = "RELEASE"
	OpenDoor  Intent = "OPEN_DOOR"
	CloseDoor Intent = "CLOSE_DOOR"
	Abort     Intent = "ABORT"
)

// AllIntents returns every intent in declaration order.
func AllIntents() []Intent {
	return []Intent{None, Start, Grip, Release, OpenDoor, CloseDoor, Abort}
}

// NumChannels is the number of EMG channels the decoder tracks.
const NumChannels = 2

// ChannelState is the hysteresis state of one channel.
type ChannelState struct {
	// Active is true between crossing EMGOn and falling back to EMGOff.
	Active bool
	// LastTransition is the time of the last active/inactive change.
	LastTransition time.Time
	// PressStart is when the current activation began; valid only while Pressed.
	PressStart time.Time
	Pressed    bool
	// Latched is set once a long-press fired for this hold; cleared on release.
	Latched bool
}

// IntentCounts tracks how many of each non-None intent were emitted.
type IntentCounts struct {
	Start    int
	Grip     int
	OpenDoor int
	Abort    int
}
