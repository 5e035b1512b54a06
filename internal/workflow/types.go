// Package workflow implements the sterilization workflow state machine that
// turns decoded intents into arm commands.
package workflow

import (
	"time"

	"github.com/sweeney/musclemate/internal/gesture"
)

// State is a workflow state.
type State string

const (
	Idle           State = "IDLE"
	SelectBin      State = "SELECT_BIN"
	Approach       State = "APPROACH"
	Grip           State = "GRIP"
	Lift           State = "LIFT"
	Transit        State = "TRANSIT"
	OpenAutoclave  State = "OPEN_AUTOCLAVE"
	Place          State = "PLACE"
	CloseAutoclave State = "CLOSE_AUTOCLAVE"
	Home           State = "HOME"
	Abort          State = "ABORT"
)

// AllStates returns every state in workflow order.
func AllStates() []State {
	return []State{Idle, SelectBin, Approach, Grip, Lift, Transit, OpenAutoclave, Place, CloseAutoclave, Home, Abort}
}

// Event is the controller snapshot produced by one tick.
type Event struct {
	Timestamp      time.Time
	State          State
	Intent         gesture.Intent
	SelectedBin    int
	DoorOpen       bool
	LastGripClosed bool
}
