package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/musclemate/internal/arm"
	"github.com/sweeney/musclemate/internal/config"
	"github.com/sweeney/musclemate/internal/gesture"
)

// Controller advances the workflow one transition per tick.
// It is not safe for concurrent use.
type Controller struct {
	arm    arm.Arm
	wp     config.Waypoints
	sp     config.Speeds
	lim    config.SpeedLimits
	sleep  func(time.Duration)
	logger *slog.Logger

	state          State
	selectedBin    int
	doorOpen       bool
	lastGripClosed bool
	lastTick       time.Time
	lastIntent     gesture.Intent
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleep replaces the dwell function used after gripper and door actions.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// WithLogger sets the logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController validates the configuration and returns a controller in Idle.
func NewController(a arm.Arm, wp config.Waypoints, sp config.Speeds, lim config.SpeedLimits, opts ...Option) (*Controller, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: arm is required", config.ErrInvalid)
	}
	if err := wp.Validate(); err != nil {
		return nil, err
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	if err := lim.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		arm:        a,
		wp:         wp,
		sp:         sp,
		lim:        lim,
		sleep:      time.Sleep,
		logger:     slog.Default(),
		state:      Idle,
		lastIntent: gesture.None,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tick evaluates exactly one transition for intent at now and returns the
// resulting snapshot. An arm error leaves the state unchanged and is returned
// alongside the unchanged snapshot.
func (c *Controller) Tick(now time.Time, in gesture.Intent) (Event, error) {
	c.lastTick = now
	c.lastIntent = in

	prev := c.state
	err := c.step(in)
	if err != nil {
		err = fmt.Errorf("%s: %w", prev, err)
	} else if c.state != prev {
		c.logger.Info("state transition", "from", prev, "to", c.state, "intent", in, "bin", c.selectedBin)
	}
	return c.Snapshot(), err
}

func (c *Controller) step(in gesture.Intent) error {
	if in == gesture.Abort {
		c.state = Abort
		return nil
	}

	switch c.state {
	case Idle:
		if in == gesture.Start {
			c.state = SelectBin
		}

	case SelectBin:
		switch in {
		case gesture.Start:
			c.selectedBin = (c.selectedBin + 1) % len(c.wp.Bins)
		case gesture.Grip:
			c.state = Approach
		}

	case Approach:
		if err := c.moveTo(c.wp.Bins[c.selectedBin], 0, c.sp.Approach); err != nil {
			return err
		}
		c.state = Grip

	case Grip:
		if in == gesture.Grip {
			if err := c.grip(true); err != nil {
				return err
			}
			c.state = Lift
		}

	case Lift:
		if err := c.moveTo(c.wp.Bins[c.selectedBin], c.wp.LiftOffset, c.sp.Retract); err != nil {
			return err
		}
		c.state = Transit

	case Transit:
		if err := c.moveTo(c.wp.Autoclave, 0, c.sp.Move); err != nil {
			return err
		}
		c.state = OpenAutoclave

	case OpenAutoclave:
		if in == gesture.OpenDoor {
			c.toggleDoor()
			c.state = Place
		}

	case Place:
		// The place move is re-issued every tick until the release gesture.
		if err := c.moveTo(c.wp.Autoclave, -c.wp.PlaceDrop, c.sp.Approach); err != nil {
			return err
		}
		if in == gesture.Grip && c.lastGripClosed {
			if err := c.grip(false); err != nil {
				return err
			}
			c.state = CloseAutoclave
		}

	case CloseAutoclave:
		if c.doorOpen && in == gesture.OpenDoor {
			c.toggleDoor()
			c.state = Home
		}

	case Home:
		if err := c.moveTo(c.wp.Home, 0, c.sp.Move); err != nil {
			return err
		}
		c.state = Idle

	case Abort:
		if err := arm.TryHome(c.arm); err != nil {
			c.logger.Warn("abort: home failed", "error", err)
		}
		c.state = Idle
	}
	return nil
}

func (c *Controller) moveTo(p config.Point, dz, speed float64) error {
	return c.arm.MovePose(arm.At(p.X, p.Y, p.Z+dz), c.lim.Clamp(speed))
}

func (c *Controller) grip(closed bool) error {
	var err error
	if closed {
		err = c.arm.CloseGripper()
	} else {
		err = c.arm.OpenGripper()
	}
	if err != nil {
		return err
	}
	c.sleep(c.sp.GripDwell)
	c.lastGripClosed = closed
	return nil
}

// toggleDoor waits for the door actuation and flips the door flag.
func (c *Controller) toggleDoor() {
	if c.doorOpen {
		c.sleep(c.sp.DoorCloseDwell)
	} else {
		c.sleep(c.sp.DoorOpenDwell)
	}
	c.doorOpen = !c.doorOpen
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Snapshot returns the current context stamped with the last tick time.
func (c *Controller) Snapshot() Event {
	return Event{
		Timestamp:      c.lastTick,
		State:          c.state,
		Intent:         c.lastIntent,
		SelectedBin:    c.selectedBin,
		DoorOpen:       c.doorOpen,
		LastGripClosed: c.lastGripClosed,
	}
}

// Reset returns the controller to Idle with a fresh context.
func (c *Controller) Reset() {
	c.state = Idle
	c.selectedBin = 0
	c.doorOpen = false
	c.lastGripClosed = false
	c.lastTick = time.Time{}
	c.lastIntent = gesture.None
}
