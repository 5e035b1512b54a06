// Package config holds the immutable parameter sets that drive gesture decoding,
// loop pacing and the sterilization workflow, plus loading and validation.
//
// Values are validated once at build time (Validate); the control loop assumes a
// well-formed config and never re-checks bounds per tick.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Thresholds controls EMG decoding sensitivity and timing.
type Thresholds struct {
	EMGOn     float64       `yaml:"emg_on"`
	EMGOff    float64       `yaml:"emg_off"`
	Deadband  float64       `yaml:"deadband"`
	Debounce  time.Duration `yaml:"debounce"`
	Cooldown  time.Duration `yaml:"cooldown"`
	LongPress time.Duration `yaml:"long_press"`
}

// Sampling controls the control loop cadence.
type Sampling struct {
	LoopHz float64 `yaml:"loop_hz"`
	// Runtime bounds the run; zero runs until interrupted.
	Runtime time.Duration `yaml:"runtime"`
}

// Period returns the nominal time between ticks.
func (s Sampling) Period() time.Duration {
	return time.Duration(float64(time.Second) / s.LoopHz)
}

// Speeds holds motion speeds (normalized, clamped before use) and action dwells.
type Speeds struct {
	Move           float64       `yaml:"move"`
	Approach       float64       `yaml:"approach"`
	Retract        float64       `yaml:"retract"`
	GripDwell      time.Duration `yaml:"grip_dwell"`
	DoorOpenDwell  time.Duration `yaml:"door_open_dwell"`
	DoorCloseDwell time.Duration `yaml:"door_close_dwell"`
}

// SpeedLimits bounds every commanded speed.
type SpeedLimits struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Clamp bounds v into [l.Min, l.Max].
func (l SpeedLimits) Clamp(v float64) float64 {
	return Clamp(v, l.Min, l.Max)
}

// Point is a fixed 3-D position in metres, arm base frame.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Waypoints are the fixed workspace targets of the sterilization flow.
type Waypoints struct {
	Home      Point   `yaml:"home"`
	Autoclave Point   `yaml:"autoclave"`
	Bins      []Point `yaml:"bins"`
	// LiftOffset is added to the bin height when lifting the instrument.
	LiftOffset float64 `yaml:"lift_offset"`
	// PlaceDrop is subtracted from the autoclave height while placing.
	PlaceDrop float64 `yaml:"place_drop"`
}

// Clamp bounds v into [lo, hi]. lo must not exceed hi; bounds coming from
// configuration are checked by SpeedLimits.Validate.
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// DefaultThresholds returns the stock decoding thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EMGOn:     0.65,
		EMGOff:    0.35,
		Deadband:  0.05,
		Debounce:  150 * time.Millisecond,
		Cooldown:  350 * time.Millisecond,
		LongPress: 1200 * time.Millisecond,
	}
}

// DefaultSampling returns the stock loop timing.
func DefaultSampling() Sampling {
	return Sampling{
		LoopHz:  50,
		Runtime: 180 * time.Second,
	}
}

// DefaultSpeeds returns the stock speeds and dwell times.
func DefaultSpeeds() Speeds {
	return Speeds{
		Move:           0.6,
		Approach:       0.4,
		Retract:        0.6,
		GripDwell:      500 * time.Millisecond,
		DoorOpenDwell:  400 * time.Millisecond,
		DoorCloseDwell: 300 * time.Millisecond,
	}
}

// DefaultSpeedLimits returns the stock speed clamp.
func DefaultSpeedLimits() SpeedLimits {
	return SpeedLimits{Min: 0.1, Max: 1.0}
}

// DefaultWaypoints returns the bench layout: home, autoclave and three bins.
func DefaultWaypoints() Waypoints {
	return Waypoints{
		Home:      Point{X: 0.38, Y: 0.00, Z: 0.20},
		Autoclave: Point{X: 0.45, Y: -0.12, Z: 0.12},
		Bins: []Point{
			{X: 0.30, Y: 0.18, Z: 0.08},
			{X: 0.32, Y: 0.00, Z: 0.08},
			{X: 0.30, Y: -0.18, Z: 0.08},
		},
		LiftOffset: 0.10,
		PlaceDrop:  0.05,
	}
}

// Validate checks threshold invariants.
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.EMGOn, t.EMGOff, t.Deadband} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: thresholds must be finite", ErrInvalid)
		}
	}
	if t.EMGOff > t.EMGOn {
		return fmt.Errorf("%w: thresholds.emg_off (%g) must be <= thresholds.emg_on (%g)", ErrInvalid, t.EMGOff, t.EMGOn)
	}
	if t.Deadband < 0 {
		return fmt.Errorf("%w: thresholds.deadband must be >= 0", ErrInvalid)
	}
	if t.Debounce < 0 || t.Cooldown < 0 || t.LongPress < 0 {
		return fmt.Errorf("%w: thresholds durations must be >= 0", ErrInvalid)
	}
	return nil
}

// Validate checks sampling invariants.
func (s Sampling) Validate() error {
	if !(s.LoopHz > 0) || math.IsInf(s.LoopHz, 0) {
		return fmt.Errorf("%w: sampling.loop_hz must be > 0", ErrInvalid)
	}
	if s.Runtime < 0 {
		return fmt.Errorf("%w: sampling.runtime must be >= 0", ErrInvalid)
	}
	return nil
}

// Validate checks that speeds and dwells are non-negative.
func (s Speeds) Validate() error {
	if s.Move < 0 || s.Approach < 0 || s.Retract < 0 {
		return fmt.Errorf("%w: speeds must be >= 0", ErrInvalid)
	}
	if s.GripDwell < 0 || s.DoorOpenDwell < 0 || s.DoorCloseDwell < 0 {
		return fmt.Errorf("%w: dwell durations must be >= 0", ErrInvalid)
	}
	return nil
}

// Validate checks the clamp bounds.
func (l SpeedLimits) Validate() error {
	if math.IsNaN(l.Min) || math.IsNaN(l.Max) {
		return fmt.Errorf("%w: speed_limits must be numbers", ErrInvalid)
	}
	if l.Min > l.Max {
		return fmt.Errorf("%w: speed_limits.min (%g) must be <= speed_limits.max (%g)", ErrInvalid, l.Min, l.Max)
	}
	return nil
}

// Validate checks that at least one bin exists and offsets are non-negative.
func (w Waypoints) Validate() error {
	if len(w.Bins) == 0 {
		return fmt.Errorf("%w: waypoints.bins must not be empty", ErrInvalid)
	}
	if w.LiftOffset < 0 || w.PlaceDrop < 0 {
		return fmt.Errorf("%w: waypoints offsets must be >= 0", ErrInvalid)
	}
	return nil
}
