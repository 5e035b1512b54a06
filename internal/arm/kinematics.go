package arm

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnreachable is returned when a pose lies outside the arm's workspace.
var ErrUnreachable = errors.New("pose unreachable")

// Geometry describes the arm links in metres.
type Geometry struct {
	// ShoulderHeight is the height of the shoulder-lift axis above the base.
	ShoulderHeight float64 `json:"shoulder_height"`
	UpperArm       float64 `json:"upper_arm"`
	Forearm        float64 `json:"forearm"`
	// Tool is the distance from the wrist-flex axis to the gripper tip.
	Tool float64 `json:"tool"`
}

// DefaultGeometry returns link lengths that cover the default bench layout.
// Measure the real arm and set them in the calibration file.
func DefaultGeometry() Geometry {
	return Geometry{
		ShoulderHeight: 0.10,
		UpperArm:       0.20,
		Forearm:        0.20,
		Tool:           0.12,
	}
}

// Validate checks that link lengths are positive.
func (g Geometry) Validate() error {
	if g.UpperArm <= 0 || g.Forearm <= 0 || g.Tool < 0 || g.ShoulderHeight < 0 {
		return fmt.Errorf("calibration: geometry link lengths must be positive")
	}
	return nil
}

// Joints is a joint-space configuration in radians.
type Joints struct {
	Pan, Lift, Elbow, Wrist, Roll float64
}

// Inverse solves the planar elbow-up configuration placing the tool tip at p
// with the tool pitched by p.Pitch from horizontal.
func (g Geometry) Inverse(p Pose) (Joints, error) {
	pan := math.Atan2(p.Y, p.X)
	r := math.Hypot(p.X, p.Y) - g.Tool*math.Cos(p.Pitch)
	z := p.Z - g.ShoulderHeight - g.Tool*math.Sin(p.Pitch)

	d := math.Hypot(r, z)
	if d > g.UpperArm+g.Forearm || d < math.Abs(g.UpperArm-g.Forearm) {
		return Joints{}, fmt.Errorf("%w: %s", ErrUnreachable, p)
	}

	cosElbow := (d*d - g.UpperArm*g.UpperArm - g.Forearm*g.Forearm) / (2 * g.UpperArm * g.Forearm)
	elbow := -math.Acos(math.Max(-1, math.Min(1, cosElbow)))
	lift := math.Atan2(z, r) - math.Atan2(g.Forearm*math.Sin(elbow), g.UpperArm+g.Forearm*math.Cos(elbow))

	return Joints{
		Pan:   pan,
		Lift:  lift,
		Elbow: elbow,
		Wrist: p.Pitch - lift - elbow,
		Roll:  p.Roll,
	}, nil
}

// Forward returns the tool tip pose for a joint configuration.
func (g Geometry) Forward(j Joints) Pose {
	pitch := j.Lift + j.Elbow + j.Wrist
	r := g.UpperArm*math.Cos(j.Lift) + g.Forearm*math.Cos(j.Lift+j.Elbow) + g.Tool*math.Cos(pitch)
	z := g.ShoulderHeight + g.UpperArm*math.Sin(j.Lift) + g.Forearm*math.Sin(j.Lift+j.Elbow) + g.Tool*math.Sin(pitch)
	return Pose{
		X:     r * math.Cos(j.Pan),
		Y:     r * math.Sin(j.Pan),
		Z:     z,
		Yaw:   j.Pan,
		Pitch: pitch,
		Roll:  j.Roll,
	}
}
