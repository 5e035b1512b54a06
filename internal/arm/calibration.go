package arm

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// JointName identifies a servo joint on the SO-101 arm.
type JointName string

const (
	ShoulderPan  JointName = "shoulder_pan"
	ShoulderLift JointName = "shoulder_lift"
	ElbowFlex    JointName = "elbow_flex"
	WristFlex    JointName = "wrist_flex"
	WristRoll    JointName = "wrist_roll"
	Gripper      JointName = "gripper"
)

// AllJoints returns all joint names in order (matching servo IDs 1-6).
func AllJoints() []JointName {
	return []JointName{ShoulderPan, ShoulderLift, ElbowFlex, WristFlex, WristRoll, Gripper}
}

// ticksPerRad converts radians to STS servo ticks (4096 per revolution).
const ticksPerRad = 4096 / (2 * math.Pi)

// JointCalibration maps a joint angle to raw servo ticks.
type JointCalibration struct {
	ID int `json:"id"`
	// Center is the raw position at zero angle.
	Center   int `json:"center"`
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
	// Inverted flips the rotation direction.
	Inverted bool `json:"inverted,omitempty"`
}

// ToRaw converts an angle in radians to a raw position clamped to the range.
func (c JointCalibration) ToRaw(rad float64) int {
	if c.Inverted {
		rad = -rad
	}
	raw := c.Center + int(math.Round(rad*ticksPerRad))
	if raw < c.RangeMin {
		return c.RangeMin
	}
	if raw > c.RangeMax {
		return c.RangeMax
	}
	return raw
}

// ToRad converts a raw position to an angle in radians.
func (c JointCalibration) ToRad(raw int) float64 {
	rad := float64(raw-c.Center) / ticksPerRad
	if c.Inverted {
		return -rad
	}
	return rad
}

// Calibration holds link geometry and per-joint calibration for one arm.
type Calibration struct {
	Geometry Geometry                       `json:"geometry"`
	Joints   map[JointName]JointCalibration `json:"joints"`
	// Rest holds the joint angles (radians) of the safe home configuration.
	Rest map[JointName]float64 `json:"rest,omitempty"`
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration file: %w", err)
	}

	cal := Calibration{Geometry: DefaultGeometry()}
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration JSON: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return Calibration{}, err
	}
	return cal, nil
}

// Validate checks that every joint is calibrated with a sane range.
func (c Calibration) Validate() error {
	seen := make(map[int]JointName)
	for _, name := range AllJoints() {
		jc, ok := c.Joints[name]
		if !ok {
			return fmt.Errorf("calibration: missing joint %s", name)
		}
		if jc.RangeMin >= jc.RangeMax {
			return fmt.Errorf("calibration: %s range_min must be < range_max", name)
		}
		if other, dup := seen[jc.ID]; dup {
			return fmt.Errorf("calibration: %s and %s share servo id %d", other, name, jc.ID)
		}
		seen[jc.ID] = name
	}
	return c.Geometry.Validate()
}

// IDs returns the servo IDs for all joints in AllJoints order.
func (c Calibration) IDs() []int {
	ids := make([]int, 0, len(c.Joints))
	for _, name := range AllJoints() {
		if jc, ok := c.Joints[name]; ok {
			ids = append(ids, jc.ID)
		}
	}
	return ids
}

// ByID returns the joint name and calibration for a servo ID.
func (c Calibration) ByID(id int) (JointName, JointCalibration, bool) {
	for name, jc := range c.Joints {
		if jc.ID == id {
			return name, jc, true
		}
	}
	return "", JointCalibration{}, false
}
