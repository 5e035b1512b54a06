// Package arm provides the robot arm abstraction used by the workflow.
// The stub and fake implementations allow running and testing without hardware;
// the feetech implementation drives an SO-101 arm over a serial servo bus.
package arm

import "fmt"

// Pose is a Cartesian target in metres with orientation in radians.
type Pose struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

// String formats the position part of the pose.
func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}

// At returns a pose at the given position with zero orientation.
func At(x, y, z float64) Pose {
	return Pose{X: x, Y: y, Z: z}
}

// Arm is the capability set the workflow needs from an arm.
// All calls are synchronous; an error means the command was not carried out.
type Arm interface {
	// MovePose commands a straight move to p at a normalized speed in (0, 1].
	MovePose(p Pose, speed float64) error
	OpenGripper() error
	CloseGripper() error
	// Home returns the arm to its safe rest configuration.
	Home() error
	ReadPose() (Pose, error)
}

// TryHome attempts to home the arm and discards any error, returning it only
// so the caller can log it. Used on abort and shutdown where recovery must
// never stop the controller.
func TryHome(a Arm) (err error) {
	if a == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("home panicked: %v", r)
		}
	}()
	return a.Home()
}
