package arm

import "log/slog"

// Stub is an in-memory arm that tracks pose and gripper state and logs calls.
// Replace with a hardware driver for live runs.
type Stub struct {
	logger        *slog.Logger
	pose          Pose
	gripperClosed bool
}

// NewStub creates a stub arm at the origin with the gripper open.
func NewStub(logger *slog.Logger) *Stub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stub{logger: logger}
}

// MovePose records the new pose.
func (s *Stub) MovePose(p Pose, speed float64) error {
	s.logger.Debug("stub arm move", "pose", p.String(), "speed", speed)
	s.pose = p
	return nil
}

// OpenGripper records the gripper as open.
func (s *Stub) OpenGripper() error {
	s.logger.Debug("stub arm open gripper")
	s.gripperClosed = false
	return nil
}

// CloseGripper records the gripper as closed.
func (s *Stub) CloseGripper() error {
	s.logger.Debug("stub arm close gripper")
	s.gripperClosed = true
	return nil
}

// Home resets pose and opens the gripper.
func (s *Stub) Home() error {
	s.logger.Debug("stub arm home")
	s.pose = Pose{}
	s.gripperClosed = false
	return nil
}

// ReadPose returns the last commanded pose.
func (s *Stub) ReadPose() (Pose, error) {
	return s.pose, nil
}

// GripperClosed reports the last gripper command.
func (s *Stub) GripperClosed() bool {
	return s.gripperClosed
}
