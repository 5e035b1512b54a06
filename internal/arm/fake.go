package arm

// Call kinds recorded by Fake.
const (
	CallMove         = "move"
	CallOpenGripper  = "open_gripper"
	CallCloseGripper = "close_gripper"
	CallHome         = "home"
)

// Call is one recorded arm command.
type Call struct {
	Kind  string
	Pose  Pose
	Speed float64
}

// Fake is a test double that records every command.
type Fake struct {
	// Calls contains every command in order, including failed ones.
	Calls []Call

	// MoveError, if set, will be returned by MovePose.
	MoveError error

	// GripperError, if set, will be returned by OpenGripper and CloseGripper.
	GripperError error

	// HomeError, if set, will be returned by Home.
	HomeError error

	// Pose is returned by ReadPose and updated by successful moves.
	Pose Pose
}

// NewFake creates a Fake arm.
func NewFake() *Fake {
	return &Fake{}
}

// MovePose records the move.
func (f *Fake) MovePose(p Pose, speed float64) error {
	f.Calls = append(f.Calls, Call{Kind: CallMove, Pose: p, Speed: speed})
	if f.MoveError != nil {
		return f.MoveError
	}
	f.Pose = p
	return nil
}

// OpenGripper records the command.
func (f *Fake) OpenGripper() error {
	f.Calls = append(f.Calls, Call{Kind: CallOpenGripper})
	return f.GripperError
}

// CloseGripper records the command.
func (f *Fake) CloseGripper() error {
	f.Calls = append(f.Calls, Call{Kind: CallCloseGripper})
	return f.GripperError
}

// Home records the command.
func (f *Fake) Home() error {
	f.Calls = append(f.Calls, Call{Kind: CallHome})
	return f.HomeError
}

// ReadPose returns Pose.
func (f *Fake) ReadPose() (Pose, error) {
	return f.Pose, nil
}

// Count returns how many calls of the given kind were recorded.
func (f *Fake) Count(kind string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent call, or false if none.
func (f *Fake) Last() (Call, bool) {
	if len(f.Calls) == 0 {
		return Call{}, false
	}
	return f.Calls[len(f.Calls)-1], true
}

// Reset clears recorded calls and errors.
func (f *Fake) Reset() {
	f.Calls = nil
	f.MoveError = nil
	f.GripperError = nil
	f.HomeError = nil
	f.Pose = Pose{}
}
