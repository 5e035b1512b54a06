package arm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

const (
	// baseMoveTime is the duration of a move at speed 1.0.
	baseMoveTime = 1500 * time.Millisecond
	stepPeriod   = 20 * time.Millisecond
	busTimeout   = 100 * time.Millisecond
	callTimeout  = 2 * time.Second
	homeSpeed    = 0.5
)

// Feetech drives an SO-101 arm on a Feetech STS serial bus.
// Cartesian targets are solved with a planar inverse-kinematics model and
// reached by interpolating joint positions at a rate scaled by speed.
type Feetech struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	cal    Calibration
	logger *slog.Logger
	sleep  func(time.Duration)
}

// NewFeetech opens the bus on port and enables torque on all servos.
func NewFeetech(port string, cal Calibration, logger *slog.Logger) (*Feetech, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  busTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	f := &Feetech{
		bus:    bus,
		group:  feetech.NewServoGroupByIDs(bus, cal.IDs()...),
		cal:    cal,
		logger: logger,
		sleep:  time.Sleep,
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := f.group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque: %w", err)
	}

	return f, nil
}

// MovePose solves p and moves all arm joints there. The gripper is untouched.
func (f *Feetech) MovePose(p Pose, speed float64) error {
	j, err := f.cal.Geometry.Inverse(p)
	if err != nil {
		return err
	}
	f.logger.Debug("arm move", "pose", p.String(), "speed", speed)
	return f.moveJoints(jointTargets(f.cal, j), speed)
}

// OpenGripper drives the gripper to the open end of its range.
func (f *Feetech) OpenGripper() error {
	g := f.cal.Joints[Gripper]
	return f.write(feetech.PositionMap{g.ID: g.RangeMax})
}

// CloseGripper drives the gripper to the closed end of its range.
func (f *Feetech) CloseGripper() error {
	g := f.cal.Joints[Gripper]
	return f.write(feetech.PositionMap{g.ID: g.RangeMin})
}

// Home moves every joint to its rest angle and opens the gripper.
func (f *Feetech) Home() error {
	targets := make(feetech.PositionMap, len(f.cal.Joints))
	for _, name := range AllJoints() {
		if name == Gripper {
			continue
		}
		jc := f.cal.Joints[name]
		targets[jc.ID] = jc.ToRaw(f.cal.Rest[name])
	}
	moveErr := f.moveJoints(targets, homeSpeed)
	return errors.Join(moveErr, f.OpenGripper())
}

// ReadPose reads joint positions and returns the forward-kinematics pose.
func (f *Feetech) ReadPose() (Pose, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	raw, err := f.group.Positions(ctx)
	if err != nil {
		return Pose{}, fmt.Errorf("read positions: %w", err)
	}

	angles := make(map[JointName]float64, len(raw))
	for id, pos := range raw {
		name, jc, ok := f.cal.ByID(id)
		if !ok {
			continue
		}
		angles[name] = jc.ToRad(pos)
	}
	return f.cal.Geometry.Forward(Joints{
		Pan:   angles[ShoulderPan],
		Lift:  angles[ShoulderLift],
		Elbow: angles[ElbowFlex],
		Wrist: angles[WristFlex],
		Roll:  angles[WristRoll],
	}), nil
}

// Close disables torque and closes the bus.
func (f *Feetech) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	disableErr := f.group.DisableAll(ctx)
	return errors.Join(disableErr, f.bus.Close())
}

func (f *Feetech) moveJoints(targets feetech.PositionMap, speed float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	start, err := f.group.Positions(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}

	from := make(feetech.PositionMap, len(targets))
	for id := range targets {
		from[id] = start[id]
	}

	n := moveSteps(speed)
	for i := 1; i <= n; i++ {
		if err := f.write(interpolate(from, targets, float64(i)/float64(n))); err != nil {
			return err
		}
		if i < n {
			f.sleep(stepPeriod)
		}
	}
	return nil
}

func (f *Feetech) write(pos feetech.PositionMap) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := f.group.SetPositions(ctx, pos); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// jointTargets converts arm joint angles to raw servo positions.
func jointTargets(cal Calibration, j Joints) feetech.PositionMap {
	angles := map[JointName]float64{
		ShoulderPan:  j.Pan,
		ShoulderLift: j.Lift,
		ElbowFlex:    j.Elbow,
		WristFlex:    j.Wrist,
		WristRoll:    j.Roll,
	}
	out := make(feetech.PositionMap, len(angles))
	for name, rad := range angles {
		jc := cal.Joints[name]
		out[jc.ID] = jc.ToRaw(rad)
	}
	return out
}

// moveSteps returns the number of interpolation steps for a normalized speed.
func moveSteps(speed float64) int {
	if speed <= 0 {
		speed = 0.1
	}
	d := time.Duration(float64(baseMoveTime) / speed)
	n := int(math.Ceil(float64(d) / float64(stepPeriod)))
	if n < 1 {
		return 1
	}
	return n
}

// interpolate returns positions a fraction t of the way from one map to another.
func interpolate(from, to feetech.PositionMap, t float64) feetech.PositionMap {
	out := make(feetech.PositionMap, len(to))
	for id, target := range to {
		start, ok := from[id]
		if !ok {
			out[id] = target
			continue
		}
		out[id] = start + int(math.Round(float64(target-start)*t))
	}
	return out
}
