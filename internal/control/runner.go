// Package control drives the sample, decode and tick loop at a fixed rate.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/musclemate/internal/arm"
	"github.com/sweeney/musclemate/internal/config"
	"github.com/sweeney/musclemate/internal/emg"
	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/workflow"
)

// Machine advances the workflow by one transition.
type Machine interface {
	Tick(now time.Time, in gesture.Intent) (workflow.Event, error)
}

// StopReason says why Run returned.
type StopReason string

const (
	StopNone      StopReason = ""
	StopRuntime   StopReason = "RUNTIME"
	StopCancelled StopReason = "CANCELLED"
	StopError     StopReason = "ERROR"
)

// Sample is everything observed on one tick.
type Sample struct {
	Time     time.Time
	Ch1, Ch2 float64
	Intent   gesture.Intent
	Event    workflow.Event
	Channels [gesture.NumChannels]gesture.ChannelState
	Counts   gesture.IntentCounts
}

// Runner owns the control loop.
type Runner struct {
	machine  Machine
	decoder  *gesture.Decoder
	source   emg.Source
	sampling config.Sampling

	sink     Sink
	now      func() time.Time
	tick     <-chan time.Time
	logger   *slog.Logger
	safeArm  arm.Arm
	observer func(Sample)

	ticks  int
	reason StopReason
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink sets where tick events are appended.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithTicker supplies the tick channel instead of a ticker at the sampling rate.
func WithTicker(tick <-chan time.Time) Option {
	return func(r *Runner) { r.tick = tick }
}

// WithLogger sets the loop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithSafeArm sets the arm homed on every exit from Run.
func WithSafeArm(a arm.Arm) Option {
	return func(r *Runner) { r.safeArm = a }
}

// WithObserver registers a callback invoked after each processed tick.
func WithObserver(fn func(Sample)) Option {
	return func(r *Runner) { r.observer = fn }
}

// NewRunner creates a runner. The sampling config is validated here.
func NewRunner(machine Machine, decoder *gesture.Decoder, source emg.Source, s config.Sampling, opts ...Option) (*Runner, error) {
	if machine == nil || decoder == nil || source == nil {
		return nil, fmt.Errorf("%w: runner needs a machine, decoder and source", config.ErrInvalid)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		machine:  machine,
		decoder:  decoder,
		source:   source,
		sampling: s,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run samples, decodes and ticks until the runtime elapses, ctx is cancelled
// or the machine returns an error. The safe arm is homed on every exit.
// Runtime expiry and cancellation return nil.
func (r *Runner) Run(ctx context.Context) error {
	tick := r.tick
	if tick == nil {
		ticker := time.NewTicker(r.sampling.Period())
		defer ticker.Stop()
		tick = ticker.C
	}

	defer r.safeHome()

	start := r.now()
	r.logger.Info("control loop started",
		"loop_hz", r.sampling.LoopHz,
		"runtime", r.sampling.Runtime)

	for {
		select {
		case <-ctx.Done():
			r.reason = StopCancelled
			r.logger.Info("control loop interrupted", "ticks", r.ticks)
			return nil

		case <-tick:
			t := r.now()
			if r.sampling.Runtime > 0 && t.Sub(start) >= r.sampling.Runtime {
				r.reason = StopRuntime
				r.logger.Info("runtime elapsed", "ticks", r.ticks)
				return nil
			}

			if err := r.step(t); err != nil {
				r.reason = StopError
				return err
			}
		}
	}
}

func (r *Runner) step(t time.Time) error {
	ch1, ch2, err := r.source.Read()
	if err != nil {
		r.logger.Warn("emg read error", "error", err)
		return nil
	}

	r.decoder.Update(ch1, ch2, t)
	in := r.decoder.Intent(t)

	ev, err := r.machine.Tick(t, in)
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	r.ticks++

	if in != gesture.None {
		r.logger.Debug("intent", "intent", in, "state", ev.State)
	}

	if r.sink != nil {
		if err := r.sink.Append(ev); err != nil {
			r.logger.Warn("sink error", "error", err)
		}
	}

	if r.observer != nil {
		r.observer(Sample{
			Time:     t,
			Ch1:      ch1,
			Ch2:      ch2,
			Intent:   in,
			Event:    ev,
			Channels: [gesture.NumChannels]gesture.ChannelState{r.decoder.Channel(gesture.Ch1), r.decoder.Channel(gesture.Ch2)},
			Counts:   r.decoder.Counts(),
		})
	}
	return nil
}

func (r *Runner) safeHome() {
	if r.safeArm == nil {
		return
	}
	if err := arm.TryHome(r.safeArm); err != nil {
		r.logger.Warn("safe home failed", "error", err)
		return
	}
	r.logger.Info("arm homed")
}

// Ticks returns the number of processed ticks.
func (r *Runner) Ticks() int {
	return r.ticks
}

// Reason returns why the last Run returned.
func (r *Runner) Reason() StopReason {
	return r.reason
}
