package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/sweeney/musclemate/internal/arm"
	"github.com/sweeney/musclemate/internal/config"
	"github.com/sweeney/musclemate/internal/control"
	"github.com/sweeney/musclemate/internal/emg"
	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/monitor"
	"github.com/sweeney/musclemate/internal/mqtt"
	"github.com/sweeney/musclemate/internal/status"
	"github.com/sweeney/musclemate/internal/web"
	"github.com/sweeney/musclemate/internal/workflow"
)

const detectTimeout = 10 * time.Second

type RunCommand struct {
	OverrideFlags

	Monitor bool `long:"monitor" description:"Show the live terminal dashboard"`
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.ConfigFile, c.OverrideFlags)
	if err != nil {
		return err
	}

	var feed *monitor.Feed
	var logOut io.Writer = os.Stdout
	if c.Monitor {
		feed = monitor.NewFeed(64)
		logOut = feedWriter{feed: feed}
	}
	logger, err := setupLogger(cfg.Logging.Level, logOut)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runID := uuid.NewString()
	logger.Info("starting", "run_id", runID, "arm", cfg.Arm.Driver, "source", cfg.EMG.Source,
		"loop_hz", cfg.Sampling.LoopHz, "runtime", cfg.Sampling.Runtime)

	a, err := openArm(ctx, cfg.Arm, logger)
	if err != nil {
		return err
	}
	if closer, ok := a.(io.Closer); ok {
		defer closer.Close()
	}

	source, err := openSource(cfg.EMG)
	if err != nil {
		return err
	}
	defer source.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg, runID))

	svc := &app{
		cfg:     cfg,
		logger:  logger,
		arm:     a,
		source:  source,
		tracker: tracker,
	}

	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, runID, cfg.MQTT.Timeout, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		svc.pub = pub
		svc.conn = pub
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, logger)
		go srv.Run(ctx)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if !c.Monitor {
		_, err := svc.run(ctx, sigCh)
		return err
	}

	svc.observe = feed.Observe
	p := tea.NewProgram(monitor.New(feed, cfg.Thresholds), tea.WithAltScreen())

	errCh := make(chan error, 1)
	go func() {
		reason, err := svc.run(ctx, sigCh)
		p.Send(monitor.StoppedMsg{Reason: control.StopReason(reason), Err: err})
		if reason == "SIGINT" || reason == "SIGTERM" {
			p.Quit()
		}
		errCh <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("monitor: %w", err)
	}
	cancel()
	return <-errCh
}

// app wires one controller run. Collaborators are injected so the run can be
// driven from tests with fakes and a manual tick channel.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	arm     arm.Arm
	source  emg.Source
	pub     mqtt.Publisher
	conn    mqtt.ConnectionStatus
	tracker *status.Tracker
	observe func(control.Sample)

	now   func() time.Time
	tick  <-chan time.Time
	sleep func(time.Duration)
}

// run drives the control loop until the runtime elapses, ctx is cancelled,
// a signal arrives or the workflow fails. It returns the shutdown reason
// published with the SHUTDOWN event.
func (a *app) run(ctx context.Context, sig <-chan os.Signal) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gotSig := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			a.logger.Info("received signal, shutting down", "signal", s)
			gotSig <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	wfOpts := []workflow.Option{workflow.WithLogger(a.logger)}
	if a.sleep != nil {
		wfOpts = append(wfOpts, workflow.WithSleep(a.sleep))
	}
	ctrl, err := workflow.NewController(a.arm, a.cfg.Waypoints, a.cfg.Speeds, a.cfg.Limits, wfOpts...)
	if err != nil {
		return string(control.StopError), err
	}

	var sinks control.MultiSink
	if a.pub != nil {
		sinks = append(sinks, mqtt.NewChangeSink(a.pub))
	}

	runOpts := []control.Option{
		control.WithSink(sinks),
		control.WithLogger(a.logger),
		control.WithSafeArm(a.arm),
		control.WithObserver(a.record),
	}
	if a.now != nil {
		runOpts = append(runOpts, control.WithClock(a.now))
	}
	if a.tick != nil {
		runOpts = append(runOpts, control.WithTicker(a.tick))
	}

	runner, err := control.NewRunner(ctrl, gesture.NewDecoder(a.cfg.Thresholds), a.source, a.cfg.Sampling, runOpts...)
	if err != nil {
		return string(control.StopError), err
	}

	a.publishSystem(mqtt.EventStartup, "")

	runErr := runner.Run(ctx)
	if runErr != nil {
		a.logger.Error("control loop failed", "error", runErr)
	}

	reason := string(runner.Reason())
	select {
	case name := <-gotSig:
		reason = name
	default:
	}

	a.publishSystem(mqtt.EventShutdown, reason)
	a.logger.Info("stopped", "reason", reason, "ticks", runner.Ticks())
	return reason, runErr
}

func (a *app) record(s control.Sample) {
	a.tracker.Record(s)
	if a.conn != nil {
		a.tracker.SetMQTTConnected(a.conn.IsConnected())
	}
	if a.observe != nil {
		a.observe(s)
	}
}

func (a *app) publishSystem(event, reason string) {
	if a.pub == nil {
		return
	}
	if a.conn != nil {
		a.tracker.SetMQTTConnected(a.conn.IsConnected())
	}
	snap := a.tracker.Snapshot()
	payload, err := status.FormatStatusEvent(snap, event, reason)
	if err != nil {
		a.logger.Warn("status payload unavailable, publishing bare event", "event", event, "error", err)
	}
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: payload,
	}
	if err := a.pub.PublishSystem(ev); err != nil {
		a.logger.Warn("failed to publish system event", "event", event, "error", err)
		return
	}
	a.logger.Info("published system event", "event", event, "reason", reason)
}

func openArm(ctx context.Context, cfg config.ArmConfig, logger *slog.Logger) (arm.Arm, error) {
	switch cfg.Driver {
	case config.ArmFeetech:
		cal, err := arm.LoadCalibration(config.ExpandPath(cfg.CalibrationFile))
		if err != nil {
			return nil, err
		}
		port := cfg.Port
		if port == "" {
			detectCtx, cancel := context.WithTimeout(ctx, detectTimeout)
			defer cancel()
			if port, err = arm.DetectPort(detectCtx); err != nil {
				return nil, fmt.Errorf("detect arm: %w", err)
			}
			logger.Info("detected arm", "port", port)
		}
		return arm.NewFeetech(port, cal, logger)
	default:
		return arm.NewStub(logger), nil
	}
}

func openSource(cfg config.EMGConfig) (emg.Source, error) {
	switch cfg.Source {
	case config.SourceDemo:
		return emg.DemoCycle(time.Now), nil
	case config.SourceGPIO:
		r, err := emg.NewGPIOReader(cfg.Chip, cfg.PinCh1, cfg.PinCh2)
		if err != nil {
			return nil, fmt.Errorf("init gpio: %w", err)
		}
		return r, nil
	default:
		return emg.Static{}, nil
	}
}

func statusConfig(cfg config.Config, runID string) status.Config {
	return status.Config{
		RunID:       runID,
		LoopHz:      cfg.Sampling.LoopHz,
		RuntimeMs:   cfg.Sampling.Runtime.Milliseconds(),
		EMGOn:       cfg.Thresholds.EMGOn,
		EMGOff:      cfg.Thresholds.EMGOff,
		DebounceMs:  cfg.Thresholds.Debounce.Milliseconds(),
		CooldownMs:  cfg.Thresholds.Cooldown.Milliseconds(),
		LongPressMs: cfg.Thresholds.LongPress.Milliseconds(),
		ArmDriver:   cfg.Arm.Driver,
		Source:      cfg.EMG.Source,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	}
}
