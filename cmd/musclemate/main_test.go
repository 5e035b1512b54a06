package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/sweeney/musclemate/internal/arm"
	"github.com/sweeney/musclemate/internal/config"
	"github.com/sweeney/musclemate/internal/control"
	"github.com/sweeney/musclemate/internal/emg"
	"github.com/sweeney/musclemate/internal/monitor"
	"github.com/sweeney/musclemate/internal/mqtt"
	"github.com/sweeney/musclemate/internal/status"
	"github.com/sweeney/musclemate/internal/workflow"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// manualClock is advanced by the test between ticks.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	app   *app
	arm   *arm.Fake
	pub   *mqtt.FakePublisher
	clock *manualClock
	tick  chan time.Time
	sig   chan os.Signal
	seen  chan control.Sample
}

func newHarness(source emg.Source) *harness {
	cfg := config.Default()
	clock := &manualClock{now: t0}
	h := &harness{
		arm:   arm.NewFake(),
		pub:   mqtt.NewFakePublisher(),
		clock: clock,
		tick:  make(chan time.Time),
		sig:   make(chan os.Signal, 1),
		seen:  make(chan control.Sample, 1),
	}
	if source == nil {
		source = emg.NewFake(emg.Reading{})
	}
	h.app = &app{
		cfg:     cfg,
		logger:  discardLogger(),
		arm:     h.arm,
		source:  source,
		pub:     h.pub,
		conn:    h.pub,
		tracker: status.NewTracker(t0, statusConfig(cfg, "run-1")),
		observe: func(s control.Sample) { h.seen <- s },
		now:     clock.Now,
		tick:    h.tick,
		sleep:   func(time.Duration) {},
	}
	return h
}

type result struct {
	reason string
	err    error
}

// start launches the run and processes one tick at the start time, so the
// loop has read its start time before the test advances the clock.
func (h *harness) start(t *testing.T) <-chan result {
	t.Helper()
	done := make(chan result, 1)
	go func() {
		reason, err := h.app.run(context.Background(), h.sig)
		done <- result{reason, err}
	}()

	select {
	case h.tick <- h.clock.Now():
	case res := <-done:
		t.Fatalf("run ended before the first tick: %+v", res)
	case <-time.After(2 * time.Second):
		t.Fatal("first tick not accepted")
	}
	select {
	case <-h.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("first tick not observed")
	}
	return done
}

// step advances the clock, sends one tick and waits until it is observed.
// It returns false once the run has finished.
func (h *harness) step(t *testing.T, done <-chan result, res *result) bool {
	t.Helper()
	h.clock.Advance(20 * time.Millisecond)
	select {
	case h.tick <- h.clock.Now():
	case *res = <-done:
		return false
	case <-time.After(2 * time.Second):
		t.Fatal("tick not accepted")
	}
	select {
	case <-h.seen:
		return true
	case *res = <-done:
		return false
	case <-time.After(2 * time.Second):
		t.Fatal("tick not observed")
	}
	return false
}

func TestRunShutdownOnSignal(t *testing.T) {
	h := newHarness(nil)
	h.pub.Connected = true
	done := h.start(t)

	var res result
	for i := 0; i < 5; i++ {
		if !h.step(t, done, &res) {
			t.Fatalf("run ended early: %+v", res)
		}
	}
	h.sig <- syscall.SIGTERM

	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on signal")
	}

	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", res.reason)
	}

	if len(h.pub.SystemEvents) != 2 {
		t.Fatalf("system events: got %d, want 2", len(h.pub.SystemEvents))
	}
	if h.pub.SystemEvents[0].Event != mqtt.EventStartup {
		t.Errorf("first system event: got %q", h.pub.SystemEvents[0].Event)
	}
	shutdown := h.pub.SystemEvents[1]
	if shutdown.Event != mqtt.EventShutdown || shutdown.Reason != "SIGTERM" || !shutdown.Retained {
		t.Errorf("shutdown event: got %+v", shutdown)
	}
	if !strings.Contains(string(shutdown.RawPayload), `"reason":"SIGTERM"`) {
		t.Errorf("shutdown payload: %s", shutdown.RawPayload)
	}

	// Only the first idle tick carries news.
	if len(h.pub.Events) != 1 || h.pub.Events[0].State != workflow.Idle {
		t.Errorf("published events: got %+v", h.pub.Events)
	}
	if h.arm.Count("home") != 1 {
		t.Errorf("safe home: got %d, want 1", h.arm.Count("home"))
	}

	snap := h.app.tracker.Snapshot()
	if snap.Ticks != 6 {
		t.Errorf("tracked ticks: got %d, want 6", snap.Ticks)
	}
	if !snap.MQTTConnected {
		t.Error("tracker should reflect the publisher connection")
	}
}

func TestRunStopsAtRuntime(t *testing.T) {
	h := newHarness(nil)
	h.app.cfg.Sampling.Runtime = 100 * time.Millisecond
	done := h.start(t)

	var res result
	ticks := 0
	for i := 0; i < 20; i++ {
		if !h.step(t, done, &res) {
			break
		}
		ticks++
	}

	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.reason != string(control.StopRuntime) {
		t.Errorf("reason: got %q, want RUNTIME", res.reason)
	}
	if ticks != 4 {
		t.Errorf("processed ticks: got %d, want 4", ticks)
	}
	last := h.pub.SystemEvents[len(h.pub.SystemEvents)-1]
	if last.Event != mqtt.EventShutdown || last.Reason != "RUNTIME" {
		t.Errorf("shutdown event: got %+v", last)
	}
}

func TestRunArmFailure(t *testing.T) {
	clock := &manualClock{now: t0}
	h := newHarness(emg.DemoCycle(clock.Now))
	h.clock = clock
	h.app.now = clock.Now
	h.app.cfg.Sampling.Runtime = 0
	h.arm.MoveError = errors.New("servo timeout")
	done := h.start(t)

	var res result
	for i := 0; i < 500; i++ {
		if !h.step(t, done, &res) {
			break
		}
	}

	if !errors.Is(res.err, h.arm.MoveError) {
		t.Fatalf("error: got %v, want servo timeout", res.err)
	}
	if res.reason != string(control.StopError) {
		t.Errorf("reason: got %q, want ERROR", res.reason)
	}
	if h.arm.Count("home") < 1 {
		t.Error("arm should be homed after a failure")
	}
	if got := h.app.tracker.Snapshot().Event.State; got != workflow.Approach {
		t.Errorf("last tracked state: got %q, want APPROACH", got)
	}
	last := h.pub.SystemEvents[len(h.pub.SystemEvents)-1]
	if last.Reason != "ERROR" {
		t.Errorf("shutdown reason: got %q, want ERROR", last.Reason)
	}
}

func TestRunInvalidController(t *testing.T) {
	h := newHarness(nil)
	h.app.arm = nil

	reason, err := h.app.run(context.Background(), h.sig)
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("error: got %v, want ErrInvalid", err)
	}
	if reason != "ERROR" {
		t.Errorf("reason: got %q", reason)
	}
	if len(h.pub.SystemEvents) != 0 {
		t.Error("nothing should be published when wiring fails")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"error", slog.LevelError, false},
		{"warn", slog.LevelWarn, false},
		{"WARNING", slog.LevelWarn, false},
		{"info", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSignalName(t *testing.T) {
	if signalName(syscall.SIGINT) != "SIGINT" || signalName(syscall.SIGTERM) != "SIGTERM" {
		t.Error("SIGINT/SIGTERM names")
	}
	if signalName(syscall.SIGHUP) != "UNKNOWN" {
		t.Error("other signals should be UNKNOWN")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "musclemate.yaml")
	yaml := "thresholds:\n  emg_on: 0.7\nemg:\n  source: demo\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	debounce := 200 * time.Millisecond
	broker := "tcp://localhost:1883"
	cfg, err := loadConfig(path, OverrideFlags{Debounce: &debounce, Broker: &broker})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Thresholds.EMGOn != 0.7 {
		t.Errorf("EMGOn from file: got %v", cfg.Thresholds.EMGOn)
	}
	if cfg.EMG.Source != config.SourceDemo {
		t.Errorf("Source from file: got %q", cfg.EMG.Source)
	}
	if cfg.Thresholds.Debounce != debounce {
		t.Errorf("Debounce override: got %v", cfg.Thresholds.Debounce)
	}
	if cfg.MQTT.Broker != broker {
		t.Errorf("Broker override: got %q", cfg.MQTT.Broker)
	}

	off := 0.9
	if _, err := loadConfig("", OverrideFlags{EMGOff: &off}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("EMGOff above EMGOn should fail validation, got %v", err)
	}
	if _, err := loadConfig(filepath.Join(dir, "missing.yaml"), OverrideFlags{}); err == nil {
		t.Error("missing file should fail")
	}
}

func TestParseFlags(t *testing.T) {
	var o Options
	var ran flags.Commander
	p := flags.NewParser(&o, flags.None)
	p.CommandHandler = func(cmd flags.Commander, args []string) error {
		ran = cmd
		return nil
	}

	_, err := p.ParseArgs([]string{"-c", "x.yaml", "run", "--emg-on", "0.7", "--runtime", "2s", "--arm", "feetech", "--monitor"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ran != &o.Run {
		t.Errorf("command: got %T", ran)
	}
	if o.ConfigFile != "x.yaml" {
		t.Errorf("ConfigFile: got %q", o.ConfigFile)
	}
	if o.Run.EMGOn == nil || *o.Run.EMGOn != 0.7 {
		t.Errorf("EMGOn: got %v", o.Run.EMGOn)
	}
	if o.Run.Runtime == nil || *o.Run.Runtime != 2*time.Second {
		t.Errorf("Runtime: got %v", o.Run.Runtime)
	}
	if o.Run.ArmDriver == nil || *o.Run.ArmDriver != "feetech" {
		t.Errorf("ArmDriver: got %v", o.Run.ArmDriver)
	}
	if !o.Run.Monitor {
		t.Error("Monitor should be set")
	}
	if o.Run.EMGOff != nil {
		t.Error("unset flags must stay nil")
	}

	var bad Options
	p = flags.NewParser(&bad, flags.None)
	p.CommandHandler = func(flags.Commander, []string) error { return nil }
	if _, err := p.ParseArgs([]string{"run", "--source", "tape"}); err == nil {
		t.Error("invalid source choice should fail")
	}
}

func TestPublishSystemNonFiniteReading(t *testing.T) {
	h := newHarness(nil)
	h.app.tracker.Record(control.Sample{
		Time:  t0,
		Ch1:   math.NaN(),
		Event: workflow.Event{Timestamp: t0, State: workflow.Idle},
	})

	h.app.publishSystem(mqtt.EventShutdown, "SIGINT")

	if len(h.pub.SystemEvents) != 1 {
		t.Fatalf("system events: got %d, want 1", len(h.pub.SystemEvents))
	}
	payload := string(h.pub.SystemEvents[0].RawPayload)
	if !strings.Contains(payload, `"value":null`) {
		t.Errorf("payload should carry the status snapshot: %q", payload)
	}
	if !strings.Contains(payload, `"reason":"SIGINT"`) {
		t.Errorf("payload reason: %q", payload)
	}
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Addr = ":8080"
	sc := statusConfig(cfg, "abc")
	if sc.RunID != "abc" || sc.HTTPAddr != ":8080" {
		t.Errorf("got %+v", sc)
	}
	if sc.DebounceMs != cfg.Thresholds.Debounce.Milliseconds() {
		t.Errorf("DebounceMs: got %d", sc.DebounceMs)
	}
	if sc.RuntimeMs != cfg.Sampling.Runtime.Milliseconds() {
		t.Errorf("RuntimeMs: got %d", sc.RuntimeMs)
	}
}

func TestFormatPortInfo(t *testing.T) {
	tests := []struct {
		info arm.PortInfo
		want string
	}{
		{arm.PortInfo{Port: "/dev/ttyACM0", Servos: []int{1, 2, 3, 4, 5, 6}, IsArm: true}, "/dev/ttyACM0  SO-101 arm (servos [1 2 3 4 5 6])"},
		{arm.PortInfo{Port: "/dev/ttyUSB0", Servos: []int{3}}, "/dev/ttyUSB0  servos [3]"},
		{arm.PortInfo{Port: "/dev/ttyS0"}, "/dev/ttyS0  no servos"},
	}
	for _, tt := range tests {
		if got := formatPortInfo(tt.info); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestOpenSource(t *testing.T) {
	src, err := openSource(config.EMGConfig{Source: config.SourceDemo})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*emg.Scripted); !ok {
		t.Errorf("demo source: got %T", src)
	}
	src, _ = openSource(config.EMGConfig{Source: config.SourceStatic})
	if _, ok := src.(emg.Static); !ok {
		t.Errorf("static source: got %T", src)
	}
}

func TestFeedWriter(t *testing.T) {
	w := feedWriter{feed: monitor.NewFeed(1)}
	n, err := w.Write([]byte("level=INFO msg=a\nlevel=INFO msg=b\n"))
	if err != nil || n != 34 {
		t.Errorf("Write: got (%d, %v), want (34, nil)", n, err)
	}
	if _, err := setupLogger("loud", w); err == nil {
		t.Error("invalid level should fail")
	}
}
