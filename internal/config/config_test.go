package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi float64
		want      float64
	}{
		{0.5, 0.1, 1.0, 0.5},
		{0.0, 0.1, 1.0, 0.1},
		{-3, 0.1, 1.0, 0.1},
		{1.5, 0.1, 1.0, 1.0},
		{0.1, 0.1, 1.0, 0.1},
		{1.0, 0.1, 1.0, 1.0},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%g, %g, %g) = %g, want %g", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestSpeedLimitsValidate(t *testing.T) {
	if err := (SpeedLimits{Min: 0.1, Max: 1.0}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (SpeedLimits{Min: 0.5, Max: 0.5}).Validate(); err != nil {
		t.Errorf("equal bounds should be valid: %v", err)
	}
	err := (SpeedLimits{Min: 1.0, Max: 0.1}).Validate()
	if err == nil {
		t.Fatal("expected error for min > max")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"emg_off above emg_on", func(c *Config) { c.Thresholds.EMGOff = 0.9 }, "emg_off"},
		{"negative deadband", func(c *Config) { c.Thresholds.Deadband = -0.1 }, "deadband"},
		{"negative debounce", func(c *Config) { c.Thresholds.Debounce = -time.Millisecond }, "durations"},
		{"zero loop rate", func(c *Config) { c.Sampling.LoopHz = 0 }, "loop_hz"},
		{"negative runtime", func(c *Config) { c.Sampling.Runtime = -time.Second }, "runtime"},
		{"negative speed", func(c *Config) { c.Speeds.Move = -1 }, "speeds"},
		{"negative dwell", func(c *Config) { c.Speeds.GripDwell = -time.Second }, "dwell"},
		{"inverted limits", func(c *Config) { c.Limits = SpeedLimits{Min: 2, Max: 1} }, "speed_limits"},
		{"no bins", func(c *Config) { c.Waypoints.Bins = nil }, "bins"},
		{"unknown arm", func(c *Config) { c.Arm.Driver = "qarm" }, "arm.driver"},
		{"feetech without calibration", func(c *Config) { c.Arm.Driver = ArmFeetech }, "calibration_file"},
		{"unknown source", func(c *Config) { c.EMG.Source = "bluetooth" }, "emg.source"},
		{"same gpio pins", func(c *Config) { c.EMG.Source = SourceGPIO; c.EMG.PinCh2 = c.EMG.PinCh1 }, "pin_ch1"},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q should mention %q", err, tt.substr)
			}
		})
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	doc := `
thresholds:
  emg_on: 0.7
  debounce: 80ms
sampling:
  loop_hz: 100
waypoints:
  bins:
    - {x: 0.1, y: 0.2, z: 0.3}
mqtt:
  broker: tcp://localhost:1883
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Thresholds.EMGOn != 0.7 {
		t.Errorf("EMGOn: got %g, want 0.7", cfg.Thresholds.EMGOn)
	}
	if cfg.Thresholds.Debounce != 80*time.Millisecond {
		t.Errorf("Debounce: got %v, want 80ms", cfg.Thresholds.Debounce)
	}
	if cfg.Thresholds.EMGOff != 0.35 {
		t.Errorf("EMGOff should keep default, got %g", cfg.Thresholds.EMGOff)
	}
	if cfg.Sampling.LoopHz != 100 {
		t.Errorf("LoopHz: got %g, want 100", cfg.Sampling.LoopHz)
	}
	if len(cfg.Waypoints.Bins) != 1 || cfg.Waypoints.Bins[0] != (Point{X: 0.1, Y: 0.2, Z: 0.3}) {
		t.Errorf("Bins: got %+v", cfg.Waypoints.Bins)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("parsed config should validate: %v", err)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("thresholds:\n  emg_onn: 0.7\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"single document", "sampling:\n  loop_hz: 10\n", false},
		{"explicit start marker", "---\nsampling:\n  loop_hz: 10\n", false},
		{"second document", "sampling:\n  loop_hz: 10\n---\nsampling:\n  loop_hz: 20\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.doc))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got loop_hz %v", cfg.Sampling.LoopHz)
				}
				if !strings.Contains(err.Error(), "trailing document") {
					t.Errorf("error: got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if cfg.Sampling.LoopHz != 10 {
				t.Errorf("LoopHz: got %v, want 10", cfg.Sampling.LoopHz)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "musclemate.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level: got %q, want debug", cfg.Logging.Level)
	}

	if _, err := LoadFile(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMarshalRoundTripsThroughParse(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.LongPress = 2 * time.Second
	b, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, b)
	}
	if got.Thresholds.LongPress != 2*time.Second {
		t.Errorf("LongPress: got %v, want 2s", got.Thresholds.LongPress)
	}
}

func TestOverridesApply(t *testing.T) {
	cfg := Default()
	on := 0.8
	cooldown := time.Duration(0)
	source := SourceDemo
	runtime := 5 * time.Second

	Overrides{EMGOn: &on, Cooldown: &cooldown, Source: &source, Runtime: &runtime}.Apply(&cfg)

	if cfg.Thresholds.EMGOn != 0.8 {
		t.Errorf("EMGOn: got %g, want 0.8", cfg.Thresholds.EMGOn)
	}
	if cfg.Thresholds.Cooldown != 0 {
		t.Errorf("zero-valued override should apply, got %v", cfg.Thresholds.Cooldown)
	}
	if cfg.EMG.Source != SourceDemo {
		t.Errorf("Source: got %q", cfg.EMG.Source)
	}
	if cfg.Sampling.Runtime != 5*time.Second {
		t.Errorf("Runtime: got %v", cfg.Sampling.Runtime)
	}
	if cfg.Thresholds.EMGOff != 0.35 {
		t.Errorf("untouched field changed: %g", cfg.Thresholds.EMGOff)
	}

	Overrides{}.Apply(nil)
}

func TestSamplingPeriod(t *testing.T) {
	if got := (Sampling{LoopHz: 50}).Period(); got != 20*time.Millisecond {
		t.Errorf("Period: got %v, want 20ms", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/x.yaml"); got != filepath.Join(home, "x.yaml") {
		t.Errorf("ExpandPath: got %q", got)
	}
	if got := ExpandPath("/etc/x.yaml"); got != "/etc/x.yaml" {
		t.Errorf("absolute path changed: %q", got)
	}
}
