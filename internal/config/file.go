package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Arm driver names.
const (
	ArmStub    = "stub"
	ArmFeetech = "feetech"
)

// Signal source names.
const (
	SourceStatic = "static"
	SourceDemo   = "demo"
	SourceGPIO   = "gpio"
)

// Config is the top-level YAML configuration for the controller.
type Config struct {
	Thresholds Thresholds    `yaml:"thresholds"`
	Sampling   Sampling      `yaml:"sampling"`
	Speeds     Speeds        `yaml:"speeds"`
	Limits     SpeedLimits   `yaml:"speed_limits"`
	Waypoints  Waypoints     `yaml:"waypoints"`
	Arm        ArmConfig     `yaml:"arm"`
	EMG        EMGConfig     `yaml:"emg"`
	MQTT       MQTTConfig    `yaml:"mqtt"`
	HTTP       HTTPConfig    `yaml:"http"`
	Logging    LoggingConfig `yaml:"logging"`
}

// ArmConfig selects and configures the arm driver.
type ArmConfig struct {
	Driver string `yaml:"driver"`
	// Port is the serial device of the feetech bus; empty means auto-detect.
	Port            string `yaml:"port,omitempty"`
	CalibrationFile string `yaml:"calibration_file,omitempty"`
}

// EMGConfig selects and configures the signal source.
type EMGConfig struct {
	Source string `yaml:"source"`
	Chip   string `yaml:"chip,omitempty"`
	PinCh1 int    `yaml:"pin_ch1,omitempty"`
	PinCh2 int    `yaml:"pin_ch2,omitempty"`
}

// MQTTConfig configures the event sink. An empty broker disables publishing.
type MQTTConfig struct {
	Broker  string        `yaml:"broker"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a fully-populated Config.
func Default() Config {
	return Config{
		Thresholds: DefaultThresholds(),
		Sampling:   DefaultSampling(),
		Speeds:     DefaultSpeeds(),
		Limits:     DefaultSpeedLimits(),
		Waypoints:  DefaultWaypoints(),
		Arm: ArmConfig{
			Driver: ArmStub,
		},
		EMG: EMGConfig{
			Source: SourceStatic,
			Chip:   "gpiochip0",
			PinCh1: 17,
			PinCh2: 27,
		},
		MQTT: MQTTConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a YAML file on top of the defaults.
// Unknown fields are rejected so typos surface at startup.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults.
func Parse(b []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks every section. Call once after defaults, file and overrides
// are applied.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Sampling.Validate(); err != nil {
		return err
	}
	if err := c.Speeds.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Waypoints.Validate(); err != nil {
		return err
	}

	switch c.Arm.Driver {
	case ArmStub:
	case ArmFeetech:
		if c.Arm.CalibrationFile == "" {
			return fmt.Errorf("%w: arm.calibration_file is required for the feetech driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: arm.driver must be %q or %q", ErrInvalid, ArmStub, ArmFeetech)
	}

	switch c.EMG.Source {
	case SourceStatic, SourceDemo:
	case SourceGPIO:
		if c.EMG.Chip == "" {
			return fmt.Errorf("%w: emg.chip must not be empty", ErrInvalid)
		}
		if c.EMG.PinCh1 < 0 || c.EMG.PinCh2 < 0 || c.EMG.PinCh1 == c.EMG.PinCh2 {
			return fmt.Errorf("%w: emg.pin_ch1 and emg.pin_ch2 must be distinct, non-negative offsets", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: emg.source must be %q, %q or %q", ErrInvalid, SourceStatic, SourceDemo, SourceGPIO)
	}

	if c.MQTT.Broker != "" && c.MQTT.Timeout <= 0 {
		return fmt.Errorf("%w: mqtt.timeout must be > 0", ErrInvalid)
	}
	if c.Logging.Level == "" {
		return fmt.Errorf("%w: logging.level must not be empty", ErrInvalid)
	}
	return nil
}

// Overrides carries flag values on top of a loaded config. A nil pointer
// leaves the field untouched; a non-nil pointer is applied even if zero.
type Overrides struct {
	EMGOn     *float64
	EMGOff    *float64
	Deadband  *float64
	Debounce  *time.Duration
	Cooldown  *time.Duration
	LongPress *time.Duration

	LoopHz  *float64
	Runtime *time.Duration

	ArmDriver *string
	ArmPort   *string
	Source    *string

	Broker   *string
	HTTPAddr *string
	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o Overrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.EMGOn != nil {
		cfg.Thresholds.EMGOn = *o.EMGOn
	}
	if o.EMGOff != nil {
		cfg.Thresholds.EMGOff = *o.EMGOff
	}
	if o.Deadband != nil {
		cfg.Thresholds.Deadband = *o.Deadband
	}
	if o.Debounce != nil {
		cfg.Thresholds.Debounce = *o.Debounce
	}
	if o.Cooldown != nil {
		cfg.Thresholds.Cooldown = *o.Cooldown
	}
	if o.LongPress != nil {
		cfg.Thresholds.LongPress = *o.LongPress
	}

	if o.LoopHz != nil {
		cfg.Sampling.LoopHz = *o.LoopHz
	}
	if o.Runtime != nil {
		cfg.Sampling.Runtime = *o.Runtime
	}

	if o.ArmDriver != nil {
		cfg.Arm.Driver = *o.ArmDriver
	}
	if o.ArmPort != nil {
		cfg.Arm.Port = *o.ArmPort
	}
	if o.Source != nil {
		cfg.EMG.Source = *o.Source
	}

	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// ExpandPath expands a leading "~" using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
