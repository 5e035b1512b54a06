// Command musclemate turns two-channel EMG gestures into robotic-arm moves
// for a bin-to-autoclave sterilization workflow.
package main

import (
	"errors"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/sweeney/musclemate/internal/config"
)

type Options struct {
	ConfigFile string `short:"c" long:"config" description:"YAML config file (defaults are used when omitted)"`

	Run    RunCommand    `command:"run" description:"Run the gesture-controlled workflow"`
	Config ConfigCommand `command:"config" description:"Print the effective configuration as YAML"`
	Ports  PortsCommand  `command:"ports" description:"List serial ports and detect SO-101 arms"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "MuscleMate - EMG gesture control for a sterilization robot arm"

	_, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// OverrideFlags are the per-field config overrides shared by run and config.
// Unset flags leave the file or default value untouched.
type OverrideFlags struct {
	EMGOn     *float64       `long:"emg-on" description:"Activation threshold"`
	EMGOff    *float64       `long:"emg-off" description:"Release threshold"`
	Deadband  *float64       `long:"deadband" description:"Readings below this magnitude count as zero"`
	Debounce  *time.Duration `long:"debounce" description:"Minimum stable activation, e.g. 150ms"`
	Cooldown  *time.Duration `long:"cooldown" description:"Minimum gap between intents, e.g. 350ms"`
	LongPress *time.Duration `long:"long-press" description:"Channel 2 hold for abort, e.g. 1.2s"`

	LoopHz  *float64       `long:"loop-hz" description:"Control loop rate"`
	Runtime *time.Duration `long:"runtime" description:"Stop after this long (0 runs until interrupted)"`

	ArmDriver *string `long:"arm" choice:"stub" choice:"feetech" description:"Arm driver"`
	ArmPort   *string `long:"port" description:"Feetech serial port (auto-detected when empty)"`
	Source    *string `long:"source" choice:"static" choice:"demo" choice:"gpio" description:"EMG signal source"`

	Broker   *string `long:"broker" description:"MQTT broker URL (empty disables publishing)"`
	HTTPAddr *string `long:"http" description:"HTTP status address (empty disables)"`
	LogLevel *string `long:"log-level" choice:"error" choice:"warn" choice:"info" choice:"debug" description:"Log level"`
}

func (f OverrideFlags) overrides() config.Overrides {
	return config.Overrides{
		EMGOn:     f.EMGOn,
		EMGOff:    f.EMGOff,
		Deadband:  f.Deadband,
		Debounce:  f.Debounce,
		Cooldown:  f.Cooldown,
		LongPress: f.LongPress,
		LoopHz:    f.LoopHz,
		Runtime:   f.Runtime,
		ArmDriver: f.ArmDriver,
		ArmPort:   f.ArmPort,
		Source:    f.Source,
		Broker:    f.Broker,
		HTTPAddr:  f.HTTPAddr,
		LogLevel:  f.LogLevel,
	}
}

// loadConfig layers defaults, the optional file and flag overrides, then validates.
func loadConfig(path string, f OverrideFlags) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}

	f.overrides().Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
