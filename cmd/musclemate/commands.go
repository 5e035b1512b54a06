package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sweeney/musclemate/internal/arm"
)

type ConfigCommand struct {
	OverrideFlags
}

func (c *ConfigCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.ConfigFile, c.OverrideFlags)
	if err != nil {
		return err
	}
	out, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

type PortsCommand struct {
	Scan bool `long:"scan" description:"Probe each port for servos 1-6"`
}

func (c *PortsCommand) Execute(args []string) error {
	if !c.Scan {
		ports, err := arm.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	infos, err := arm.ScanPorts(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No serial ports found.")
	}
	for _, info := range infos {
		fmt.Println(formatPortInfo(info))
	}
	return nil
}

func formatPortInfo(info arm.PortInfo) string {
	switch {
	case info.IsArm:
		return fmt.Sprintf("%s  SO-101 arm (servos %v)", info.Port, info.Servos)
	case len(info.Servos) > 0:
		return fmt.Sprintf("%s  servos %v", info.Port, info.Servos)
	default:
		return fmt.Sprintf("%s  no servos", info.Port)
	}
}
