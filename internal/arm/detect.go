package arm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

const scanTimeout = 2 * time.Second

// ErrNoArm is returned when no serial port answers with an SO-101 servo set.
var ErrNoArm = errors.New("no SO-101 arm found")

// PortInfo describes one serial port and the servos found on it.
type PortInfo struct {
	Port   string
	Servos []int
	IsArm  bool
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	out := ports[:0]
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ScanPorts probes every serial port for servos with IDs 1-6.
func ScanPorts(ctx context.Context) ([]PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	var infos []PortInfo
	for _, port := range ports {
		ids, err := scanPort(ctx, port)
		if err != nil {
			infos = append(infos, PortInfo{Port: port})
			continue
		}
		infos = append(infos, PortInfo{Port: port, Servos: ids, IsArm: isArm(ids)})
	}
	return infos, nil
}

// DetectPort returns the first port with a complete SO-101 servo set.
func DetectPort(ctx context.Context) (string, error) {
	infos, err := ScanPorts(ctx)
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if info.IsArm {
			return info.Port, nil
		}
	}
	return "", ErrNoArm
}

func scanPort(ctx context.Context, port string) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  busTimeout,
	})
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, 6)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(servos))
	for _, s := range servos {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// isArm reports whether ids is exactly the set 1-6.
func isArm(ids []int) bool {
	if len(ids) != 6 {
		return false
	}
	seen := make(map[int]bool, 6)
	for _, id := range ids {
		seen[id] = true
	}
	for i := 1; i <= 6; i++ {
		if !seen[i] {
			return false
		}
	}
	return true
}
