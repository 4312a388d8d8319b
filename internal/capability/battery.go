package capability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Battery reads the host battery level and charging state.
type Battery interface {
	// Read returns the battery level (0-100) and charging state.
	// Callers substitute sentinels on error.
	Read(ctx context.Context) (int, ChargingState, error)
}

// SysfsBattery reads battery telemetry from the Linux power-supply sysfs
// tree. The first supply of type "Battery" is used.
type SysfsBattery struct {
	root string
}

// NewSysfsBattery creates a battery reader over the given sysfs root.
// An empty root uses /sys/class/power_supply.
func NewSysfsBattery(root string) *SysfsBattery {
	if root == "" {
		root = "/sys/class/power_supply"
	}
	return &SysfsBattery{root: root}
}

// Read scans the power-supply tree for a battery and reports its capacity
// and status.
func (b *SysfsBattery) Read(ctx context.Context) (int, ChargingState, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return 0, ChargingUnknown, fmt.Errorf("read power supplies: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return 0, ChargingUnknown, err
		}

		dir := filepath.Join(b.root, entry.Name())

		kind, err := readSysfsValue(filepath.Join(dir, "type"))
		if err != nil || kind != "Battery" {
			continue
		}

		capStr, err := readSysfsValue(filepath.Join(dir, "capacity"))
		if err != nil {
			continue
		}
		level, err := strconv.Atoi(capStr)
		if err != nil {
			continue
		}
		if level < 0 {
			level = 0
		} else if level > 100 {
			level = 100
		}

		state := ChargingUnknown
		if status, err := readSysfsValue(filepath.Join(dir, "status")); err == nil {
			state = chargingStateFromStatus(status)
		}

		return level, state, nil
	}

	return 0, ChargingUnknown, fmt.Errorf("no battery found under %s", b.root)
}

func readSysfsValue(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func chargingStateFromStatus(status string) ChargingState {
	switch status {
	case "Charging", "Full":
		return Charging
	case "Discharging", "Not charging":
		return NotCharging
	default:
		return ChargingUnknown
	}
}
