package capability

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Locator produces a location fix as decimal-degree strings.
type Locator interface {
	// Locate returns latitude and longitude. highAccuracy requests a
	// precise fix; implementations without that distinction may ignore
	// it. Callers substitute the coordinate sentinels on error.
	Locate(ctx context.Context, highAccuracy bool) (lat, lon string, err error)
}

// FixedLocator reports a configured position. Useful for stationary
// installs (the daemon host usually has no GPS).
type FixedLocator struct {
	Lat string
	Lon string
}

// Locate returns the configured coordinates.
func (f *FixedLocator) Locate(ctx context.Context, highAccuracy bool) (string, string, error) {
	if f.Lat == "" || f.Lon == "" {
		return "", "", fmt.Errorf("no fixed position configured")
	}
	return f.Lat, f.Lon, nil
}

// ExecLocator shells out to a host-provided helper (e.g. a GPS bridge or
// CoreLocationCLI wrapper) that prints "<lat> <lon>" on stdout. A
// "--coarse" flag is appended for relaxed-accuracy requests.
type ExecLocator struct {
	Command string
	Args    []string
}

// Locate runs the helper and parses its output.
func (e *ExecLocator) Locate(ctx context.Context, highAccuracy bool) (string, string, error) {
	if e.Command == "" {
		return "", "", fmt.Errorf("no location command configured")
	}

	args := append([]string{}, e.Args...)
	if !highAccuracy {
		args = append(args, "--coarse")
	}

	out, err := exec.CommandContext(ctx, e.Command, args...).Output()
	if err != nil {
		return "", "", fmt.Errorf("run location helper: %w", err)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 {
		return "", "", fmt.Errorf("unexpected location output %q", strings.TrimSpace(string(out)))
	}

	return fields[0], fields[1], nil
}
