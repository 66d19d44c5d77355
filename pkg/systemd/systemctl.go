// pkg/systemd/systemctl.go

package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/i474232898/weatherctl/pkg/execute"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// systemctl exit codes interpreted during verification.
const (
	ExitSuccess     = 0
	ExitGenericFail = 1
	ExitNotActive   = 3
	ExitNoSuchUnit  = 4
	ExitNotLoaded   = 5
)

// ActiveState mirrors the states `systemctl is-active` reports.
type ActiveState string

const (
	StateActive     ActiveState = "active"
	StateInactive   ActiveState = "inactive"
	StateActivating ActiveState = "activating"
	StateFailed     ActiveState = "failed"
	StateNotFound   ActiveState = "not-found"
	StateUnknown    ActiveState = "unknown"
)

// Diagnostics holds the status and journal output captured for a unit.
type Diagnostics struct {
	Status  string
	Journal string
}

// Available reports whether systemctl exists on this host.
func Available() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// DaemonReload asks systemd to re-read unit files.
func DaemonReload(ctx context.Context) error {
	logger := otelzap.Ctx(ctx)

	// ASSESS - systemd must be present before any unit operation
	if !Available() {
		return cerr.New("systemctl not found in PATH")
	}

	logger.Info("Reloading systemd daemon")
	if _, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"daemon-reload"},
		Capture: true,
		Quiet:   true,
	}); err != nil {
		return cerr.Wrap(err, "daemon-reload")
	}
	return nil
}

// EnableNow enables a unit and starts it in one step. On failure the unit's
// status and recent journal are captured into the log before the error is
// returned.
func EnableNow(ctx context.Context, unit string) error {
	logger := otelzap.Ctx(ctx)
	logger.Info("Enabling and starting systemd unit", zap.String("unit", unit))

	output, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"enable", "--now", unit},
		Capture: true,
		Quiet:   true,
	})
	if err != nil {
		diag := CaptureDiagnostics(ctx, unit, 50)
		logger.Error("Failed to enable/start unit",
			zap.String("unit", unit),
			zap.String("output", strings.TrimSpace(output)),
			zap.String("status_output", diag.Status),
			zap.String("journal_output", diag.Journal),
			zap.Error(err))
		return cerr.Wrapf(err, "enable --now %s", unit)
	}
	return nil
}

// Start starts a unit without enabling it.
func Start(ctx context.Context, unit string) error {
	otelzap.Ctx(ctx).Info("Starting systemd unit", zap.String("unit", unit))

	if _, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"start", unit},
		Capture: true,
		Quiet:   true,
	}); err != nil {
		return cerr.Wrapf(err, "start %s", unit)
	}
	return nil
}

// QueryActive folds the output and exit code of `systemctl is-active` into
// a single state. is-active exits non-zero for every state but active, so
// the error from execution is part of the answer rather than a failure:
// exit 0 means active, 3 covers inactive and activating, 4 and 5 mean the
// unit is not known to systemd.
func QueryActive(ctx context.Context, unit string) ActiveState {
	logger := otelzap.Ctx(ctx)

	output, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"is-active", unit},
		Capture: true,
		Quiet:   true,
	})

	state := parseActiveState(strings.TrimSpace(output))
	if state == StateUnknown {
		if code, ok := exitCode(err); ok {
			state = stateFromExitCode(code)
		}
	}

	logger.Debug("Queried unit active state",
		zap.String("unit", unit),
		zap.String("state", string(state)))
	return state
}

// CaptureDiagnostics collects `systemctl status` and recent journal lines
// for a unit. Both commands exit non-zero for failed units; the output is
// what matters here, so errors only downgrade the capture.
func CaptureDiagnostics(ctx context.Context, unit string, journalLines int) Diagnostics {
	logger := otelzap.Ctx(ctx)
	diag := Diagnostics{}

	statusOutput, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"status", unit, "-l", "--no-pager"},
		Capture: true,
		Quiet:   true,
	})
	diag.Status = strings.TrimSpace(statusOutput)
	if err != nil {
		logger.Debug("systemctl status exited non-zero (expected for failed units)",
			zap.String("unit", unit))
	}

	journalOutput, err := execute.Run(ctx, execute.Options{
		Command: "journalctl",
		Args:    []string{"-u", unit, "-n", strconv.Itoa(journalLines), "--no-pager"},
		Capture: true,
		Quiet:   true,
	})
	if err != nil {
		logger.Debug("journalctl capture failed (unit may not have logged yet)",
			zap.String("unit", unit),
			zap.Error(err))
		diag.Journal = fmt.Sprintf("(journalctl failed: %v)", err)
	} else {
		diag.Journal = strings.TrimSpace(journalOutput)
	}

	return diag
}

// TimerSchedule reports a timer's active state and next elapse time via
// `systemctl show`.
func TimerSchedule(ctx context.Context, timer string) (state string, nextRun string, err error) {
	output, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"show", timer, "--property=ActiveState,NextElapseUSecRealtime"},
		Capture: true,
		Quiet:   true,
	})
	if err != nil {
		return "unknown", "-", cerr.Wrapf(err, "show %s", timer)
	}

	state, nextRun = "unknown", "-"
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "ActiveState":
			state = parts[1]
		case "NextElapseUSecRealtime":
			if parts[1] != "" && parts[1] != "0" {
				nextRun = parts[1]
			}
		}
	}
	return state, nextRun, nil
}

// ListTimers returns the `systemctl list-timers` block for a timer unit.
// --all keeps inactive timers visible in the output.
func ListTimers(ctx context.Context, timer string) (string, error) {
	return execute.RunQuiet(ctx, "systemctl", "list-timers", timer, "--no-pager", "--all")
}

func parseActiveState(s string) ActiveState {
	switch ActiveState(s) {
	case StateActive, StateInactive, StateActivating, StateFailed:
		return ActiveState(s)
	}
	return StateUnknown
}

func stateFromExitCode(code int) ActiveState {
	switch code {
	case ExitSuccess:
		return StateActive
	case ExitNotActive:
		return StateInactive
	case ExitNoSuchUnit, ExitNotLoaded:
		return StateNotFound
	}
	return StateUnknown
}

func exitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if cerr.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
