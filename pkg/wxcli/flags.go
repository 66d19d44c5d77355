// pkg/wxcli/flags.go

package wxcli

import (
	"time"

	"github.com/spf13/cobra"
)

// RegisterConfigFlags declares the provisioning configuration flags shared by
// the weatherctl subcommands. Defaults are intentionally zero values here:
// the effective defaults live in the config loader so that environment
// variables and config files can still override an untouched flag.
func RegisterConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("profile", "", "Deployment profile: interactive or unattended (default \"interactive\")")
	f.String("user", "", "Service account that runs the collector (default \"weather\")")
	f.String("group", "", "Group owning the project tree (default: same as the service user)")
	f.String("project-dir", "", "Collector checkout directory (default \"/home/<user>/weather-data\")")
	f.String("venv-dir", "", "Python virtualenv directory (default \"<project-dir>/venv\")")
	f.String("repo-url", "", "Git repository the collector is cloned from")
	f.String("repo-branch", "", "Branch to clone or fast-forward (default: remote HEAD)")
	f.String("service-unit", "", "Path of the generated systemd service unit")
	f.String("timer-unit", "", "Path of the generated systemd timer unit")
	f.Duration("every", 0, "Collection cadence in whole minutes, e.g. 15m (default: per profile)")
	f.Duration("settle-delay", 0, "How long to wait before verifying unit state")
	f.Int("journal-tail", 0, "Journal lines captured when a unit looks unhealthy")
	f.Int("log-tail", 0, "Application log lines echoed during verification")
	f.StringSlice("packages", nil, "APT packages installed before the virtualenv is built")
	f.BoolP("yes", "y", false, "Never prompt; accept defaults (implied by --profile unattended)")
	f.StringP("config", "c", "", "Path to a YAML config file")
}

// GetStringOrEmpty returns the flag's string value, or "" when the flag does
// not exist on the command.
func GetStringOrEmpty(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return val
}

// GetDurationOrZero returns the flag's duration value, or zero when the flag
// does not exist on the command.
func GetDurationOrZero(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return 0
	}
	return val
}
