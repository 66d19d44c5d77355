// cmd/root.go

package cmd

import (
	"os"

	"github.com/i474232898/weatherctl/cmd/install"
	"github.com/i474232898/weatherctl/cmd/run"
	"github.com/i474232898/weatherctl/cmd/status"
	"github.com/i474232898/weatherctl/pkg/logger"
	"github.com/i474232898/weatherctl/pkg/wxcli"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/i474232898/weatherctl/pkg/wxio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd is the base command for weatherctl.
var RootCmd = &cobra.Command{
	Use:   "weatherctl",
	Short: "Provision a host to run the weather-data collector under systemd",
	Long: `weatherctl sets up an Ubuntu host so the weather-data collector runs on a
fixed cadence under systemd: service account, system packages, source
checkout, python virtualenv, unit files, timer activation, verification.

  weatherctl install   run the full provisioning pipeline
  weatherctl status    re-run verification and show unit state
  weatherctl run       execute one collection in the foreground`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: wxcli.Wrap(func(rc *wxio.RuntimeContext, cmd *cobra.Command, args []string) error {
		rc.Log.Info("No subcommand provided, showing help")
		return cmd.Help()
	}),
}

// RegisterCommands attaches all subcommands to the root command.
func RegisterCommands() {
	RootCmd.AddCommand(install.InstallCmd)
	RootCmd.AddCommand(status.StatusCmd)
	RootCmd.AddCommand(run.RunCmd)
}

// Execute runs the root command and maps the error taxonomy onto exit
// codes: 0 success, 2 invalid input, 130 user cancellation, 1 otherwise.
func Execute() {
	defer logger.Sync()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if wxerr.IsExpectedUserError(err) {
			logger.L().Warn("Command completed with user error", zap.String("error", err.Error()))
		} else {
			logger.L().Error("Command execution failed", zap.Error(err))
		}
		os.Exit(wxerr.GetExitCode(err))
	}
}
