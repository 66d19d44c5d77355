// cmd/install/install.go

package install

import (
	"github.com/i474232898/weatherctl/pkg/interaction"
	"github.com/i474232898/weatherctl/pkg/provision"
	"github.com/i474232898/weatherctl/pkg/wxcli"
	"github.com/i474232898/weatherctl/pkg/wxio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// InstallCmd provisions the host end to end: packages, service account,
// source checkout, virtualenv, systemd units, timer, verification.
var InstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision this host to run the weather-data collector",
	Long: `Install runs the full provisioning pipeline as root. Steps that are
already satisfied are detected and skipped, so re-running after a partial
failure is safe.

With --profile unattended (or --yes) no questions are asked and the
collector runs every 5 minutes; the interactive default asks about the
service account and schedules every 15 minutes.`,
	Example: `  sudo weatherctl install
  sudo weatherctl install --profile unattended
  sudo weatherctl install --user metrics --every 10m`,
	RunE: wxcli.Wrap(runInstall),
}

func init() {
	wxcli.RegisterConfigFlags(InstallCmd)
}

func runInstall(rc *wxio.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, err := provision.Load(rc.Ctx, cmd.Flags(), wxcli.GetStringOrEmpty(cmd, "config"))
	if err != nil {
		return err
	}

	rc.Log.Info("Starting provisioning pipeline",
		zap.String("profile", cfg.Profile),
		zap.String("user", cfg.ServiceUser),
		zap.String("cadence", cfg.CadenceHuman()))

	prov := provision.New(cfg, provision.NewHostCommander(), interaction.NewTerminalPrompter())
	prov.RunID = rc.RunID

	_, err = prov.Install(rc.Ctx)
	return err
}
