// cmd/run/run.go

package run

import (
	"github.com/i474232898/weatherctl/pkg/interaction"
	"github.com/i474232898/weatherctl/pkg/privilege"
	"github.com/i474232898/weatherctl/pkg/provision"
	"github.com/i474232898/weatherctl/pkg/wxcli"
	"github.com/i474232898/weatherctl/pkg/wxio"
	"github.com/spf13/cobra"
)

// RunCmd executes one collection in the foreground as the service user, the
// same smoke run the install pipeline finishes with. Useful after changing
// collector code or credentials without waiting for the next timer elapse.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one weather collection in the foreground",
	Example: `  sudo weatherctl run
  sudo weatherctl run --user metrics`,
	RunE: wxcli.Wrap(runOnce),
}

func init() {
	wxcli.RegisterConfigFlags(RunCmd)
}

func runOnce(rc *wxio.RuntimeContext, cmd *cobra.Command, args []string) error {
	if err := privilege.RequireRoot(rc.Ctx); err != nil {
		return err
	}

	cfg, err := provision.Load(rc.Ctx, cmd.Flags(), wxcli.GetStringOrEmpty(cmd, "config"))
	if err != nil {
		return err
	}

	prov := provision.New(cfg, provision.NewHostCommander(), interaction.NewTerminalPrompter())
	return prov.SmokeRun(rc.Ctx)
}
