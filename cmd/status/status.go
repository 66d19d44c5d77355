// cmd/status/status.go

package status

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/i474232898/weatherctl/pkg/interaction"
	"github.com/i474232898/weatherctl/pkg/provision"
	"github.com/i474232898/weatherctl/pkg/wxcli"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/i474232898/weatherctl/pkg/wxio"
	"github.com/spf13/cobra"
)

// StatusCmd re-runs the verification portion of the pipeline: unit states,
// timer schedule, recent collector log output, and the last provisioning
// record. It does not change anything on the host and skips the settle delay.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collector unit state, timer schedule, and recent log output",
	Example: `  weatherctl status
  weatherctl status --log-tail 50`,
	RunE: wxcli.Wrap(runStatus),
}

func init() {
	wxcli.RegisterConfigFlags(StatusCmd)
}

func runStatus(rc *wxio.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, err := provision.Load(rc.Ctx, cmd.Flags(), wxcli.GetStringOrEmpty(cmd, "config"))
	if err != nil {
		return err
	}

	prov := provision.New(cfg, provision.NewHostCommander(), interaction.NewTerminalPrompter())
	res, err := prov.Status(rc.Ctx)
	if err != nil {
		return err
	}
	if res.Outcome == provision.OutcomeFailed {
		// Diagnostics were already printed; surface a non-zero exit for scripts.
		return wxerr.NewExpectedError(rc.Ctx, cerr.Newf("verification found problems: %s", res.Warning))
	}
	return nil
}
