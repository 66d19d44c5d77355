// pkg/apt/apt.go

package apt

import (
	"context"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/i474232898/weatherctl/pkg/execute"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// noninteractive keeps dpkg from blocking an unattended run on config
// prompts.
var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// UpdateIndex refreshes the apt package index. Failures are the caller's
// business to tolerate; a stale index usually still installs.
func UpdateIndex(ctx context.Context) error {
	otelzap.Ctx(ctx).Info("Updating apt package index")

	_, err := execute.Run(ctx, execute.Options{
		Command: "apt-get",
		Args:    []string{"update"},
		Env:     aptEnv,
		Timeout: 5 * time.Minute,
	})
	if err != nil {
		return cerr.Wrap(err, "apt-get update failed")
	}
	return nil
}

// InstallPackages installs the named packages, streaming apt's output to
// the operator. The changed return is false when apt reports nothing to do.
func InstallPackages(ctx context.Context, packages []string) (bool, error) {
	logger := otelzap.Ctx(ctx)
	logger.Info("Installing system packages",
		zap.Strings("packages", packages),
		zap.Int("count", len(packages)))

	args := append([]string{"install", "-y"}, packages...)
	output, err := execute.Run(ctx, execute.Options{
		Command: "apt-get",
		Args:    args,
		Env:     aptEnv,
		Capture: true,
		Timeout: 15 * time.Minute,
	})
	if err != nil {
		return false, cerr.Wrapf(err, "apt-get install failed for %v", packages)
	}

	changed := installChangedHost(output)
	logger.Info("System packages installed", zap.Bool("changed", changed))
	return changed, nil
}

// installChangedHost reads apt's action summary line ("0 upgraded, 0 newly
// installed, ...") to tell a no-op install apart from a real one. An
// unrecognized output format counts as changed.
func installChangedHost(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "0 upgraded, 0 newly installed") {
			return false
		}
	}
	return true
}
