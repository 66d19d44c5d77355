// pkg/pyenv/pyenv.go

package pyenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	goversion "github.com/hashicorp/go-version"
	"github.com/i474232898/weatherctl/pkg/execute"
	"github.com/i474232898/weatherctl/pkg/fileops"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// MinimumVersion is the oldest interpreter the collector supports.
const MinimumVersion = "3.8.0"

// InterpreterVersion asks python3 for its version.
func InterpreterVersion(ctx context.Context) (*goversion.Version, error) {
	out, err := execute.RunQuiet(ctx, "python3", "--version")
	if err != nil {
		return nil, wxerr.NewExpectedError(ctx, wxerr.NewDependencyError(
			"python3", "running the collector",
			"Install it with: apt-get install -y python3",
		))
	}

	// Output looks like "Python 3.12.3".
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) < 2 {
		return nil, cerr.Newf("unexpected python3 --version output: %q", out)
	}

	v, err := goversion.NewVersion(fields[len(fields)-1])
	if err != nil {
		return nil, cerr.Wrapf(err, "cannot parse python version %q", fields[len(fields)-1])
	}
	return v, nil
}

// RequireInterpreter verifies python3 is present and at least
// MinimumVersion.
func RequireInterpreter(ctx context.Context) (*goversion.Version, error) {
	v, err := InterpreterVersion(ctx)
	if err != nil {
		return nil, err
	}

	min := goversion.Must(goversion.NewVersion(MinimumVersion))
	if v.LessThan(min) {
		return v, wxerr.NewExpectedError(ctx, cerr.Newf(
			"python %s is too old; the collector needs at least %s", v, MinimumVersion))
	}

	otelzap.Ctx(ctx).Debug("Python interpreter accepted", zap.String("version", v.String()))
	return v, nil
}

// VenvExists reports whether dir already holds a virtual environment.
func VenvExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "pyvenv.cfg"))
	return err == nil
}

// EnsureVenv creates a virtual environment at dir when none exists.
// Returns true when it created one.
func EnsureVenv(ctx context.Context, dir string) (bool, error) {
	logger := otelzap.Ctx(ctx)

	if VenvExists(dir) {
		logger.Debug("Virtual environment already present", zap.String("dir", dir))
		return false, nil
	}

	logger.Info("Creating virtual environment", zap.String("dir", dir))
	if out, err := execute.RunQuiet(ctx, "python3", "-m", "venv", dir); err != nil {
		return false, cerr.Wrapf(err, "failed to create venv at %s: %s", dir, strings.TrimSpace(out))
	}
	return true, nil
}

// InstallRequirements installs the dependency manifest into the venv whose
// pip binary is given. A missing manifest is fatal; the error shows what
// the project directory actually contains so the operator can tell a bad
// checkout from a bad path.
func InstallRequirements(ctx context.Context, pip, manifest string) error {
	logger := otelzap.Ctx(ctx)

	if _, err := os.Stat(manifest); err != nil {
		projectDir := filepath.Dir(manifest)
		listing := strings.Join(fileops.ListDirEntries(projectDir), "\n  ")
		return wxerr.NewExpectedError(ctx, cerr.Newf(
			"dependency manifest %s not found\n\nContents of %s:\n  %s",
			manifest, projectDir, listing))
	}

	// A stale bundled pip regularly breaks installs; upgrade it quietly
	// and move on if that fails.
	if out, err := execute.RunQuiet(ctx, pip, "install", "--quiet", "--upgrade", "pip"); err != nil {
		logger.Warn("pip self-upgrade failed, continuing",
			zap.String("output", strings.TrimSpace(out)), zap.Error(err))
	}

	logger.Info("Installing python dependencies", zap.String("manifest", manifest))
	_, err := execute.Run(ctx, execute.Options{
		Command: pip,
		Args:    []string{"install", "-r", manifest},
		Timeout: 15 * time.Minute,
	})
	if err != nil {
		return cerr.Wrapf(err, "pip install -r %s failed", manifest)
	}

	logger.Info("Python dependencies installed")
	return nil
}
