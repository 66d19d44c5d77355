// pkg/provision/commander.go

package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	goversion "github.com/hashicorp/go-version"
	"github.com/i474232898/weatherctl/pkg/account"
	"github.com/i474232898/weatherctl/pkg/apt"
	"github.com/i474232898/weatherctl/pkg/execute"
	"github.com/i474232898/weatherctl/pkg/fileops"
	"github.com/i474232898/weatherctl/pkg/gitrepo"
	"github.com/i474232898/weatherctl/pkg/platform"
	"github.com/i474232898/weatherctl/pkg/pyenv"
	"github.com/i474232898/weatherctl/pkg/systemd"
	"mvdan.cc/sh/v3/syntax"
)

// SystemCommander is the capability seam between the pipeline and the host.
// Every host-mutating operation goes through it, so the pipeline can run
// against a recording fake in tests. The live implementation delegates to
// the concern packages.
type SystemCommander interface {
	DetectPlatform(ctx context.Context) (*platform.OSRelease, error)
	HostInfo() (*platform.HostInfo, error)

	UpdatePackageIndex(ctx context.Context) error
	InstallPackages(ctx context.Context, packages []string) (bool, error)

	UserExists(username string) bool
	CreateUser(ctx context.Context, username, home string) error
	AddUserToGroups(ctx context.Context, username string, groups ...string) ([]string, error)
	SetUserPassword(ctx context.Context, username, password string) error
	GrantPasswordlessSudo(ctx context.Context, username string) error

	CloneOrUpdateRepo(ctx context.Context, url, branch, dir string) (*gitrepo.SyncResult, error)

	CheckPythonInterpreter(ctx context.Context) (*goversion.Version, error)
	EnsureVenv(ctx context.Context, dir string) (bool, error)
	PipInstallRequirements(ctx context.Context, pip, manifest string) error

	ChownRecursive(ctx context.Context, dir, owner, group string) (bool, error)
	MarkPythonFilesExecutable(ctx context.Context, dir string) (int, error)

	WriteUnitFile(ctx context.Context, path, content string) (backupPath string, changed bool, err error)
	ReloadUnits(ctx context.Context) error
	EnableAndStartUnit(ctx context.Context, unit string) error
	StartUnit(ctx context.Context, unit string) error
	QueryUnitActive(ctx context.Context, unit string) systemd.ActiveState
	CaptureUnitDiagnostics(ctx context.Context, unit string, lines int) systemd.Diagnostics
	TimerSchedule(ctx context.Context, timer string) (state, nextRun string, err error)

	TailLog(path string, lines int) (string, error)
	WaitForPath(ctx context.Context, path string, timeout time.Duration) bool

	RunAsUser(ctx context.Context, username, workdir string, argv []string) error
}

// HostCommander is the live SystemCommander. It owns no state; it exists so
// the concern packages sit behind one mockable surface.
type HostCommander struct{}

// NewHostCommander returns the SystemCommander that acts on the real host.
func NewHostCommander() *HostCommander { return &HostCommander{} }

var _ SystemCommander = (*HostCommander)(nil)

func (h *HostCommander) DetectPlatform(ctx context.Context) (*platform.OSRelease, error) {
	return platform.DetectOSRelease(ctx)
}

func (h *HostCommander) HostInfo() (*platform.HostInfo, error) {
	return platform.Uname()
}

func (h *HostCommander) UpdatePackageIndex(ctx context.Context) error {
	return apt.UpdateIndex(ctx)
}

func (h *HostCommander) InstallPackages(ctx context.Context, packages []string) (bool, error) {
	return apt.InstallPackages(ctx, packages)
}

func (h *HostCommander) UserExists(username string) bool {
	return account.Exists(username)
}

func (h *HostCommander) CreateUser(ctx context.Context, username, home string) error {
	return account.Create(ctx, username, home)
}

func (h *HostCommander) AddUserToGroups(ctx context.Context, username string, groups ...string) ([]string, error) {
	return account.AddToGroups(ctx, username, groups...)
}

func (h *HostCommander) SetUserPassword(ctx context.Context, username, password string) error {
	return account.SetPassword(ctx, username, password)
}

func (h *HostCommander) GrantPasswordlessSudo(ctx context.Context, username string) error {
	return account.GrantPasswordlessSudo(ctx, username)
}

func (h *HostCommander) CloneOrUpdateRepo(ctx context.Context, url, branch, dir string) (*gitrepo.SyncResult, error) {
	return gitrepo.CloneOrUpdate(ctx, gitrepo.SyncOptions{URL: url, Branch: branch, Dir: dir})
}

func (h *HostCommander) CheckPythonInterpreter(ctx context.Context) (*goversion.Version, error) {
	return pyenv.RequireInterpreter(ctx)
}

func (h *HostCommander) EnsureVenv(ctx context.Context, dir string) (bool, error) {
	return pyenv.EnsureVenv(ctx, dir)
}

func (h *HostCommander) PipInstallRequirements(ctx context.Context, pip, manifest string) error {
	return pyenv.InstallRequirements(ctx, pip, manifest)
}

func (h *HostCommander) ChownRecursive(ctx context.Context, dir, owner, group string) (bool, error) {
	return fileops.ChownRecursive(ctx, dir, owner, group)
}

func (h *HostCommander) MarkPythonFilesExecutable(ctx context.Context, dir string) (int, error) {
	return fileops.MarkPythonFilesExecutable(ctx, dir)
}

func (h *HostCommander) WriteUnitFile(ctx context.Context, path, content string) (string, bool, error) {
	return systemd.WriteUnit(ctx, path, content)
}

func (h *HostCommander) ReloadUnits(ctx context.Context) error {
	return systemd.DaemonReload(ctx)
}

func (h *HostCommander) EnableAndStartUnit(ctx context.Context, unit string) error {
	return systemd.EnableNow(ctx, unit)
}

func (h *HostCommander) StartUnit(ctx context.Context, unit string) error {
	return systemd.Start(ctx, unit)
}

func (h *HostCommander) QueryUnitActive(ctx context.Context, unit string) systemd.ActiveState {
	return systemd.QueryActive(ctx, unit)
}

func (h *HostCommander) CaptureUnitDiagnostics(ctx context.Context, unit string, lines int) systemd.Diagnostics {
	return systemd.CaptureDiagnostics(ctx, unit, lines)
}

func (h *HostCommander) TimerSchedule(ctx context.Context, timer string) (string, string, error) {
	return systemd.TimerSchedule(ctx, timer)
}

func (h *HostCommander) TailLog(path string, lines int) (string, error) {
	return fileops.TailFile(path, lines)
}

func (h *HostCommander) WaitForPath(ctx context.Context, path string, timeout time.Duration) bool {
	return fileops.WaitForFile(ctx, path, timeout)
}

// RunAsUser runs argv as username through a login shell, so the collector
// sees the same environment the service user would get interactively. Each
// element is shell-quoted before interpolation.
func (h *HostCommander) RunAsUser(ctx context.Context, username, workdir string, argv []string) error {
	script, err := loginShellScript(workdir, argv)
	if err != nil {
		return err
	}

	_, err = execute.Run(ctx, execute.Options{
		Command: "su",
		Args:    []string{"-", username, "-c", script},
		Timeout: 10 * time.Minute,
	})
	if err != nil {
		return cerr.Wrapf(err, "run as %s", username)
	}
	return nil
}

func loginShellScript(workdir string, argv []string) (string, error) {
	quoted := make([]string, 0, len(argv)+1)

	dir, err := syntax.Quote(workdir, syntax.LangBash)
	if err != nil {
		return "", cerr.Wrapf(err, "quote workdir %q", workdir)
	}
	for _, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return "", cerr.Wrapf(err, "quote argument %q", arg)
		}
		quoted = append(quoted, q)
	}

	return fmt.Sprintf("cd %s && %s", dir, strings.Join(quoted, " ")), nil
}
