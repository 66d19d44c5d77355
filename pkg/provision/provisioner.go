// pkg/provision/provisioner.go

package provision

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/i474232898/weatherctl/pkg/account"
	"github.com/i474232898/weatherctl/pkg/gitrepo"
	"github.com/i474232898/weatherctl/pkg/interaction"
	"github.com/i474232898/weatherctl/pkg/privilege"
	"github.com/i474232898/weatherctl/pkg/systemd"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Provisioner wires the pipeline steps to a host and an input source.
type Provisioner struct {
	cfg *Config
	sys SystemCommander
	ask interaction.Prompter

	// RunID is stamped into the provisioning record; the cmd layer sets it
	// from the runtime context.
	RunID string

	// requireRoot is swappable in tests; everything else in the pipeline
	// already runs against the SystemCommander seam.
	requireRoot func(ctx context.Context) error
	statePath   string

	results []StepResult
}

// New builds a Provisioner around a configuration, a host commander, and a
// prompter. The unattended profile never touches the prompter.
func New(cfg *Config, sys SystemCommander, ask interaction.Prompter) *Provisioner {
	return &Provisioner{
		cfg:         cfg,
		sys:         sys,
		ask:         ask,
		requireRoot: privilege.RequireRoot,
		statePath:   DefaultStatePath,
	}
}

// Steps returns the install pipeline in execution order.
func (p *Provisioner) Steps() []Step {
	return []Step{
		{Name: "preflight", Fatal: true, Run: p.preflight},
		{Name: "service-account", Fatal: true, Run: p.serviceAccount},
		{Name: "system-packages", Fatal: true, Run: p.systemPackages},
		{Name: "source-checkout", Fatal: true, Run: p.sourceCheckout},
		{Name: "python-environment", Fatal: true, Run: p.pythonEnvironment},
		{Name: "ownership", Fatal: true, Run: p.ownership},
		{Name: "unit-files", Fatal: true, Run: p.unitFiles},
		{Name: "unit-activation", Fatal: true, Run: p.unitActivation},
		{Name: "verification", Fatal: false, Run: p.verification},
		{Name: "summary", Fatal: false, Run: p.summary},
		{Name: "smoke-run", Fatal: false, Run: p.smokeRun},
	}
}

// Install runs the whole pipeline and reports the per-step outcomes.
func (p *Provisioner) Install(ctx context.Context) ([]StepResult, error) {
	p.results = p.results[:0]
	err := RunPipeline(ctx, p.cfg, p.Steps(), &p.results)
	ReportResults(ctx, p.results)
	return p.results, err
}

// Status re-runs the verification portion on demand, without the settle
// delay, and reports the timer schedule and the last provisioning record.
func (p *Provisioner) Status(ctx context.Context) (StepResult, error) {
	logger := otelzap.Ctx(ctx)

	res, err := p.verify(ctx, p.cfg, false)
	if err != nil {
		return res, err
	}

	if state, next, terr := p.sys.TimerSchedule(ctx, p.cfg.TimerUnitName()); terr == nil {
		logger.Info("terminal prompt: Timer "+p.cfg.TimerUnitName()+" is "+state+", next elapse: "+next,
			zap.String("unit", p.cfg.TimerUnitName()))
	} else {
		logger.Debug("Timer schedule unavailable", zap.Error(terr))
	}

	if rec, lerr := LoadRecord(p.statePath); lerr == nil {
		logger.Info("terminal prompt: Last provisioned " + rec.Timestamp.Format(time.RFC1123) + " on " + rec.Hostname)
	}
	return res, nil
}

// SmokeRun executes one synchronous collector run as the service user.
// Inside the install pipeline a failure is tolerated; `weatherctl run`
// treats it as fatal.
func (p *Provisioner) SmokeRun(ctx context.Context) error {
	cfg := p.cfg
	err := p.sys.RunAsUser(ctx, cfg.ServiceUser, cfg.ProjectDir,
		[]string{cfg.PythonBin(), filepath.Join("src", "weather_data.py")})
	if err != nil {
		return cerr.WithHint(err,
			fmt.Sprintf("Inspect 'journalctl -u %s -n 50' for collector errors", cfg.ServiceUnitName()))
	}
	return nil
}

// preflight gates the pipeline on root and records what host it is about to
// change. Nothing here mutates state, so the root check runs before any
// commander call.
func (p *Provisioner) preflight(ctx context.Context, cfg *Config) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	res := StepResult{Outcome: OutcomeSatisfied}

	// ASSESS - everything after this point assumes root
	if err := p.requireRoot(ctx); err != nil {
		return res, err
	}

	osr, err := p.sys.DetectPlatform(ctx)
	switch {
	case err != nil:
		logger.Warn("Could not read /etc/os-release; distro checks skipped", zap.Error(err))
		res.Warning = "os-release unreadable"
	case !osr.IsDebianFamily():
		logger.Warn("Host is not Debian-family; apt steps may fail",
			zap.String("id", osr.ID),
			zap.String("pretty_name", osr.PrettyName))
		res.Warning = fmt.Sprintf("unsupported distro %q, continuing anyway", osr.ID)
	default:
		logger.Info("Host platform",
			zap.String("pretty_name", osr.PrettyName),
			zap.String("version", osr.VersionID))
	}

	if info, herr := p.sys.HostInfo(); herr == nil {
		logger.Info("Host kernel",
			zap.String("kernel", info.Kernel),
			zap.String("release", info.Release),
			zap.String("machine", info.Machine))
	}

	// EVALUATE - python may legitimately be missing here; the packages step
	// installs it and the python-environment step enforces the version gate.
	if ver, perr := p.sys.CheckPythonInterpreter(ctx); perr != nil {
		logger.Info("python3 not ready yet; it arrives with the system packages")
	} else {
		logger.Info("python3 present", zap.String("version", ver.String()))
	}

	res.Reason = "running as root"
	return res, nil
}

// serviceAccount resolves or creates the account the collector runs under.
// Existing accounts are adopted without prompting; group membership is still
// converged and never duplicated.
func (p *Provisioner) serviceAccount(ctx context.Context, cfg *Config) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	res := StepResult{}

	// ASSESS
	if p.sys.UserExists(cfg.ServiceUser) {
		return p.adoptExistingUser(ctx, cfg)
	}

	// INTERVENE
	wantSudo := false
	password := ""
	if cfg.Interactive() {
		name, err := p.ask.ReadValue(ctx, "Username for the collector service", cfg.ServiceUser)
		if err != nil {
			return res, err
		}
		name = strings.TrimSpace(name)
		if err := account.ValidateUsername(ctx, name); err != nil {
			return res, err
		}
		cfg.RebaseUser(name)

		// The prompted name may exist after all.
		if p.sys.UserExists(cfg.ServiceUser) {
			return p.adoptExistingUser(ctx, cfg)
		}

		ok, err := p.ask.Confirm(ctx, fmt.Sprintf("Create service user %q", cfg.ServiceUser), true)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, wxerr.NewExpectedError(ctx, wxerr.NewUserCancelledError("service user creation"))
		}

		setPwd, err := p.ask.Confirm(ctx, "Set a password for this account", false)
		if err != nil {
			return res, err
		}
		if setPwd {
			password, err = p.readPasswordTwice(ctx)
			if err != nil {
				return res, err
			}
		}

		wantSudo, err = p.ask.Confirm(ctx, "Grant passwordless sudo", false)
		if err != nil {
			return res, err
		}
	}

	if err := p.sys.CreateUser(ctx, cfg.ServiceUser, ""); err != nil {
		return res, err
	}
	if password != "" {
		if err := p.sys.SetUserPassword(ctx, cfg.ServiceUser, password); err != nil {
			return res, err
		}
	}

	groups := []string{"adm"}
	if wantSudo {
		if err := p.sys.GrantPasswordlessSudo(ctx, cfg.ServiceUser); err != nil {
			return res, err
		}
		groups = append(groups, "sudo")
	}
	if _, err := p.sys.AddUserToGroups(ctx, cfg.ServiceUser, groups...); err != nil {
		return res, err
	}

	logger.Info("Service user created",
		zap.String("user", cfg.ServiceUser),
		zap.Bool("sudo", wantSudo))
	res.Outcome = OutcomeConverged
	res.Reason = fmt.Sprintf("created service user %s", cfg.ServiceUser)
	return res, nil
}

// adoptExistingUser converges group membership for an account that already
// exists. It never prompts, never sets a password, never grants sudo.
func (p *Provisioner) adoptExistingUser(ctx context.Context, cfg *Config) (StepResult, error) {
	res := StepResult{}

	added, err := p.sys.AddUserToGroups(ctx, cfg.ServiceUser, "adm")
	if err != nil {
		return res, err
	}
	if len(added) == 0 {
		res.Outcome = OutcomeSatisfied
		res.Reason = fmt.Sprintf("user %s already provisioned", cfg.ServiceUser)
	} else {
		res.Outcome = OutcomeConverged
		res.Reason = fmt.Sprintf("user %s joined group(s) %s", cfg.ServiceUser, strings.Join(added, ", "))
	}
	return res, nil
}

// readPasswordTwice prompts for a password with confirmation. An empty
// first entry skips the password; after three mismatches the account is
// created without one.
func (p *Provisioner) readPasswordTwice(ctx context.Context) (string, error) {
	logger := otelzap.Ctx(ctx)

	for attempt := 0; attempt < 3; attempt++ {
		first, err := p.ask.ReadSecret(ctx, "Password")
		if err != nil {
			return "", err
		}
		if first == "" {
			logger.Info("terminal prompt: Empty password, skipping")
			return "", nil
		}
		second, err := p.ask.ReadSecret(ctx, "Confirm password")
		if err != nil {
			return "", err
		}
		if first == second {
			return first, nil
		}
		logger.Info("terminal prompt: Passwords did not match, try again")
	}

	logger.Warn("Passwords never matched; account will have no password")
	return "", nil
}

func (p *Provisioner) systemPackages(ctx context.Context, cfg *Config) (StepResult, error) {
	res := StepResult{}

	// Index refresh failures are survivable; installs usually still
	// resolve against the cached lists.
	if err := p.sys.UpdatePackageIndex(ctx); err != nil {
		otelzap.Ctx(ctx).Warn("apt-get update failed, installing against the cached index",
			zap.Error(err))
		res.Warning = "package index refresh failed, used cached lists"
	}

	changed, err := p.sys.InstallPackages(ctx, cfg.Packages)
	if err != nil {
		return res, err
	}

	if changed {
		res.Outcome = OutcomeConverged
		res.Reason = "installed " + strings.Join(cfg.Packages, " ")
	} else {
		res.Outcome = OutcomeSatisfied
		res.Reason = "packages already present"
	}
	return res, nil
}

func (p *Provisioner) sourceCheckout(ctx context.Context, cfg *Config) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	res := StepResult{}

	sync, err := p.sys.CloneOrUpdateRepo(ctx, cfg.RepoURL, cfg.RepoBranch, cfg.ProjectDir)
	if err != nil {
		if sync != nil && sync.Outcome == gitrepo.OutcomeUpdateFailed {
			// The working tree we have still serves; provisioning
			// continues against the stale checkout.
			logger.Warn("Repository update failed, keeping existing checkout",
				zap.String("dir", cfg.ProjectDir),
				zap.Error(err))
			res.Outcome = OutcomeSatisfied
			res.Reason = "existing checkout retained"
			res.Warning = fmt.Sprintf("checkout is stale: %v", err)
			return res, nil
		}
		return res, err
	}

	switch sync.Outcome {
	case gitrepo.OutcomeCloned:
		res.Outcome = OutcomeConverged
		res.Reason = fmt.Sprintf("cloned %s at %.12s", cfg.RepoURL, sync.Commit)
	case gitrepo.OutcomeUpdated:
		res.Outcome = OutcomeConverged
		res.Reason = fmt.Sprintf("fast-forwarded to %.12s", sync.Commit)
	default:
		res.Outcome = OutcomeSatisfied
		res.Reason = fmt.Sprintf("checkout current at %.12s", sync.Commit)
	}
	return res, nil
}

func (p *Provisioner) pythonEnvironment(ctx context.Context, cfg *Config) (StepResult, error) {
	res := StepResult{}

	// ASSESS - packages are installed by now, so the version gate is hard
	ver, err := p.sys.CheckPythonInterpreter(ctx)
	if err != nil {
		return res, err
	}
	otelzap.Ctx(ctx).Debug("Interpreter accepted", zap.String("version", ver.String()))

	created, err := p.sys.EnsureVenv(ctx, cfg.VenvDir)
	if err != nil {
		return res, err
	}

	if err := p.sys.PipInstallRequirements(ctx, cfg.PipBin(), cfg.RequirementsPath()); err != nil {
		return res, err
	}

	if created {
		res.Outcome = OutcomeConverged
		res.Reason = fmt.Sprintf("virtualenv created at %s, requirements installed", cfg.VenvDir)
	} else {
		res.Outcome = OutcomeSatisfied
		res.Reason = "virtualenv present, requirements refreshed"
	}
	return res, nil
}

func (p *Provisioner) ownership(ctx context.Context, cfg *Config) (StepResult, error) {
	res := StepResult{}

	chowned, err := p.sys.ChownRecursive(ctx, cfg.ProjectDir, cfg.ServiceUser, cfg.Group)
	if err != nil {
		return res, err
	}
	if !cfg.VenvInsideProject() {
		venvChowned, verr := p.sys.ChownRecursive(ctx, cfg.VenvDir, cfg.ServiceUser, cfg.Group)
		if verr != nil {
			return res, verr
		}
		chowned = chowned || venvChowned
	}

	marked, err := p.sys.MarkPythonFilesExecutable(ctx, cfg.ProjectDir)
	if err != nil {
		return res, err
	}

	if chowned || marked > 0 {
		res.Outcome = OutcomeConverged
		res.Reason = fmt.Sprintf("%s owned by %s:%s, %d python file(s) made executable",
			cfg.ProjectDir, cfg.ServiceUser, cfg.Group, marked)
	} else {
		res.Outcome = OutcomeSatisfied
		res.Reason = "ownership and modes already correct"
	}
	return res, nil
}

func (p *Provisioner) unitFiles(ctx context.Context, cfg *Config) (StepResult, error) {
	res := StepResult{}

	service := systemd.RenderService(systemd.ServiceSpec{
		User:       cfg.ServiceUser,
		Group:      cfg.Group,
		ProjectDir: cfg.ProjectDir,
		PythonBin:  cfg.PythonBin(),
		EntryPoint: cfg.EntryPoint(),
	})
	timer := systemd.RenderTimer(systemd.TimerSpec{
		OnCalendar: cfg.OnCalendar(),
		Unit:       cfg.ServiceUnitName(),
	})

	svcBackup, svcChanged, err := p.sys.WriteUnitFile(ctx, cfg.ServiceUnitPath, service)
	if err != nil {
		return res, err
	}
	timerBackup, timerChanged, err := p.sys.WriteUnitFile(ctx, cfg.TimerUnitPath, timer)
	if err != nil {
		return res, err
	}

	if svcChanged || timerChanged {
		res.Outcome = OutcomeConverged
		res.Reason = "unit files rendered"
	} else {
		res.Outcome = OutcomeSatisfied
		res.Reason = "unit files already current"
	}

	var backups []string
	for _, b := range []string{svcBackup, timerBackup} {
		if b != "" {
			backups = append(backups, b)
		}
	}
	if len(backups) > 0 {
		res.Reason += fmt.Sprintf(" (backups: %s)", strings.Join(backups, ", "))
	}
	return res, nil
}

func (p *Provisioner) unitActivation(ctx context.Context, cfg *Config) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	res := StepResult{}

	timerWasActive := p.sys.QueryUnitActive(ctx, cfg.TimerUnitName()) == systemd.StateActive

	if err := p.sys.ReloadUnits(ctx); err != nil {
		return res, err
	}
	if err := p.sys.EnableAndStartUnit(ctx, cfg.TimerUnitName()); err != nil {
		return res, err
	}

	// Kick off one collection right away. A failure here surfaces in the
	// verification step with full diagnostics instead of aborting.
	if err := p.sys.StartUnit(ctx, cfg.ServiceUnitName()); err != nil {
		logger.Warn("Immediate service start failed; verification will diagnose",
			zap.String("unit", cfg.ServiceUnitName()),
			zap.Error(err))
		res.Warning = fmt.Sprintf("initial start of %s failed: %v", cfg.ServiceUnitName(), err)
	}

	if timerWasActive {
		res.Outcome = OutcomeSatisfied
		res.Reason = fmt.Sprintf("%s already active, re-enabled", cfg.TimerUnitName())
	} else {
		res.Outcome = OutcomeConverged
		res.Reason = fmt.Sprintf("%s enabled and started", cfg.TimerUnitName())
	}
	return res, nil
}

func (p *Provisioner) verification(ctx context.Context, cfg *Config) (StepResult, error) {
	return p.verify(ctx, cfg, true)
}

// verify is shared by the install pipeline and `weatherctl status`. The
// settle delay and the wait for the first log write only apply right after
// activation; status checks the host as it is.
func (p *Provisioner) verify(ctx context.Context, cfg *Config, settle bool) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	res := StepResult{Name: "verification", Outcome: OutcomeSatisfied}

	if settle && cfg.SettleDelay > 0 {
		logger.Info("Waiting for units to settle", zap.Duration("delay", cfg.SettleDelay))
		select {
		case <-time.After(cfg.SettleDelay):
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}

	var warnings []string
	unitTrouble := false

	serviceUnit := cfg.ServiceUnitName()
	switch state := p.sys.QueryUnitActive(ctx, serviceUnit); state {
	case systemd.StateActive, systemd.StateActivating:
		logger.Info("Service unit healthy",
			zap.String("unit", serviceUnit),
			zap.String("state", string(state)))
	case systemd.StateInactive:
		// A Type=simple collector exits when its run finishes, so inactive
		// right after a kickoff usually means the run already completed.
		logger.Info("Service inactive; the collector may simply have finished its run",
			zap.String("unit", serviceUnit))
	default:
		diag := p.sys.CaptureUnitDiagnostics(ctx, serviceUnit, cfg.JournalTail)
		logger.Warn("Service unit unhealthy",
			zap.String("unit", serviceUnit),
			zap.String("state", string(state)),
			zap.String("status", diag.Status),
			zap.String("journal", diag.Journal))
		warnings = append(warnings, fmt.Sprintf("%s is %s", serviceUnit, state))
		unitTrouble = true
	}

	timerUnit := cfg.TimerUnitName()
	if state := p.sys.QueryUnitActive(ctx, timerUnit); state == systemd.StateActive {
		logger.Info("Timer unit active", zap.String("unit", timerUnit))
	} else {
		diag := p.sys.CaptureUnitDiagnostics(ctx, timerUnit, cfg.JournalTail)
		logger.Warn("Timer unit not active",
			zap.String("unit", timerUnit),
			zap.String("state", string(state)),
			zap.String("status", diag.Status),
			zap.String("journal", diag.Journal))
		warnings = append(warnings, fmt.Sprintf("%s is %s", timerUnit, state))
		unitTrouble = true
	}

	logPath := cfg.AppLogPath()
	tail, err := p.sys.TailLog(logPath, cfg.LogTail)
	if err != nil && settle {
		// The first collector run may not have written anything yet.
		if p.sys.WaitForPath(ctx, logPath, 10*time.Second) {
			tail, err = p.sys.TailLog(logPath, cfg.LogTail)
		}
	}
	if err != nil {
		logger.Warn("terminal prompt: no application log yet; too early to tell",
			zap.String("path", logPath))
		warnings = append(warnings, "no application log yet; too early to tell")
	} else {
		logger.Info("terminal prompt: Recent collector log output ("+logPath+")",
			zap.Int("lines", cfg.LogTail))
		for _, line := range strings.Split(strings.TrimRight(tail, "\n"), "\n") {
			logger.Info("terminal prompt:   " + line)
		}
	}

	res.Warning = strings.Join(warnings, "; ")
	if unitTrouble {
		res.Outcome = OutcomeFailed
		res.Reason = "unit state anomalies, see warnings"
	} else {
		res.Reason = "units verified"
	}
	return res, nil
}

func (p *Provisioner) summary(ctx context.Context, cfg *Config) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	res := StepResult{Outcome: OutcomeSatisfied, Reason: "cheat sheet printed"}

	for _, line := range strings.Split(strings.TrimRight(CheatSheet(cfg), "\n"), "\n") {
		logger.Info("terminal prompt: " + line)
	}

	if err := p.saveRecord(ctx, cfg); err != nil {
		logger.Warn("Could not persist provisioning record",
			zap.String("path", p.statePath),
			zap.Error(err))
		res.Warning = fmt.Sprintf("state record not written: %v", err)
	}
	return res, nil
}

func (p *Provisioner) smokeRun(ctx context.Context, cfg *Config) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	res := StepResult{}

	logger.Info("terminal prompt: Running the collector once in the foreground as " + cfg.ServiceUser)

	if err := p.SmokeRun(ctx); err != nil {
		logger.Warn("Foreground collector run failed",
			zap.String("user", cfg.ServiceUser),
			zap.Error(err))
		res.Outcome = OutcomeFailed
		res.Reason = "collector exited non-zero"
		res.Warning = err.Error()
		return res, nil
	}

	res.Outcome = OutcomeSatisfied
	res.Reason = "collector ran cleanly"
	return res, nil
}
