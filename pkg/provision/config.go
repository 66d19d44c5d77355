// pkg/provision/config.go

package provision

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/i474232898/weatherctl/pkg/account"
	"github.com/i474232898/weatherctl/pkg/systemd"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Deployment profiles. Interactive walks the operator through service-user
// creation and runs the collector every 15 minutes; unattended never prompts
// and runs every 5 minutes.
const (
	ProfileInteractive = "interactive"
	ProfileUnattended  = "unattended"
)

const (
	DefaultServiceUser     = "weather"
	DefaultRepoURL         = "https://github.com/i474232898/weather-data.git"
	DefaultServiceUnitPath = "/etc/systemd/system/weather-data.service"
	DefaultTimerUnitPath   = "/etc/systemd/system/weather-data.timer"
	DefaultSettleDelay     = 5 * time.Second
	DefaultJournalTail     = 20
	DefaultLogTail         = 20

	interactiveInterval = 15 * time.Minute
	unattendedInterval  = 5 * time.Minute

	envPrefix = "WEATHERCTL"
)

// DefaultPackages are the apt packages the collector needs on the host.
var DefaultPackages = []string{"python3", "python3-pip", "python3-venv", "git"}

// Config carries every knob of the provisioning pipeline. One value is built
// per run and threaded through explicitly; there are no globals.
type Config struct {
	Profile          string        `mapstructure:"profile" yaml:"profile" validate:"required,oneof=interactive unattended"`
	ServiceUser      string        `mapstructure:"user" yaml:"user" validate:"required,unixuser"`
	Group            string        `mapstructure:"group" yaml:"group" validate:"required,unixuser"`
	ProjectDir       string        `mapstructure:"project-dir" yaml:"project_dir" validate:"required,abspath"`
	VenvDir          string        `mapstructure:"venv-dir" yaml:"venv_dir" validate:"required,abspath"`
	RepoURL          string        `mapstructure:"repo-url" yaml:"repo_url" validate:"required"`
	RepoBranch       string        `mapstructure:"repo-branch" yaml:"repo_branch,omitempty"`
	ServiceUnitPath  string        `mapstructure:"service-unit" yaml:"service_unit" validate:"required,abspath"`
	TimerUnitPath    string        `mapstructure:"timer-unit" yaml:"timer_unit" validate:"required,abspath"`
	ScheduleInterval time.Duration `mapstructure:"every" yaml:"every" validate:"required"`
	SettleDelay      time.Duration `mapstructure:"settle-delay" yaml:"settle_delay"`
	JournalTail      int           `mapstructure:"journal-tail" yaml:"journal_tail" validate:"min=1,max=1000"`
	LogTail          int           `mapstructure:"log-tail" yaml:"log_tail" validate:"min=1,max=1000"`
	Packages         []string      `mapstructure:"packages" yaml:"packages" validate:"required,min=1"`
	NonInteractive   bool          `mapstructure:"yes" yaml:"non_interactive"`
}

// Load assembles the pipeline configuration. Precedence from highest to
// lowest: explicit flags, WEATHERCTL_* environment variables, a .env file in
// the working directory, the optional YAML config file, profile defaults.
func Load(ctx context.Context, flags *pflag.FlagSet, configFile string) (*Config, error) {
	logger := otelzap.Ctx(ctx)

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetDefault("packages", DefaultPackages)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, wxerr.NewExpectedError(ctx,
				cerr.Wrapf(err, "cannot read config file %s", configFile))
		}
		logger.Info("Loaded config file", zap.String("path", v.ConfigFileUsed()))
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, cerr.Wrap(err, "bind flags")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, wxerr.NewExpectedError(ctx, cerr.Wrap(err, "invalid configuration"))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}

	logger.Debug("Configuration resolved",
		zap.String("profile", cfg.Profile),
		zap.String("user", cfg.ServiceUser),
		zap.String("project_dir", cfg.ProjectDir),
		zap.String("repo_url", cfg.RepoURL),
		zap.Duration("every", cfg.ScheduleInterval),
		zap.Bool("non_interactive", cfg.NonInteractive))
	return cfg, nil
}

// ApplyDefaults fills every unset field with its profile default.
func (c *Config) ApplyDefaults() {
	if c.Profile == "" {
		c.Profile = ProfileInteractive
	}
	if c.ServiceUser == "" {
		c.ServiceUser = DefaultServiceUser
	}
	if c.ScheduleInterval == 0 {
		c.ScheduleInterval = interactiveInterval
		if c.Profile == ProfileUnattended {
			c.ScheduleInterval = unattendedInterval
		}
	}
	if c.RepoURL == "" {
		c.RepoURL = DefaultRepoURL
	}
	if c.ServiceUnitPath == "" {
		c.ServiceUnitPath = DefaultServiceUnitPath
	}
	if c.TimerUnitPath == "" {
		c.TimerUnitPath = DefaultTimerUnitPath
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.JournalTail == 0 {
		c.JournalTail = DefaultJournalTail
	}
	if c.LogTail == 0 {
		c.LogTail = DefaultLogTail
	}
	if len(c.Packages) == 0 {
		c.Packages = append([]string(nil), DefaultPackages...)
	}
	if c.Profile == ProfileUnattended {
		c.NonInteractive = true
	}
	c.deriveUserPaths()
}

// deriveUserPaths fills the fields that default relative to the service
// user. RebaseUser re-runs this after an interactive username change.
func (c *Config) deriveUserPaths() {
	if c.Group == "" {
		c.Group = c.ServiceUser
	}
	if c.ProjectDir == "" {
		c.ProjectDir = filepath.Join("/home", c.ServiceUser, "weather-data")
	}
	if c.VenvDir == "" {
		c.VenvDir = filepath.Join(c.ProjectDir, "venv")
	}
}

// RebaseUser swaps the service user after an interactive prompt, re-deriving
// the group and directories that still tracked the previous name. Explicitly
// configured values are left alone.
func (c *Config) RebaseUser(username string) {
	if username == "" || username == c.ServiceUser {
		return
	}
	derivedProject := filepath.Join("/home", c.ServiceUser, "weather-data")
	derivedVenv := filepath.Join(c.ProjectDir, "venv")

	if c.Group == c.ServiceUser {
		c.Group = username
	}
	if c.ProjectDir == derivedProject {
		c.ProjectDir = filepath.Join("/home", username, "weather-data")
		if c.VenvDir == derivedVenv {
			c.VenvDir = filepath.Join(c.ProjectDir, "venv")
		}
	}
	c.ServiceUser = username
}

// Validate rejects configurations the pipeline cannot act on. Failures are
// operator mistakes, so they exit without a stack trace.
func (c *Config) Validate(ctx context.Context) error {
	v := validator.New()
	if err := v.RegisterValidation("unixuser", func(fl validator.FieldLevel) bool {
		return account.IsValidName(fl.Field().String())
	}); err != nil {
		return cerr.Wrap(err, "register unixuser validation")
	}
	if err := v.RegisterValidation("abspath", func(fl validator.FieldLevel) bool {
		return filepath.IsAbs(fl.Field().String())
	}); err != nil {
		return cerr.Wrap(err, "register abspath validation")
	}

	if err := v.Struct(c); err != nil {
		return wxerr.NewExpectedError(ctx, wxerr.NewValidationError(
			fmt.Sprintf("invalid configuration: %v", err),
			"Check flag values, WEATHERCTL_* environment variables, and the config file"))
	}

	minutes := int(c.ScheduleInterval / time.Minute)
	if time.Duration(minutes)*time.Minute != c.ScheduleInterval || minutes < 1 || minutes > 59 {
		return wxerr.NewExpectedError(ctx, wxerr.NewValidationError(
			fmt.Sprintf("schedule interval %s must be a whole number of minutes between 1 and 59", c.ScheduleInterval),
			"Pass --every a value like 5m or 15m"))
	}
	return nil
}

// PythonBin is the interpreter inside the virtualenv.
func (c *Config) PythonBin() string { return filepath.Join(c.VenvDir, "bin", "python") }

// PipBin is the pip inside the virtualenv.
func (c *Config) PipBin() string { return filepath.Join(c.VenvDir, "bin", "pip") }

// EntryPoint is the collector script the service runs.
func (c *Config) EntryPoint() string { return filepath.Join(c.ProjectDir, "src", "weather_data.py") }

// RequirementsPath is the collector's pip dependency manifest.
func (c *Config) RequirementsPath() string { return filepath.Join(c.ProjectDir, "requirements.txt") }

// AppLogPath is where the collector writes its own log.
func (c *Config) AppLogPath() string { return filepath.Join(c.ProjectDir, "weather-data.log") }

// OnCalendar renders the schedule as a systemd calendar literal.
func (c *Config) OnCalendar() string {
	return fmt.Sprintf("*:0/%d", int(c.ScheduleInterval/time.Minute))
}

// CadenceHuman is the operator-facing form of the schedule.
func (c *Config) CadenceHuman() string {
	return fmt.Sprintf("every %d minutes", int(c.ScheduleInterval/time.Minute))
}

// ServiceUnitName is the systemd unit name of the collector service.
func (c *Config) ServiceUnitName() string { return systemd.UnitName(c.ServiceUnitPath) }

// TimerUnitName is the systemd unit name of the collector timer.
func (c *Config) TimerUnitName() string { return systemd.UnitName(c.TimerUnitPath) }

// Interactive reports whether the pipeline may prompt the operator.
func (c *Config) Interactive() bool { return !c.NonInteractive }

// VenvInsideProject reports whether the virtualenv lives under ProjectDir,
// in which case one recursive chown covers both.
func (c *Config) VenvInsideProject() bool {
	rel, err := filepath.Rel(c.ProjectDir, c.VenvDir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
