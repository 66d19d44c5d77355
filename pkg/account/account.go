// pkg/account/account.go

package account

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/i474232898/weatherctl/pkg/execute"
	"github.com/i474232898/weatherctl/pkg/telemetry"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// useradd rejects anything else; keeping the gate here means every caller
// (flags, prompts, config files) goes through the same rule.
var validUsername = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// IsValidName reports whether a username passes the useradd gate.
// ValidateUsername is the variant with operator-facing diagnostics.
func IsValidName(username string) bool {
	return username != "" && len(username) <= 32 && validUsername.MatchString(username)
}

// ValidateUsername checks that a username is safe to hand to useradd.
func ValidateUsername(ctx context.Context, username string) error {
	if username == "" {
		return wxerr.NewExpectedError(ctx, cerr.New("username cannot be empty"))
	}
	if !validUsername.MatchString(username) {
		return wxerr.NewExpectedError(ctx, cerr.Newf(
			"invalid username %q: must start with a lowercase letter or underscore and contain only lowercase letters, digits, underscores, and hyphens", username))
	}
	if len(username) > 32 {
		return wxerr.NewExpectedError(ctx, cerr.Newf("username %q is longer than 32 characters", username))
	}
	return nil
}

// Exists checks whether a user account is present on the system.
func Exists(username string) bool {
	_, err := user.Lookup(username)
	return err == nil
}

// HomeDir returns the home directory of an existing user.
func HomeDir(username string) (string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return "", cerr.Wrapf(err, "user %q not found", username)
	}
	return u.HomeDir, nil
}

// Create adds a user account with a home directory and a login shell. The
// service runs non-root under this account; the shell stays enabled so an
// operator can su into it for debugging.
func Create(ctx context.Context, username, home string) error {
	ctx, span := telemetry.Start(ctx, "account.Create")
	defer span.End()

	logger := otelzap.Ctx(ctx)
	logger.Info("Creating user account", zap.String("username", username))

	args := []string{"-m", "-s", "/bin/bash"}
	if home != "" {
		args = append(args, "-d", home)
	}
	args = append(args, username)

	if out, err := execute.RunQuiet(ctx, "useradd", args...); err != nil {
		logger.Error("Failed to create user account",
			zap.String("username", username),
			zap.String("output", out),
			zap.Error(err))
		return cerr.Wrapf(err, "failed to create user account %q", username)
	}

	logger.Debug("User account created", zap.String("username", username))
	return nil
}

// SetPassword sets a user's password via chpasswd over stdin, so it never
// appears in process listings.
func SetPassword(ctx context.Context, username, password string) error {
	ctx, span := telemetry.Start(ctx, "account.SetPassword")
	defer span.End()

	logger := otelzap.Ctx(ctx)
	logger.Info("Setting user password", zap.String("username", username))

	_, err := execute.Run(ctx, execute.Options{
		Command: "chpasswd",
		Stdin:   strings.NewReader(fmt.Sprintf("%s:%s", username, password)),
		Quiet:   true,
	})
	if err != nil {
		return cerr.Wrapf(err, "failed to set password for user %q", username)
	}

	logger.Debug("Password set", zap.String("username", username))
	return nil
}

// InGroup reports whether the user is already a member of the named group.
func InGroup(username, group string) (bool, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return false, cerr.Wrapf(err, "user %q not found", username)
	}
	gids, err := u.GroupIds()
	if err != nil {
		return false, cerr.Wrapf(err, "failed to list groups for %q", username)
	}
	for _, gid := range gids {
		g, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		if g.Name == group {
			return true, nil
		}
	}
	return false, nil
}

// AddToGroups appends the user to each group it is not yet a member of.
// Returns the groups actually added, so reruns can report "already there".
func AddToGroups(ctx context.Context, username string, groups ...string) ([]string, error) {
	ctx, span := telemetry.Start(ctx, "account.AddToGroups")
	defer span.End()

	logger := otelzap.Ctx(ctx)

	var added []string
	for _, group := range groups {
		member, err := InGroup(username, group)
		if err != nil {
			return added, err
		}
		if member {
			logger.Debug("User already in group",
				zap.String("username", username), zap.String("group", group))
			continue
		}

		if out, err := execute.RunQuiet(ctx, "usermod", "-a", "-G", group, username); err != nil {
			logger.Error("Failed to add user to group",
				zap.String("username", username),
				zap.String("group", group),
				zap.String("output", out),
				zap.Error(err))
			return added, cerr.Wrapf(err, "failed to add user %q to group %q", username, group)
		}

		logger.Info("Added user to group",
			zap.String("username", username), zap.String("group", group))
		added = append(added, group)
	}
	return added, nil
}

// GrantPasswordlessSudo drops a NOPASSWD rule under /etc/sudoers.d and
// validates it with visudo when available. A rule that fails validation is
// removed again; a broken sudoers drop-in can lock every admin out.
func GrantPasswordlessSudo(ctx context.Context, username string) error {
	ctx, span := telemetry.Start(ctx, "account.GrantPasswordlessSudo")
	defer span.End()

	logger := otelzap.Ctx(ctx)
	path := "/etc/sudoers.d/" + username
	content := fmt.Sprintf("%s ALL=(ALL) NOPASSWD:ALL\n", username)

	if existing, err := os.ReadFile(path); err == nil && string(existing) == content {
		logger.Debug("Passwordless sudo already granted", zap.String("username", username))
		return nil
	}

	if err := os.WriteFile(path, []byte(content), 0440); err != nil {
		return cerr.Wrapf(err, "failed to write sudoers drop-in %s", path)
	}

	if _, lookErr := execute.RunQuiet(ctx, "which", "visudo"); lookErr == nil {
		if out, err := execute.RunQuiet(ctx, "visudo", "-c", "-f", path); err != nil {
			_ = os.Remove(path)
			logger.Error("Sudoers drop-in failed validation",
				zap.String("path", path),
				zap.String("output", out),
				zap.Error(err))
			return cerr.Wrapf(err, "sudoers drop-in %s failed visudo validation", path)
		}
	}

	logger.Info("Granted passwordless sudo", zap.String("username", username), zap.String("path", path))
	return nil
}
