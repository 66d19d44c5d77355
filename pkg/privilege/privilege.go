// pkg/privilege/privilege.go

package privilege

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Check captures the effective identity of the running process.
type Check struct {
	UserID    int
	GroupID   int
	Username  string
	IsRoot    bool
	Timestamp time.Time
}

// CheckPrivileges inspects the effective UID/GID of this process.
func CheckPrivileges(ctx context.Context) (*Check, error) {
	logger := otelzap.Ctx(ctx)

	check := &Check{
		UserID:    os.Geteuid(),
		GroupID:   os.Getegid(),
		Timestamp: time.Now(),
	}
	check.IsRoot = check.UserID == 0

	currentUser, err := user.Current()
	if err != nil {
		logger.Warn("Failed to get current user info", zap.Error(err))
		check.Username = fmt.Sprintf("uid-%d", check.UserID)
	} else {
		check.Username = currentUser.Username
	}

	logger.Debug("Privilege check completed",
		zap.String("username", check.Username),
		zap.Int("uid", check.UserID),
		zap.Bool("is_root", check.IsRoot))

	return check, nil
}

// RequireRoot aborts with an expected user error unless the process runs
// with effective UID 0. Everything this tool does (apt, useradd, writing
// unit files, systemctl) needs root.
func RequireRoot(ctx context.Context) error {
	check, err := CheckPrivileges(ctx)
	if err != nil {
		return err
	}
	if check.IsRoot {
		return nil
	}

	return wxerr.NewExpectedError(ctx, wxerr.NewPermissionError(
		"system resources", "provision",
		"Run this command as root or with sudo",
	))
}
