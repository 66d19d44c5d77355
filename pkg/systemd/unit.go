// pkg/systemd/unit.go

package systemd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ServiceSpec carries the host-specific values interpolated into the
// collector service unit. Every other field in the rendered unit is fixed.
type ServiceSpec struct {
	User       string
	Group      string
	ProjectDir string
	PythonBin  string // interpreter inside the virtualenv
	EntryPoint string // absolute path to the collector script
}

// TimerSpec carries the values interpolated into the collector timer unit.
type TimerSpec struct {
	OnCalendar string
	Unit       string
}

// RenderService produces the full service unit body. The unit runs the
// collector as an unprivileged user with a hardened sandbox; only the
// project directory stays writable.
func RenderService(spec ServiceSpec) string {
	return fmt.Sprintf(`[Unit]
Description=Weather data collection service
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=%s
Group=%s
WorkingDirectory=%s
ExecStart=%s %s
Restart=on-failure
RestartSec=10
StandardOutput=journal
StandardError=journal
NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=read-only
PrivateTmp=true
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, spec.User, spec.Group, spec.ProjectDir, spec.PythonBin, spec.EntryPoint, spec.ProjectDir)
}

// RenderTimer produces the full timer unit body.
func RenderTimer(spec TimerSpec) string {
	return fmt.Sprintf(`[Unit]
Description=Run weather data collection on a fixed cadence

[Timer]
OnCalendar=%s
RandomizedDelaySec=30
Persistent=true
Unit=%s

[Install]
WantedBy=timers.target
`, spec.OnCalendar, spec.Unit)
}

// WriteUnit writes a rendered unit body to path with 0644 permissions. The
// units are owned by this tool and overwritten unconditionally, so any
// existing file is backed up beside itself first. Returns the backup path
// when one was taken and whether the content differs from what was there.
func WriteUnit(ctx context.Context, path, content string) (backupPath string, changed bool, err error) {
	log := otelzap.Ctx(ctx)

	changed = true
	if previous, readErr := os.ReadFile(path); readErr == nil {
		changed = !bytes.Equal(previous, []byte(content))

		backupPath = fmt.Sprintf("%s.bak.%d", path, time.Now().Unix())
		if copyErr := copyFile(path, backupPath); copyErr != nil {
			log.Warn("Failed to back up existing unit file, continuing anyway",
				zap.String("path", path),
				zap.Error(copyErr))
			backupPath = ""
		} else {
			log.Info("Backed up existing unit file",
				zap.String("original", path),
				zap.String("backup", backupPath))
		}
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return backupPath, changed, cerr.Wrapf(err, "write unit file %s", path)
	}

	log.Info("Wrote systemd unit",
		zap.String("unit", UnitName(path)),
		zap.String("path", path),
		zap.Bool("changed", changed))
	return backupPath, changed, nil
}

// UnitName returns the systemd unit name for a unit file path.
func UnitName(path string) string {
	return filepath.Base(path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return cerr.Wrap(err, "open source")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return cerr.Wrap(err, "create backup")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return cerr.Wrap(err, "copy contents")
	}
	return out.Sync()
}
