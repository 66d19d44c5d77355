/* pkg/logger/paths.go */

package logger

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformLogPaths returns candidate log file paths in priority order.
func PlatformLogPaths() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{
			"/var/log/weatherctl/weatherctl.log", // best when running as root
			xdgStatePath("weatherctl.log"),       // user-local fallback
			"./weatherctl.log",
			"/tmp/weatherctl/weatherctl.log",
		}
	case "darwin":
		return []string{
			xdgStatePath("weatherctl.log"),
			"./weatherctl.log",
			"/tmp/weatherctl/weatherctl.log",
		}
	default:
		return []string{"./weatherctl.log"}
	}
}

// ResolveLogPath returns the first candidate whose directory can be created
// and whose file can be opened for append, or "" when none is writable.
func ResolveLogPath() string {
	for _, path := range PlatformLogPaths() {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			continue
		}
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			continue
		}
		_ = file.Close()
		return path
	}
	return ""
}

func xdgStatePath(name string) string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "weatherctl", name)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "weatherctl", name)
	}
	return filepath.Join(home, ".local", "state", "weatherctl", name)
}
