// pkg/fileops/fileops.go

package fileops

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/i474232898/weatherctl/pkg/execute"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ChownRecursive hands a whole tree to owner:group and reports whether any
// ownership actually changed. chown -c prints one line per change, so an
// empty output means the tree was already owned correctly. Symlinks inside
// the tree are not followed.
func ChownRecursive(ctx context.Context, dir, owner, group string) (bool, error) {
	otelzap.Ctx(ctx).Debug("Changing ownership recursively",
		zap.String("dir", dir),
		zap.String("owner", owner),
		zap.String("group", group))

	out, err := execute.RunQuiet(ctx, "chown", "-Rhc", owner+":"+group, dir)
	if err != nil {
		return false, cerr.Wrapf(err, "chown -R %s:%s %s failed: %s", owner, group, dir, strings.TrimSpace(out))
	}
	return strings.TrimSpace(out) != "", nil
}

// MarkPythonFilesExecutable sets 0755 on every *.py file under dir and
// returns how many files it changed. Files already at 0755 are left alone,
// and an empty tree is not an error.
func MarkPythonFilesExecutable(ctx context.Context, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode().Perm() == 0755 {
			return nil
		}
		if err := os.Chmod(path, 0755); err != nil {
			return cerr.Wrapf(err, "failed to chmod %s", path)
		}
		count++
		return nil
	})
	if err != nil {
		return count, cerr.Wrapf(err, "failed to walk %s", dir)
	}

	otelzap.Ctx(ctx).Debug("Marked python files executable",
		zap.String("dir", dir), zap.Int("count", count))
	return count, nil
}

// TailFile returns the final n lines of a file. Application logs here are
// small; reading the whole file keeps this simple.
func TailFile(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", cerr.Wrapf(err, "failed to read %s", path)
	}

	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return "", nil
	}

	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}

// ListDirEntries returns the names in dir, directories marked with a
// trailing slash, for use in diagnostics.
func ListDirEntries(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{"(unreadable: " + err.Error() + ")"}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names
}
