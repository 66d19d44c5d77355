// pkg/fileops/fileops_test.go
package fileops

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWithMode(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("print('collect')\n"), 0644))
	require.NoError(t, os.Chmod(path, mode))
}

func TestMarkPythonFilesExecutable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeWithMode(t, filepath.Join(dir, "weather_data.py"), 0644)
	writeWithMode(t, filepath.Join(dir, "src", "stations.py"), 0600)
	writeWithMode(t, filepath.Join(dir, "already.py"), 0755)
	writeWithMode(t, filepath.Join(dir, "requirements.txt"), 0644)

	count, err := MarkPythonFilesExecutable(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "files already at 0755 are not counted")

	for _, name := range []string{"weather_data.py", filepath.Join("src", "stations.py"), "already.py"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), name)
	}

	info, err := os.Stat(filepath.Join(dir, "requirements.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm(), "non-python files stay untouched")

	count, err = MarkPythonFilesExecutable(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, count, "second pass changes nothing")
}

func TestMarkPythonFilesExecutableEmptyTree(t *testing.T) {
	t.Parallel()

	count, err := MarkPythonFilesExecutable(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkPythonFilesExecutableMissingDir(t *testing.T) {
	t.Parallel()

	_, err := MarkPythonFilesExecutable(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestChownRecursiveAlreadyOwned(t *testing.T) {
	t.Parallel()

	if runtime.GOOS != "linux" {
		t.Skip("chown semantics are only exercised on linux")
	}

	u, err := user.Current()
	if err != nil {
		t.Skipf("current user unavailable: %v", err)
	}
	g, err := user.LookupGroupId(u.Gid)
	if err != nil {
		t.Skipf("current group unavailable: %v", err)
	}

	dir := t.TempDir()
	writeWithMode(t, filepath.Join(dir, "weather_data.py"), 0644)

	changed, err := ChownRecursive(context.Background(), dir, u.Username, g.Name)
	require.NoError(t, err)
	assert.False(t, changed, "tree already belongs to the caller")
}

func TestChownRecursiveInvalidOwner(t *testing.T) {
	t.Parallel()

	if runtime.GOOS != "linux" {
		t.Skip("chown semantics are only exercised on linux")
	}

	_, err := ChownRecursive(context.Background(), t.TempDir(), "no-such-user-weatherctl", "no-such-group-weatherctl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chown")
}

func TestTailFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "weather_data.log")
	content := "one\ntwo\nthree\nfour\nfive\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := TailFile(path, 3)
	require.NoError(t, err)
	assert.Equal(t, "three\nfour\nfive", got)

	got, err = TailFile(path, 50)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\nfour\nfive", got)
}

func TestTailFileEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.log")
	require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0644))

	got, err := TailFile(path, 5)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestTailFileMissing(t *testing.T) {
	t.Parallel()

	_, err := TailFile(filepath.Join(t.TempDir(), "absent.log"), 5)
	assert.Error(t, err)
}

func TestListDirEntries(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data"), 0755))

	assert.Equal(t, []string{"app.log", "data/"}, ListDirEntries(dir))
}

func TestListDirEntriesUnreadable(t *testing.T) {
	t.Parallel()

	entries := ListDirEntries(filepath.Join(t.TempDir(), "absent"))
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "unreadable")
}

func TestWaitForFileAlreadyPresent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "weather_data.log")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, WaitForFile(context.Background(), path, time.Second))
}

func TestWaitForFileAppearsLater(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "weather_data.log")
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = os.WriteFile(path, []byte("first line\n"), 0644)
	}()

	assert.True(t, WaitForFile(context.Background(), path, 5*time.Second))
}

func TestWaitForFileTimesOut(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "never.log")
	start := time.Now()
	assert.False(t, WaitForFile(context.Background(), path, 100*time.Millisecond))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestWaitForFileHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "never.log")
	assert.False(t, WaitForFile(ctx, path, time.Minute))
}
