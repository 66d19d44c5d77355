// pkg/execute/execute_test.go
package execute

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests shell out to POSIX tools")
	}
}

func TestRunQuietCapturesOutput(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	out, err := RunQuiet(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestRunWithoutCaptureReturnsEmpty(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	out, err := Run(context.Background(), Options{
		Command: "echo",
		Args:    []string{"hello"},
		Quiet:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRunFailureWrapsAttempts(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	_, err := RunQuiet(context.Background(), "false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `command "false" failed after 1 attempt(s)`)
}

func TestRunRetriesCountAttempts(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	_, err := Run(context.Background(), Options{
		Command: "false",
		Retries: 3,
		Quiet:   true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
}

func TestRunDryRunSkipsExecution(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "definitely-not-a-command",
		DryRun:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRunMissingCommand(t *testing.T) {
	t.Parallel()

	_, err := RunQuiet(context.Background(), "weatherctl-no-such-binary")
	assert.Error(t, err)
}

func TestRunStdin(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	out, err := Run(context.Background(), Options{
		Command: "cat",
		Stdin:   strings.NewReader("station data"),
		Capture: true,
		Quiet:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "station data", out)
}

func TestRunDir(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	out, err := Run(context.Background(), Options{
		Command: "pwd",
		Dir:     dir,
		Capture: true,
		Quiet:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(out))
}

func TestRunEnvAppended(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	out, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", `printf %s "$WEATHERCTL_TEST_ENV"`},
		Env:     []string{"WEATHERCTL_TEST_ENV=from-options"},
		Capture: true,
		Quiet:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "from-options", out)
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	start := time.Now()
	_, err := Run(context.Background(), Options{
		Command: "sleep",
		Args:    []string{"10"},
		Timeout: 100 * time.Millisecond,
		Quiet:   true,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunSimple(t *testing.T) {
	t.Parallel()
	requirePOSIX(t)

	assert.NoError(t, RunSimple(context.Background(), "true"))
	assert.Error(t, RunSimple(context.Background(), "false"))
}
