// pkg/pyenv/pyenv_test.go
package pyenv

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	goversion "github.com/hashicorp/go-version"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenvExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.False(t, VenvExists(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0644))
	assert.True(t, VenvExists(dir))
}

func TestEnsureVenvShortCircuits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0644))

	created, err := EnsureVenv(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, created, "an existing venv is left alone")
}

func TestInstallRequirementsMissingManifest(t *testing.T) {
	t.Parallel()

	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "README.md"), []byte("weather"), 0644))

	manifest := filepath.Join(projectDir, "requirements.txt")
	err := InstallRequirements(context.Background(), "/nonexistent/pip", manifest)
	require.Error(t, err)
	assert.True(t, wxerr.IsExpectedUserError(err))
	assert.Contains(t, err.Error(), "dependency manifest")
	assert.Contains(t, err.Error(), "Contents of "+projectDir)
	assert.Contains(t, err.Error(), "README.md")
	assert.Contains(t, err.Error(), "src/")
}

func TestInterpreterVersionMissingPython(t *testing.T) {
	// Empty PATH so python3 cannot resolve.
	t.Setenv("PATH", "")

	_, err := InterpreterVersion(context.Background())
	require.Error(t, err)
	assert.True(t, wxerr.IsExpectedUserError(err))
	assert.Contains(t, err.Error(), "python3 is required")
	assert.Contains(t, err.Error(), "apt-get install -y python3")
}

func TestInterpreterVersionParsesOutput(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}

	v, err := InterpreterVersion(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(v.Segments()), 2)
}

func TestRequireInterpreter(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}

	v, err := RequireInterpreter(context.Background())
	require.NoError(t, err)

	min := goversion.Must(goversion.NewVersion(MinimumVersion))
	assert.False(t, v.LessThan(min))
}
