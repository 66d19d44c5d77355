// pkg/gitrepo/gitrepo_test.go
package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain serves file endpoints in process so the fixtures work without
// git binaries on the host.
func TestMain(m *testing.M) {
	client.InstallProtocol("file", server.NewClient(server.DefaultLoader))
	os.Exit(m.Run())
}

// fixtureRepo is a local stand-in for the collector's upstream repository.
// url points at the git directory because the filesystem loader only
// resolves bare layouts.
type fixtureRepo struct {
	worktree string
	url      string
	repo     *git.Repository
	head     string
}

func initSource(t *testing.T) *fixtureRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	f := &fixtureRepo{worktree: dir, url: filepath.Join(dir, ".git"), repo: repo}
	f.head = f.commit(t, "src/weather_data.py", "print('collect')\n", "initial import")
	return f
}

func (f *fixtureRepo) commit(t *testing.T, name, content, msg string) string {
	t.Helper()

	path := filepath.Join(f.worktree, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	wt, err := f.repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)

	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Weather Ops", Email: "ops@example.net", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestCloneOrUpdateFreshClone(t *testing.T) {
	t.Parallel()

	src := initSource(t)
	dest := filepath.Join(t.TempDir(), "weather-data")

	res, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCloned, res.Outcome)
	assert.Equal(t, src.head, res.Commit)
	assert.True(t, IsCheckout(dest))
	assert.FileExists(t, filepath.Join(dest, "src", "weather_data.py"))
}

func TestCloneOrUpdateSpecificBranch(t *testing.T) {
	t.Parallel()

	src := initSource(t)
	dest := filepath.Join(t.TempDir(), "weather-data")

	res, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest, Branch: "master"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCloned, res.Outcome)
	assert.Equal(t, src.head, res.Commit)
}

func TestCloneOrUpdateAlreadyCurrent(t *testing.T) {
	t.Parallel()

	src := initSource(t)
	dest := filepath.Join(t.TempDir(), "weather-data")

	_, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest})
	require.NoError(t, err)

	res, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCurrent, res.Outcome)
	assert.Equal(t, src.head, res.Commit)
}

func TestCloneOrUpdateFastForward(t *testing.T) {
	t.Parallel()

	src := initSource(t)
	dest := filepath.Join(t.TempDir(), "weather-data")

	_, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest})
	require.NoError(t, err)

	next := src.commit(t, "requirements.txt", "requests==2.32.0\n", "pin requests")

	res, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, next, res.Commit)
	assert.FileExists(t, filepath.Join(dest, "requirements.txt"))
}

func TestCloneOrUpdatePullFailureKeepsCheckout(t *testing.T) {
	t.Parallel()

	src := initSource(t)
	dest := filepath.Join(t.TempDir(), "weather-data")

	_, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest})
	require.NoError(t, err)

	// Upstream disappears between runs.
	require.NoError(t, os.RemoveAll(src.worktree))

	res, err := CloneOrUpdate(context.Background(), SyncOptions{URL: src.url, Dir: dest})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeUpdateFailed, res.Outcome)
	assert.True(t, IsCheckout(dest), "stale checkout stays in place")
}

func TestCloneOrUpdateCloneFailure(t *testing.T) {
	t.Parallel()

	res, err := CloneOrUpdate(context.Background(), SyncOptions{
		URL: filepath.Join(t.TempDir(), "nowhere", ".git"),
		Dir: filepath.Join(t.TempDir(), "weather-data"),
	})
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestIsCheckout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	assert.False(t, IsCheckout(dir))

	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))
	assert.True(t, IsCheckout(dir))
}

func TestOutcomeStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cloned", OutcomeCloned.String())
	assert.Equal(t, "updated", OutcomeUpdated.String())
	assert.Equal(t, "already current", OutcomeAlreadyCurrent.String())
	assert.Equal(t, "update failed", OutcomeUpdateFailed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
