// pkg/gitrepo/gitrepo.go
//
// Git repository operations - pure business logic for source checkouts.
// No orchestration, just focused clone and fast-forward update.

package gitrepo

import (
	"context"
	"io"
	"os"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/i474232898/weatherctl/pkg/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Outcome describes what a sync did to the checkout.
type Outcome int

const (
	// OutcomeCloned - fresh clone created
	OutcomeCloned Outcome = iota
	// OutcomeUpdated - existing checkout fast-forwarded
	OutcomeUpdated
	// OutcomeAlreadyCurrent - existing checkout already at remote HEAD
	OutcomeAlreadyCurrent
	// OutcomeUpdateFailed - existing checkout kept, but the pull failed
	OutcomeUpdateFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCloned:
		return "cloned"
	case OutcomeUpdated:
		return "updated"
	case OutcomeAlreadyCurrent:
		return "already current"
	case OutcomeUpdateFailed:
		return "update failed"
	default:
		return "unknown"
	}
}

// SyncOptions configures CloneOrUpdate.
type SyncOptions struct {
	URL    string
	Branch string // empty means the remote's default branch
	Dir    string
	// Progress receives transfer output for the operator; nil is silent.
	Progress io.Writer
}

// SyncResult reports the sync outcome and the resulting HEAD commit.
type SyncResult struct {
	Outcome Outcome
	Commit  string
}

// IsCheckout reports whether dir already holds a git checkout.
func IsCheckout(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// CloneOrUpdate clones opts.URL into opts.Dir, or fast-forwards an existing
// checkout. Clone failures return a nil result; update failures return
// OutcomeUpdateFailed alongside the error so the caller can decide whether a
// stale checkout is acceptable.
func CloneOrUpdate(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	ctx, span := telemetry.Start(ctx, "gitrepo.CloneOrUpdate")
	defer span.End()

	if IsCheckout(opts.Dir) {
		return update(ctx, opts)
	}
	return clone(ctx, opts)
}

func clone(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	logger := otelzap.Ctx(ctx)
	logger.Info("Cloning repository",
		zap.String("url", opts.URL),
		zap.String("dir", opts.Dir),
		zap.String("branch", branchOrDefault(opts.Branch)))

	cloneOpts := &git.CloneOptions{
		URL:      opts.URL,
		Progress: opts.Progress,
	}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, opts.Dir, false, cloneOpts)
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to clone %s", opts.URL)
	}

	commit, err := headCommit(repo)
	if err != nil {
		return nil, err
	}

	logger.Info("Repository cloned", zap.String("commit", commit))
	return &SyncResult{Outcome: OutcomeCloned, Commit: commit}, nil
}

// update fast-forwards an existing checkout. Every failure here comes back
// with OutcomeUpdateFailed so callers can keep the stale working tree.
func update(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	logger := otelzap.Ctx(ctx)
	logger.Info("Updating existing checkout", zap.String("dir", opts.Dir))

	stale := &SyncResult{Outcome: OutcomeUpdateFailed}

	repo, err := git.PlainOpen(opts.Dir)
	if err != nil {
		return stale, cerr.Wrapf(err, "failed to open checkout at %s", opts.Dir)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return stale, cerr.Wrap(err, "failed to access worktree")
	}

	pullOpts := &git.PullOptions{
		RemoteName: "origin",
		Progress:   opts.Progress,
	}
	if opts.Branch != "" {
		pullOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		pullOpts.SingleBranch = true
	}

	err = wt.PullContext(ctx, pullOpts)
	switch {
	case err == nil:
		commit, herr := headCommit(repo)
		if herr != nil {
			return stale, herr
		}
		logger.Info("Checkout fast-forwarded", zap.String("commit", commit))
		return &SyncResult{Outcome: OutcomeUpdated, Commit: commit}, nil

	case cerr.Is(err, git.NoErrAlreadyUpToDate):
		commit, herr := headCommit(repo)
		if herr != nil {
			return stale, herr
		}
		logger.Debug("Checkout already current", zap.String("commit", commit))
		return &SyncResult{Outcome: OutcomeAlreadyCurrent, Commit: commit}, nil

	case cerr.Is(err, git.ErrNonFastForwardUpdate):
		return stale, cerr.Wrap(err, "checkout has diverged from the remote")

	default:
		return stale, cerr.Wrapf(err, "failed to update checkout at %s", opts.Dir)
	}
}

func headCommit(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", cerr.Wrap(err, "failed to resolve HEAD")
	}
	return head.Hash().String(), nil
}

func branchOrDefault(branch string) string {
	if branch == "" {
		return "(remote default)"
	}
	return branch
}
