// Package workspace runs git commands in temporary clones for backport
// jobs.
package workspace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/octobridge/octobridge/internal/event"
	apperrors "github.com/octobridge/octobridge/pkg/errors"
	"github.com/octobridge/octobridge/pkg/logger"
)

// Runner executes git commands for a single repository checkout
type Runner struct {
	// BaseDir is the parent directory for temporary clones
	BaseDir string
	// Token authenticates clone and push over HTTPS
	Token string
}

// Workspace is a temporary clone of a repository
type Workspace struct {
	runner *Runner
	// Dir is the checkout directory
	Dir      string
	cloneURL string
}

// Clone creates a fresh clone of the repository in a temporary
// directory. The caller must call Cleanup when done.
func (r *Runner) Clone(ctx context.Context, repo *event.Repo) (*Workspace, error) {
	dir, err := os.MkdirTemp(r.BaseDir, "backport-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBackportGit, "failed to create work dir", err)
	}

	ws := &Workspace{
		runner:   r,
		Dir:      filepath.Join(dir, repo.RepoName()),
		cloneURL: r.cloneURL(repo),
	}

	if _, err := r.run(ctx, dir, "clone", ws.cloneURL, ws.Dir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return ws, nil
}

// Cleanup removes the clone directory
func (w *Workspace) Cleanup() {
	if w.Dir != "" {
		if err := os.RemoveAll(filepath.Dir(w.Dir)); err != nil {
			logger.Warn("Failed to remove work dir", zap.String("dir", w.Dir), zap.Error(err))
		}
	}
}

// Checkout creates a local branch at the remote branch head
func (w *Workspace) Checkout(ctx context.Context, branch string) error {
	_, err := w.runner.run(ctx, w.Dir, "checkout", "-B", branch, "origin/"+branch)
	return err
}

// CheckoutNew creates a new branch at the current head
func (w *Workspace) CheckoutNew(ctx context.Context, branch string) error {
	_, err := w.runner.run(ctx, w.Dir, "checkout", "-b", branch)
	return err
}

// CherryPick applies a commit onto the current branch. Merge commits
// are picked against their first parent.
func (w *Workspace) CherryPick(ctx context.Context, sha string) error {
	if _, err := w.runner.run(ctx, w.Dir, "cherry-pick", "-m", "1", sha); err != nil {
		// Leave the tree clean for diagnosis
		_, _ = w.runner.run(ctx, w.Dir, "cherry-pick", "--abort")
		return err
	}
	return nil
}

// Push publishes the given branch to origin
func (w *Workspace) Push(ctx context.Context, branch string) error {
	_, err := w.runner.run(ctx, w.Dir, "push", "origin", branch)
	return err
}

// cloneURL builds an authenticated HTTPS clone URL
func (r *Runner) cloneURL(repo *event.Repo) string {
	if r.Token == "" {
		return repo.HTMLURL + ".git"
	}
	u, err := url.Parse(repo.HTMLURL)
	if err != nil {
		return repo.HTMLURL + ".git"
	}
	return fmt.Sprintf("https://x-access-token:%s@%s/%s.git", r.Token, u.Host, repo.FullName)
}

// run executes a git command, returning combined output. Credentials
// are redacted from logs and errors.
func (r *Runner) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	// Keep prompts out of unattended runs
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.CombinedOutput()
	output := r.redact(string(out))
	if err != nil {
		return output, apperrors.Wrap(apperrors.ErrCodeBackportGit,
			fmt.Sprintf("git %s failed: %s", r.redact(strings.Join(args, " ")), strings.TrimSpace(output)), err)
	}

	logger.Debug("git command completed",
		zap.String("args", r.redact(strings.Join(args, " "))),
	)
	return output, nil
}

// redact removes the access token from a string
func (r *Runner) redact(s string) string {
	if r.Token == "" {
		return s
	}
	return strings.ReplaceAll(s, r.Token, "********")
}
