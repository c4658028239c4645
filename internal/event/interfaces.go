package event

import (
	"context"

	"github.com/octobridge/octobridge/internal/slack"
)

// Messenger delivers notifications derived from a forge event. The
// review channel configured for the repository (if any) receives the
// message with a repository tag appended; interested users receive it
// as direct messages.
type Messenger interface {
	// SendToAll notifies the review channel, the item owner and the
	// assignees. The sender and the bot account never receive direct
	// messages.
	SendToAll(ctx context.Context, text string, attachments []slack.Attachment,
		itemOwner *User, sender *User, repo *Repo, assignees []User)

	// SendToOwner notifies the review channel and the item owner only
	SendToOwner(ctx context.Context, text string, attachments []slack.Attachment,
		itemOwner *User, repo *Repo)

	// SendToChannel notifies the review channel only
	SendToChannel(ctx context.Context, text string, attachments []slack.Attachment, repo *Repo)
}

// Forge is the subset of the forge API the event handler and the
// backport worker depend on.
type Forge interface {
	// GetPullRequestLabels returns the labels currently attached to a
	// pull request
	GetPullRequestLabels(ctx context.Context, owner, repo string, number int) ([]Label, error)

	// ListPullRequests returns pull requests filtered by state and,
	// when headSHA is non-empty, by head commit
	ListPullRequests(ctx context.Context, owner, repo, state, headSHA string) ([]PullRequest, error)

	// CommentPullRequest posts a comment on a pull request
	CommentPullRequest(ctx context.Context, owner, repo string, number int, comment string) error

	// CreatePullRequest opens a new pull request from head into base
	CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*PullRequest, error)
}

// MergeJob describes a request to port a merged pull request onto a
// release branch.
type MergeJob struct {
	ID           string
	Repo         Repo
	PullRequest  PullRequest
	TargetBranch string
}

// BackportQueue accepts backport jobs for asynchronous execution
type BackportQueue interface {
	// Enqueue submits a job. It never blocks; a false return means the
	// job was dropped.
	Enqueue(job MergeJob) bool
}
