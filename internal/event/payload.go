// Package event contains the webhook payload model and the event handler
// that turns forge events into chat notifications and backport jobs.
package event

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/octobridge/octobridge/pkg/errors"
)

const shortSHALen = 7

// User represents a forge user account
type User struct {
	Login string `json:"login"`
}

// NewUser creates a user with the given login
func NewUser(login string) User {
	return User{Login: login}
}

// Label represents a label attached to an issue or pull request
type Label struct {
	Name string `json:"name"`
}

// Repo represents a repository referenced by a webhook payload
type Repo struct {
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Owner    User   `json:"owner,omitempty"`
}

// ParseRepo builds a Repo from its web URL, e.g.
// "https://git.company.com/some-user/some-repo".
func ParseRepo(htmlURL string) (*Repo, error) {
	u, err := url.Parse(htmlURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeValidation, "invalid repo URL", err)
	}
	path := strings.Trim(u.Path, "/")
	parts := strings.Split(path, "/")
	if u.Host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation,
			fmt.Sprintf("repo URL must have an owner/name path: %s", htmlURL))
	}
	return &Repo{
		Name:     parts[1],
		FullName: path,
		HTMLURL:  htmlURL,
		Owner:    User{Login: parts[0]},
	}, nil
}

// Host returns the forge host the repository lives on
func (r *Repo) Host() string {
	u, err := url.Parse(r.HTMLURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// OwnerLogin returns the owner part of the full name
func (r *Repo) OwnerLogin() string {
	if i := strings.Index(r.FullName, "/"); i >= 0 {
		return r.FullName[:i]
	}
	return r.Owner.Login
}

// RepoName returns the name part of the full name
func (r *Repo) RepoName() string {
	if i := strings.Index(r.FullName, "/"); i >= 0 {
		return r.FullName[i+1:]
	}
	return r.Name
}

// BranchRef represents one side of a pull request
type BranchRef struct {
	Ref  string `json:"ref"`
	SHA  string `json:"sha"`
	User User   `json:"user,omitempty"`
	Repo Repo   `json:"repo,omitempty"`
}

// PullRequest represents a pull request referenced by a webhook payload
type PullRequest struct {
	Title          string    `json:"title"`
	Number         int       `json:"number"`
	HTMLURL        string    `json:"html_url"`
	State          string    `json:"state"`
	User           User      `json:"user"`
	Merged         *bool     `json:"merged,omitempty"`
	MergeCommitSHA string    `json:"merge_commit_sha,omitempty"`
	Assignees      []User    `json:"assignees"`
	Head           BranchRef `json:"head"`
	Base           BranchRef `json:"base"`
}

// IsMerged reports whether the pull request has been merged
func (p *PullRequest) IsMerged() bool {
	return p.Merged != nil && *p.Merged
}

// IsWIP reports whether the pull request title marks it as work in
// progress. Only the literal "WIP" prefix counts.
func (p *PullRequest) IsWIP() bool {
	return strings.HasPrefix(p.Title, "WIP")
}

// Issue represents an issue referenced by a webhook payload
type Issue struct {
	Title     string `json:"title"`
	HTMLURL   string `json:"html_url"`
	User      User   `json:"user"`
	Assignees []User `json:"assignees"`
}

// Comment represents a commit, issue or review comment
type Comment struct {
	CommitID string `json:"commit_id,omitempty"`
	Path     string `json:"path,omitempty"`
	Body     string `json:"body"`
	HTMLURL  string `json:"html_url"`
	User     User   `json:"user"`
}

// Review represents a submitted pull request review
type Review struct {
	State   string `json:"state"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
}

// Commit represents a commit carried by a push payload
type Commit struct {
	ID      string `json:"id"`
	TreeID  string `json:"tree_id,omitempty"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Summary returns the first line of the commit message
func (c *Commit) Summary() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return c.Message[:i]
	}
	return c.Message
}

// HookPayload is the decoded body of a webhook delivery. Only the fields
// relevant to the handled event kinds are populated.
type HookPayload struct {
	Action      string       `json:"action,omitempty"`
	Repository  *Repo        `json:"repository,omitempty"`
	Sender      User         `json:"sender"`
	PullRequest *PullRequest `json:"pull_request,omitempty"`
	Issue       *Issue       `json:"issue,omitempty"`
	Comment     *Comment     `json:"comment,omitempty"`
	Review      *Review      `json:"review,omitempty"`
	Label       *Label       `json:"label,omitempty"`

	// Push fields
	Ref     string   `json:"ref,omitempty"`
	Before  string   `json:"before,omitempty"`
	After   string   `json:"after,omitempty"`
	Forced  bool     `json:"forced,omitempty"`
	Compare string   `json:"compare,omitempty"`
	Commits []Commit `json:"commits,omitempty"`
}

// BranchName returns the branch a push ref points at, or "" if the ref
// is not a branch
func (p *HookPayload) BranchName() string {
	const prefix = "refs/heads/"
	if strings.HasPrefix(p.Ref, prefix) {
		return p.Ref[len(prefix):]
	}
	return ""
}

// ShortSHA abbreviates a commit hash for display
func ShortSHA(sha string) string {
	if len(sha) > shortSHALen {
		return sha[:shortSHALen]
	}
	return sha
}
