// Package github implements the forge API client using the GitHub v3 API.
// It works against both github.com and self-hosted GitHub Enterprise.
package github

import (
	"context"

	gogithub "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/octobridge/octobridge/internal/config"
	"github.com/octobridge/octobridge/internal/event"
	apperrors "github.com/octobridge/octobridge/pkg/errors"
	"github.com/octobridge/octobridge/pkg/telemetry"
)

const perPage = 100

// Client is a forge API client backed by the GitHub API
type Client struct {
	client *gogithub.Client
	cfg    config.ForgeConfig
}

// NewClient creates a forge client from configuration. An empty
// APIBaseURL targets github.com.
func NewClient(cfg config.ForgeConfig) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := gogithub.NewClient(tc)
	if cfg.APIBaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.APIBaseURL, cfg.APIBaseURL)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeForgeRequest, "invalid forge API base URL", err)
		}
	}

	return &Client{client: client, cfg: cfg}, nil
}

var _ event.Forge = (*Client)(nil)

// GetPullRequestLabels returns the labels attached to a pull request.
// Pull request labels live on the underlying issue.
func (c *Client) GetPullRequestLabels(ctx context.Context, owner, repo string, number int) ([]event.Label, error) {
	var all []event.Label
	opts := &gogithub.ListOptions{PerPage: perPage}
	for {
		labels, resp, err := c.client.Issues.ListLabelsByIssue(ctx, owner, repo, number, opts)
		telemetry.RecordForgeRequest(ctx, "list_labels", err)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeForgeRequest, "failed to list labels", err)
		}
		for _, l := range labels {
			all = append(all, event.Label{Name: l.GetName()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListPullRequests returns pull requests in the given state. When
// headSHA is non-empty, only pull requests whose head commit matches
// are returned.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state, headSHA string) ([]event.PullRequest, error) {
	var all []event.PullRequest
	opts := &gogithub.PullRequestListOptions{
		State:       state,
		ListOptions: gogithub.ListOptions{PerPage: perPage},
	}
	for {
		prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, opts)
		telemetry.RecordForgeRequest(ctx, "list_pull_requests", err)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeForgeRequest, "failed to list pull requests", err)
		}
		for _, pr := range prs {
			if headSHA != "" && pr.GetHead().GetSHA() != headSHA {
				continue
			}
			all = append(all, convertPullRequest(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CommentPullRequest posts a comment on a pull request. Pull request
// comments are issue comments in the GitHub API.
func (c *Client) CommentPullRequest(ctx context.Context, owner, repo string, number int, comment string) error {
	_, _, err := c.client.Issues.CreateComment(ctx, owner, repo, number, &gogithub.IssueComment{
		Body: gogithub.String(comment),
	})
	telemetry.RecordForgeRequest(ctx, "create_comment", err)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeForgeRequest, "failed to create comment", err)
	}
	return nil
}

// CreatePullRequest opens a new pull request from head into base
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*event.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &gogithub.NewPullRequest{
		Title: gogithub.String(title),
		Body:  gogithub.String(body),
		Head:  gogithub.String(head),
		Base:  gogithub.String(base),
	})
	telemetry.RecordForgeRequest(ctx, "create_pull_request", err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeForgeRequest, "failed to create pull request", err)
	}
	converted := convertPullRequest(pr)
	return &converted, nil
}

// convertPullRequest maps an API pull request to the event model
func convertPullRequest(pr *gogithub.PullRequest) event.PullRequest {
	out := event.PullRequest{
		Title:          pr.GetTitle(),
		Number:         pr.GetNumber(),
		HTMLURL:        pr.GetHTMLURL(),
		State:          pr.GetState(),
		Merged:         pr.Merged,
		MergeCommitSHA: pr.GetMergeCommitSHA(),
		User:           event.User{Login: pr.GetUser().GetLogin()},
		Head:           convertBranch(pr.GetHead()),
		Base:           convertBranch(pr.GetBase()),
	}
	for _, a := range pr.Assignees {
		out.Assignees = append(out.Assignees, event.User{Login: a.GetLogin()})
	}
	return out
}

// convertBranch maps an API branch ref to the event model
func convertBranch(b *gogithub.PullRequestBranch) event.BranchRef {
	if b == nil {
		return event.BranchRef{}
	}
	ref := event.BranchRef{
		Ref: b.GetRef(),
		SHA: b.GetSHA(),
	}
	if u := b.GetUser(); u != nil {
		ref.User = event.User{Login: u.GetLogin()}
	}
	if r := b.GetRepo(); r != nil {
		ref.Repo = event.Repo{
			Name:     r.GetName(),
			FullName: r.GetFullName(),
			HTMLURL:  r.GetHTMLURL(),
			Owner:    event.User{Login: r.GetOwner().GetLogin()},
		}
	}
	return ref
}
