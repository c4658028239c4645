package event

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/octobridge/octobridge/internal/config"
	"github.com/octobridge/octobridge/internal/slack"
	"github.com/octobridge/octobridge/pkg/idgen"
	"github.com/octobridge/octobridge/pkg/logger"
)

// Result tags returned by Handle, one per event kind
const (
	TagPing            = "ping"
	TagCommitComment   = "commit_comment"
	TagIssueComment    = "issue_comment"
	TagPRReviewComment = "pr_review_comment"
	TagPRReview        = "pr_review"
	TagPRReviewComm    = "pr_review [comment]"
	TagPR              = "pr"
	TagPush            = "push"
	TagNoop            = "noop"
)

// backportLabelPattern matches labels that request a backport. The
// suffix keeps its original case and names the release branch.
var backportLabelPattern = regexp.MustCompile(`(?i)^backport-(.+)$`)

// Handler processes a single webhook delivery
type Handler struct {
	Event  string
	Action string
	Data   *HookPayload

	Config    *config.Config
	Messenger Messenger
	Forge     Forge
	Backport  BackportQueue
}

// Handle dispatches the delivery to the handler for its event kind.
// It always returns 200 with a short tag identifying what was handled;
// events the service does not care about are acknowledged and dropped.
func (h *Handler) Handle(ctx context.Context) (int, string) {
	switch h.Event {
	case "ping":
		return http.StatusOK, TagPing
	case "commit_comment":
		h.handleCommitComment(ctx)
		return http.StatusOK, TagCommitComment
	case "issue_comment":
		h.handleIssueComment(ctx)
		return http.StatusOK, TagIssueComment
	case "pull_request_review_comment":
		h.handlePRReviewComment(ctx)
		return http.StatusOK, TagPRReviewComment
	case "pull_request_review":
		return http.StatusOK, h.handlePRReview(ctx)
	case "pull_request":
		h.handlePR(ctx)
		return http.StatusOK, TagPR
	case "push":
		h.handlePush(ctx)
		return http.StatusOK, TagPush
	default:
		logger.Debug("Ignoring unhandled event", zap.String("event", h.Event))
		return http.StatusOK, TagNoop
	}
}

// chatName resolves a forge login to its chat handle
func (h *Handler) chatName(login string) string {
	return h.Config.Users.ChatName(login)
}

// isBot reports whether a login belongs to the bot account
func (h *Handler) isBot(login string) bool {
	return strings.EqualFold(login, h.Config.BotUser)
}

// commentIsWorthRelaying filters out empty comments and the bot's own
// comments
func (h *Handler) commentIsWorthRelaying(body string, author User) bool {
	return strings.TrimSpace(body) != "" && !h.isBot(author.Login)
}

func (h *Handler) handleCommitComment(ctx context.Context) {
	if h.Action != "created" || h.Data.Comment == nil || h.Data.Repository == nil {
		return
	}
	comment := h.Data.Comment
	if !h.commentIsWorthRelaying(comment.Body, comment.User) {
		return
	}

	commitURL := fmt.Sprintf("%s/commit/%s", h.Data.Repository.HTMLURL, comment.CommitID)
	short := ShortSHA(comment.CommitID)
	subject := comment.Path
	if subject == "" {
		subject = short
	}

	msg := fmt.Sprintf("Comment on \"%s\" (<%s|%s>)", subject, commitURL, short)
	attachments := []slack.Attachment{
		slack.NewAttachment(comment.Body).
			Title(h.chatName(comment.User.Login) + " said:").
			TitleLink(comment.HTMLURL).
			Build(),
	}

	// Commit comments have no owner or assignees to address directly
	h.Messenger.SendToChannel(ctx, msg, attachments, h.Data.Repository)
}

func (h *Handler) handleIssueComment(ctx context.Context) {
	if h.Action != "created" || h.Data.Comment == nil || h.Data.Issue == nil || h.Data.Repository == nil {
		return
	}
	comment := h.Data.Comment
	if !h.commentIsWorthRelaying(comment.Body, comment.User) {
		return
	}
	issue := h.Data.Issue

	msg := fmt.Sprintf("Comment on \"<%s|%s>\"", issue.HTMLURL, issue.Title)
	attachments := []slack.Attachment{
		slack.NewAttachment(comment.Body).
			Title(h.chatName(comment.User.Login) + " said:").
			TitleLink(comment.HTMLURL).
			Build(),
	}

	h.Messenger.SendToAll(ctx, msg, attachments, &issue.User, &h.Data.Sender, h.Data.Repository, issue.Assignees)
}

func (h *Handler) handlePRReviewComment(ctx context.Context) {
	if h.Action != "created" || h.Data.Comment == nil || h.Data.PullRequest == nil || h.Data.Repository == nil {
		return
	}
	comment := h.Data.Comment
	if !h.commentIsWorthRelaying(comment.Body, comment.User) {
		return
	}
	pr := h.Data.PullRequest

	msg := fmt.Sprintf("Comment on \"<%s|%s>\"", pr.HTMLURL, pr.Title)
	attachments := []slack.Attachment{
		slack.NewAttachment(comment.Body).
			Title(h.chatName(comment.User.Login) + " said:").
			TitleLink(comment.HTMLURL).
			Build(),
	}

	h.Messenger.SendToAll(ctx, msg, attachments, &pr.User, &h.Data.Sender, h.Data.Repository, pr.Assignees)
}

func (h *Handler) handlePRReview(ctx context.Context) string {
	if h.Action != "submitted" || h.Data.Review == nil || h.Data.PullRequest == nil || h.Data.Repository == nil {
		return TagPRReview
	}
	review := h.Data.Review
	pr := h.Data.PullRequest

	var verb, title, color string
	switch review.State {
	case "commented":
		// A review with only a top-level comment reads like a regular
		// comment.
		if !h.commentIsWorthRelaying(review.Body, review.User) {
			return TagPRReviewComm
		}
		msg := fmt.Sprintf("Comment on \"<%s|%s>\"", pr.HTMLURL, pr.Title)
		attachments := []slack.Attachment{
			slack.NewAttachment(review.Body).
				Title(h.chatName(review.User.Login) + " said:").
				TitleLink(review.HTMLURL).
				Build(),
		}
		h.Messenger.SendToAll(ctx, msg, attachments, &pr.User, &h.Data.Sender, h.Data.Repository, pr.Assignees)
		return TagPRReviewComm
	case "approved":
		verb, title, color = "approved", "Review: Approved", "good"
	case "changes_requested":
		verb, title, color = "requested changes to", "Review: Changes Requested", "danger"
	default:
		return TagPRReview
	}

	msg := fmt.Sprintf("%s %s PR \"<%s|%s>\"",
		h.chatName(review.User.Login), verb, pr.HTMLURL, pr.Title)
	attachments := []slack.Attachment{
		slack.NewAttachment(review.Body).
			Title(title).
			TitleLink(review.HTMLURL).
			Color(color).
			Build(),
	}

	h.Messenger.SendToAll(ctx, msg, attachments, &pr.User, &h.Data.Sender, h.Data.Repository, pr.Assignees)
	return TagPRReview
}

func (h *Handler) handlePR(ctx context.Context) {
	if h.Data.PullRequest == nil || h.Data.Repository == nil {
		return
	}
	pr := h.Data.PullRequest

	var msg string
	switch h.Action {
	case "opened", "ready_for_review":
		// A draft leaving draft state reads like a fresh pull request
		msg = "Pull Request opened by " + h.chatName(pr.User.Login)
	case "closed":
		if pr.IsMerged() {
			msg = "Pull Request merged"
		} else {
			msg = "Pull Request closed"
		}
	case "reopened":
		msg = "Pull Request reopened"
	case "assigned":
		msg = "Pull Request assigned to " + h.assigneeNames(pr)
	case "unassigned":
		msg = "Pull Request unassigned"
	case "labeled":
		if pr.IsMerged() {
			// A backport label attached after the merge still counts
			msg = "Pull Request merged"
		}
	}

	if msg != "" {
		attachments := []slack.Attachment{prAttachment(pr)}
		h.Messenger.SendToAll(ctx, msg, attachments, &pr.User, &h.Data.Sender, h.Data.Repository, pr.Assignees)
	}

	if !pr.IsMerged() {
		return
	}
	switch h.Action {
	case "closed":
		h.scheduleBackportsFromAPI(ctx, pr)
	case "labeled":
		if h.Data.Label != nil {
			h.scheduleBackports(pr, []Label{*h.Data.Label})
		}
	}
}

// assigneeNames joins the chat names of the assignees for display
func (h *Handler) assigneeNames(pr *PullRequest) string {
	names := make([]string, 0, len(pr.Assignees))
	for _, u := range pr.Assignees {
		names = append(names, h.chatName(u.Login))
	}
	return strings.Join(names, ", ")
}

// scheduleBackportsFromAPI fetches the merged pull request's labels and
// schedules a job per backport label. A label fetch failure is reported
// to the review channel and the author.
func (h *Handler) scheduleBackportsFromAPI(ctx context.Context, pr *PullRequest) {
	repo := h.Data.Repository
	labels, err := h.Forge.GetPullRequestLabels(ctx, repo.OwnerLogin(), repo.RepoName(), pr.Number)
	if err != nil {
		logger.Error("Failed to get pull request labels",
			zap.String("repo", repo.FullName),
			zap.Int("number", pr.Number),
			zap.Error(err),
		)
		attachments := []slack.Attachment{
			slack.NewAttachment(err.Error()).Color("danger").Build(),
		}
		h.Messenger.SendToOwner(ctx, "Error getting Pull Request labels", attachments, &pr.User, repo)
		return
	}
	h.scheduleBackports(pr, labels)
}

// scheduleBackports enqueues a job for every label matching the backport
// pattern, in label order.
func (h *Handler) scheduleBackports(pr *PullRequest, labels []Label) {
	for _, label := range labels {
		m := backportLabelPattern.FindStringSubmatch(label.Name)
		if m == nil {
			continue
		}
		target := "release/" + m[1]
		job := MergeJob{
			ID:           idgen.NewJobID(),
			Repo:         *h.Data.Repository,
			PullRequest:  *pr,
			TargetBranch: target,
		}
		if !h.Backport.Enqueue(job) {
			logger.Warn("Backport job dropped",
				zap.String("repo", h.Data.Repository.FullName),
				zap.Int("number", pr.Number),
				zap.String("target_branch", target),
			)
		}
	}
}

func (h *Handler) handlePush(ctx context.Context) {
	if h.Data.Repository == nil {
		return
	}
	branch := h.Data.BranchName()
	if branch == "" {
		return
	}
	repo := h.Data.Repository

	prs, err := h.Forge.ListPullRequests(ctx, repo.OwnerLogin(), repo.RepoName(), "open", h.Data.After)
	if err != nil {
		logger.Error("Failed to list pull requests for push",
			zap.String("repo", repo.FullName),
			zap.String("branch", branch),
			zap.Error(err),
		)
		return
	}
	if len(prs) == 0 {
		return
	}

	msg := fmt.Sprintf("%s pushed %d commit(s) to branch %s",
		h.chatName(h.Data.Sender.Login), len(h.Data.Commits), branch)

	commitAttachments := make([]slack.Attachment, 0, len(h.Data.Commits))
	for i := range h.Data.Commits {
		c := &h.Data.Commits[i]
		commitAttachments = append(commitAttachments,
			slack.NewAttachment(fmt.Sprintf("<%s|%s>: %s", c.URL, ShortSHA(c.ID), c.Summary())).Build())
	}

	for i := range prs {
		pr := &prs[i]

		attachments := make([]slack.Attachment, 0, 1+len(commitAttachments))
		attachments = append(attachments, prAttachment(pr))
		attachments = append(attachments, commitAttachments...)

		h.Messenger.SendToAll(ctx, msg, attachments, &pr.User, &h.Data.Sender, repo, pushAudience(prs, i))

		if h.Data.Forced {
			h.notifyForcePush(ctx, pr)
		}
	}
}

// pushAudience collects the direct recipients for one of the pull
// requests a push touched. Assignees after the first act as reviewers
// of the branch, so they hear about every open pull request on it, not
// just their own.
func pushAudience(prs []PullRequest, i int) []User {
	audience := append([]User(nil), prs[i].Assignees...)
	for j := range prs {
		if j == i || len(prs[j].Assignees) < 2 {
			continue
		}
		audience = append(audience, prs[j].Assignees[1:]...)
	}
	return audience
}

// notifyForcePush records a force-push on the pull request unless the
// title marks it as work in progress or the repository has no review
// channel.
func (h *Handler) notifyForcePush(ctx context.Context, pr *PullRequest) {
	repo := h.Data.Repository
	if pr.IsWIP() || !h.Config.Repos.IsConfigured(repo.Host(), repo.FullName) {
		return
	}

	comment := fmt.Sprintf("Force-push detected: before: %s, after: %s",
		ShortSHA(h.Data.Before), ShortSHA(h.Data.After))
	if h.Data.Compare != "" {
		comment += fmt.Sprintf(" ([compare](%s))", h.Data.Compare)
	}

	if err := h.Forge.CommentPullRequest(ctx, repo.OwnerLogin(), repo.RepoName(), pr.Number, comment); err != nil {
		logger.Error("Failed to comment on force-pushed pull request",
			zap.String("repo", repo.FullName),
			zap.Int("number", pr.Number),
			zap.Error(err),
		)
	}
}

// prAttachment builds the standard pull request summary attachment
func prAttachment(pr *PullRequest) slack.Attachment {
	return slack.NewAttachment("").
		Title(fmt.Sprintf("Pull Request #%d: \"%s\"", pr.Number, pr.Title)).
		TitleLink(pr.HTMLURL).
		Build()
}
