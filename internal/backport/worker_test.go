package backport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobridge/octobridge/internal/config"
	"github.com/octobridge/octobridge/internal/event"
	"github.com/octobridge/octobridge/internal/git/workspace"
	"github.com/octobridge/octobridge/internal/slack"
)

type recordedSend struct {
	text        string
	attachments []slack.Attachment
	owner       string
}

type fakeMessenger struct {
	sends []recordedSend
}

func (f *fakeMessenger) SendToAll(ctx context.Context, text string, attachments []slack.Attachment,
	itemOwner *event.User, sender *event.User, repo *event.Repo, assignees []event.User) {
	f.sends = append(f.sends, recordedSend{text, attachments, itemOwner.Login})
}

func (f *fakeMessenger) SendToOwner(ctx context.Context, text string, attachments []slack.Attachment,
	itemOwner *event.User, repo *event.Repo) {
	f.sends = append(f.sends, recordedSend{text, attachments, itemOwner.Login})
}

func (f *fakeMessenger) SendToChannel(ctx context.Context, text string, attachments []slack.Attachment,
	repo *event.Repo) {
	f.sends = append(f.sends, recordedSend{text: text, attachments: attachments})
}

type fakeForge struct {
	comments []string
}

func (f *fakeForge) GetPullRequestLabels(ctx context.Context, owner, repo string, number int) ([]event.Label, error) {
	return nil, nil
}

func (f *fakeForge) ListPullRequests(ctx context.Context, owner, repo, state, headSHA string) ([]event.PullRequest, error) {
	return nil, nil
}

func (f *fakeForge) CommentPullRequest(ctx context.Context, owner, repo string, number int, comment string) error {
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeForge) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*event.PullRequest, error) {
	return &event.PullRequest{Number: 33, Title: title, HTMLURL: "http://the-new-pr"}, nil
}

func TestWorkerReportsFailureWithoutMergeCommit(t *testing.T) {
	forge := &fakeForge{}
	msgr := &fakeMessenger{}
	queue := NewQueue(1)
	w := NewWorker(config.BackportConfig{Workers: 1}, queue, forge, msgr,
		&workspace.Runner{BaseDir: t.TempDir()})

	merged := true
	job := event.MergeJob{
		ID:   "job1",
		Repo: event.Repo{FullName: "some-user/some-repo", HTMLURL: "http://host/some-user/some-repo"},
		PullRequest: event.PullRequest{
			Number: 32,
			Title:  "The PR",
			User:   event.NewUser("the-pr-owner"),
			Merged: &merged,
			// no MergeCommitSHA: the job cannot run
		},
		TargetBranch: "release/1.0",
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.True(t, queue.Enqueue(job))
	queue.Close()
	w.wg.Wait()

	require.Len(t, forge.comments, 1)
	assert.Contains(t, forge.comments[0], "Error backporting to `release/1.0`")
	assert.Contains(t, forge.comments[0], "no merge commit")

	require.Len(t, msgr.sends, 1)
	assert.Equal(t, "Error backporting Pull Request #32 to release/1.0", msgr.sends[0].text)
	assert.Equal(t, "the-pr-owner", msgr.sends[0].owner)
	require.Len(t, msgr.sends[0].attachments, 1)
	assert.Equal(t, "danger", msgr.sends[0].attachments[0].Color)
}

func TestWorkerStopDrainsQueue(t *testing.T) {
	forge := &fakeForge{}
	msgr := &fakeMessenger{}
	queue := NewQueue(2)
	w := NewWorker(config.BackportConfig{Workers: 2}, queue, forge, msgr,
		&workspace.Runner{BaseDir: t.TempDir()})

	ctx := context.Background()
	w.Start(ctx)

	require.True(t, queue.Enqueue(event.MergeJob{ID: "a", TargetBranch: "release/1.0"}))
	require.True(t, queue.Enqueue(event.MergeJob{ID: "b", TargetBranch: "release/2.0"}))

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not stop")
	}

	// Both jobs failed fast (no merge commit) and were reported
	assert.Len(t, forge.comments, 2)
}
