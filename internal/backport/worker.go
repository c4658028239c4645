package backport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/octobridge/octobridge/internal/config"
	"github.com/octobridge/octobridge/internal/event"
	"github.com/octobridge/octobridge/internal/git/workspace"
	"github.com/octobridge/octobridge/internal/slack"
	apperrors "github.com/octobridge/octobridge/pkg/errors"
	"github.com/octobridge/octobridge/pkg/logger"
	"github.com/octobridge/octobridge/pkg/telemetry"
)

// Worker drains the job queue and executes backports
type Worker struct {
	cfg       config.BackportConfig
	queue     *Queue
	forge     event.Forge
	messenger event.Messenger
	runner    *workspace.Runner

	wg sync.WaitGroup
}

// NewWorker creates a worker pool over the given queue
func NewWorker(cfg config.BackportConfig, queue *Queue, forge event.Forge,
	messenger event.Messenger, runner *workspace.Runner) *Worker {
	return &Worker{
		cfg:       cfg,
		queue:     queue,
		forge:     forge,
		messenger: messenger,
		runner:    runner,
	}
}

// Start launches the worker goroutines. They exit when the queue is
// closed or the context is canceled.
func (w *Worker) Start(ctx context.Context) {
	workers := w.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.loop(ctx)
		}()
	}
	logger.Info("Backport workers started", zap.Int("workers", workers))
}

// Stop waits for in-flight jobs to finish
func (w *Worker) Stop() {
	w.queue.Close()
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.queue.Jobs():
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job event.MergeJob) {
	start := time.Now()
	logger.Info("Backport job started",
		zap.String("job_id", job.ID),
		zap.String("repo", job.Repo.FullName),
		zap.Int("number", job.PullRequest.Number),
		zap.String("target_branch", job.TargetBranch),
	)

	jobCtx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	newPR, err := w.execute(jobCtx, job)
	duration := time.Since(start)
	if m := telemetry.GetMetrics(); m.BackportJobDuration != nil {
		m.BackportJobDuration.Record(ctx, duration.Seconds())
	}

	if err != nil {
		if m := telemetry.GetMetrics(); m.BackportJobFailures != nil {
			m.BackportJobFailures.Add(ctx, 1)
		}
		logger.Error("Backport job failed",
			zap.String("job_id", job.ID),
			zap.String("target_branch", job.TargetBranch),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		w.reportFailure(ctx, job, err)
		return
	}

	logger.Info("Backport job completed",
		zap.String("job_id", job.ID),
		zap.String("target_branch", job.TargetBranch),
		zap.Int("new_number", newPR.Number),
		zap.Duration("duration", duration),
	)
	w.reportSuccess(ctx, job, newPR)
}

// execute cherry-picks the merge commit onto the target branch and
// opens the follow-up pull request.
func (w *Worker) execute(ctx context.Context, job event.MergeJob) (*event.PullRequest, error) {
	pr := &job.PullRequest
	if pr.MergeCommitSHA == "" {
		return nil, apperrors.New(apperrors.ErrCodeBackportGit, "pull request has no merge commit")
	}

	ws, err := w.runner.Clone(ctx, &job.Repo)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	if err := ws.Checkout(ctx, job.TargetBranch); err != nil {
		return nil, err
	}

	workBranch := fmt.Sprintf("backport/%s/%s", job.TargetBranch, event.ShortSHA(pr.MergeCommitSHA))
	if err := ws.CheckoutNew(ctx, workBranch); err != nil {
		return nil, err
	}
	if err := ws.CherryPick(ctx, pr.MergeCommitSHA); err != nil {
		return nil, err
	}
	if err := ws.Push(ctx, workBranch); err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s (backport to %s)", pr.Title, job.TargetBranch)
	body := fmt.Sprintf("Automated backport of #%d to `%s`.", pr.Number, job.TargetBranch)
	return w.forge.CreatePullRequest(ctx, job.Repo.OwnerLogin(), job.Repo.RepoName(),
		title, body, workBranch, job.TargetBranch)
}

// reportSuccess notifies the review channel and the original author
func (w *Worker) reportSuccess(ctx context.Context, job event.MergeJob, newPR *event.PullRequest) {
	msg := fmt.Sprintf("Pull Request #%d backported to %s", job.PullRequest.Number, job.TargetBranch)
	attachments := []slack.Attachment{
		slack.NewAttachment("").
			Title(fmt.Sprintf("Pull Request #%d: \"%s\"", newPR.Number, newPR.Title)).
			TitleLink(newPR.HTMLURL).
			Build(),
	}
	w.messenger.SendToOwner(ctx, msg, attachments, &job.PullRequest.User, &job.Repo)
}

// reportFailure comments on the original pull request and notifies the
// author so the backport can be redone by hand.
func (w *Worker) reportFailure(ctx context.Context, job event.MergeJob, jobErr error) {
	comment := fmt.Sprintf("Error backporting to `%s`: %v", job.TargetBranch, jobErr)
	if err := w.forge.CommentPullRequest(ctx, job.Repo.OwnerLogin(), job.Repo.RepoName(),
		job.PullRequest.Number, comment); err != nil {
		logger.Error("Failed to comment backport failure",
			zap.String("repo", job.Repo.FullName),
			zap.Int("number", job.PullRequest.Number),
			zap.Error(err),
		)
	}

	msg := fmt.Sprintf("Error backporting Pull Request #%d to %s", job.PullRequest.Number, job.TargetBranch)
	attachments := []slack.Attachment{
		slack.NewAttachment(jobErr.Error()).Color("danger").Build(),
	}
	w.messenger.SendToOwner(ctx, msg, attachments, &job.PullRequest.User, &job.Repo)
}
