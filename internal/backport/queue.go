// Package backport executes label-driven backport jobs: cherry-picking
// merged pull requests onto release branches and opening follow-up pull
// requests.
package backport

import (
	"context"

	"go.uber.org/zap"

	"github.com/octobridge/octobridge/internal/event"
	"github.com/octobridge/octobridge/pkg/logger"
	"github.com/octobridge/octobridge/pkg/telemetry"
)

// Queue is a bounded in-memory job queue. A full queue drops new jobs
// instead of blocking webhook handling.
type Queue struct {
	jobs chan event.MergeJob
}

// NewQueue creates a queue with the given capacity
func NewQueue(size int) *Queue {
	return &Queue{jobs: make(chan event.MergeJob, size)}
}

var _ event.BackportQueue = (*Queue)(nil)

// Enqueue submits a job without blocking. Returns false if the queue is
// full and the job was dropped.
func (q *Queue) Enqueue(job event.MergeJob) bool {
	select {
	case q.jobs <- job:
		telemetry.RecordBackportJob(context.Background(), job.TargetBranch, false)
		logger.Info("Backport job enqueued",
			zap.String("job_id", job.ID),
			zap.String("repo", job.Repo.FullName),
			zap.Int("number", job.PullRequest.Number),
			zap.String("target_branch", job.TargetBranch),
		)
		return true
	default:
		telemetry.RecordBackportJob(context.Background(), job.TargetBranch, true)
		return false
	}
}

// Jobs returns the receive side of the queue for workers
func (q *Queue) Jobs() <-chan event.MergeJob {
	return q.jobs
}

// Close closes the queue. Workers drain remaining jobs and exit.
func (q *Queue) Close() {
	close(q.jobs)
}
