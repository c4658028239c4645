// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/octobridge/octobridge/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/octobridge/octobridge"
)

// Metrics holds all application metrics
type Metrics struct {
	// Webhook metrics
	WebhooksTotal   metric.Int64Counter
	WebhookDuration metric.Float64Histogram

	// Chat metrics
	ChatPostsTotal     metric.Int64Counter
	ChatPostErrors     metric.Int64Counter

	// Forge metrics
	ForgeRequestsTotal metric.Int64Counter
	ForgeRequestErrors metric.Int64Counter

	// Backport metrics
	BackportJobsTotal    metric.Int64Counter
	BackportJobsDropped  metric.Int64Counter
	BackportJobDuration  metric.Float64Histogram
	BackportJobFailures  metric.Int64Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			// Return empty metrics to avoid nil pointer
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

// initMetrics initializes all application metrics
func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	var err error

	m.WebhooksTotal, err = meter.Int64Counter(
		"octobridge_webhooks_total",
		metric.WithDescription("Total number of webhook deliveries handled"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	m.WebhookDuration, err = meter.Float64Histogram(
		"octobridge_webhook_duration_seconds",
		metric.WithDescription("Duration of webhook handling in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.ChatPostsTotal, err = meter.Int64Counter(
		"octobridge_chat_posts_total",
		metric.WithDescription("Total number of chat messages posted"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	m.ChatPostErrors, err = meter.Int64Counter(
		"octobridge_chat_post_errors_total",
		metric.WithDescription("Total number of failed chat posts"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	m.ForgeRequestsTotal, err = meter.Int64Counter(
		"octobridge_forge_requests_total",
		metric.WithDescription("Total number of forge API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.ForgeRequestErrors, err = meter.Int64Counter(
		"octobridge_forge_request_errors_total",
		metric.WithDescription("Total number of failed forge API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.BackportJobsTotal, err = meter.Int64Counter(
		"octobridge_backport_jobs_total",
		metric.WithDescription("Total number of backport jobs enqueued"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	m.BackportJobsDropped, err = meter.Int64Counter(
		"octobridge_backport_jobs_dropped_total",
		metric.WithDescription("Total number of backport jobs dropped due to a full queue"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	m.BackportJobDuration, err = meter.Float64Histogram(
		"octobridge_backport_job_duration_seconds",
		metric.WithDescription("Duration of backport job execution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	m.BackportJobFailures, err = meter.Int64Counter(
		"octobridge_backport_job_failures_total",
		metric.WithDescription("Total number of failed backport jobs"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordWebhook records a handled webhook delivery with its result tag
func RecordWebhook(ctx context.Context, eventKind, tag string, durationSeconds float64) {
	m := GetMetrics()
	if m.WebhooksTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("event", eventKind),
		attribute.String("tag", tag),
	)
	m.WebhooksTotal.Add(ctx, 1, attrs)
	m.WebhookDuration.Record(ctx, durationSeconds, attrs)
}

// RecordChatPost records a chat post attempt
func RecordChatPost(ctx context.Context, recipientKind string, err error) {
	m := GetMetrics()
	if m.ChatPostsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("recipient_kind", recipientKind))
	m.ChatPostsTotal.Add(ctx, 1, attrs)
	if err != nil {
		m.ChatPostErrors.Add(ctx, 1, attrs)
	}
}

// RecordForgeRequest records a forge API call
func RecordForgeRequest(ctx context.Context, operation string, err error) {
	m := GetMetrics()
	if m.ForgeRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.ForgeRequestsTotal.Add(ctx, 1, attrs)
	if err != nil {
		m.ForgeRequestErrors.Add(ctx, 1, attrs)
	}
}

// RecordBackportJob records an enqueued (or dropped) backport job
func RecordBackportJob(ctx context.Context, targetBranch string, dropped bool) {
	m := GetMetrics()
	if m.BackportJobsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("target_branch", targetBranch))
	if dropped {
		m.BackportJobsDropped.Add(ctx, 1, attrs)
		return
	}
	m.BackportJobsTotal.Add(ctx, 1, attrs)
}
