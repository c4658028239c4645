// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the default tracer name for the application
	TracerName = "github.com/octobridge/octobridge"
)

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name and returns the context and span.
// The caller is responsible for calling span.End() when the operation is complete.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SetSpanError records an error on the span and sets its status to error
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanOK sets the span status to OK
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Common attribute keys for consistent naming
var (
	// Webhook attributes
	AttrEventKind   = attribute.Key("event.kind")
	AttrEventAction = attribute.Key("event.action")
	AttrEventTag    = attribute.Key("event.tag")

	// Repository attributes
	AttrRepoFullName = attribute.Key("repo.full_name")
	AttrRepoHost     = attribute.Key("repo.host")

	// Pull request attributes
	AttrPRNumber = attribute.Key("pr.number")

	// Backport attributes
	AttrBackportTarget = attribute.Key("backport.target_branch")
)

// WithEventAttributes returns span start options with webhook event attributes
func WithEventAttributes(eventKind, action, repoFullName string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrEventKind.String(eventKind),
		AttrEventAction.String(action),
		AttrRepoFullName.String(repoFullName),
	)
}
