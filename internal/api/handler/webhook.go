// Package handler contains the HTTP handlers for the API server
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/octobridge/octobridge/internal/config"
	"github.com/octobridge/octobridge/internal/event"
	"github.com/octobridge/octobridge/pkg/logger"
	"github.com/octobridge/octobridge/pkg/telemetry"
)

// EventHeader identifies the event kind of a webhook delivery
const EventHeader = "X-GitHub-Event"

// DeliveryHeader carries the forge's delivery ID
const DeliveryHeader = "X-GitHub-Delivery"

// WebhookHandler receives webhook deliveries from the forge
type WebhookHandler struct {
	cfg       *config.Config
	messenger event.Messenger
	forge     event.Forge
	backport  event.BackportQueue
}

// NewWebhookHandler creates the webhook handler with its collaborators
func NewWebhookHandler(cfg *config.Config, messenger event.Messenger,
	forge event.Forge, backport event.BackportQueue) *WebhookHandler {
	return &WebhookHandler{
		cfg:       cfg,
		messenger: messenger,
		forge:     forge,
		backport:  backport,
	}
}

// Handle processes one webhook delivery. The response body is a short
// tag naming what was handled.
func (h *WebhookHandler) Handle(c *gin.Context) {
	eventKind := c.GetHeader(EventHeader)
	if eventKind == "" {
		c.String(http.StatusBadRequest, "missing event header")
		return
	}

	var payload event.HookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.Warn("Failed to decode webhook payload",
			zap.String("event", eventKind),
			zap.Error(err),
		)
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}

	repoName := ""
	if payload.Repository != nil {
		repoName = payload.Repository.FullName
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "webhook.handle",
		telemetry.WithEventAttributes(eventKind, payload.Action, repoName))
	defer span.End()

	handler := &event.Handler{
		Event:     eventKind,
		Action:    payload.Action,
		Data:      &payload,
		Config:    h.cfg,
		Messenger: h.messenger,
		Forge:     h.forge,
		Backport:  h.backport,
	}

	start := time.Now()
	status, tag := handler.Handle(ctx)
	telemetry.RecordWebhook(ctx, eventKind, tag, time.Since(start).Seconds())
	span.SetAttributes(telemetry.AttrEventTag.String(tag))

	logger.Info("Webhook handled",
		zap.String("event", eventKind),
		zap.String("action", payload.Action),
		zap.String("repo", repoName),
		zap.String("delivery", c.GetHeader(DeliveryHeader)),
		zap.String("tag", tag),
	)

	c.String(status, tag)
}
