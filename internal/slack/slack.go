// Package slack provides a minimal client for posting messages to a
// Slack-compatible incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/octobridge/octobridge/pkg/errors"
	"github.com/octobridge/octobridge/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Message represents a chat message addressed to a channel or user
type Message struct {
	// Channel is a channel name or an "@user" direct-message address
	Channel     string       `json:"channel"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents structured content attached to a message
type Attachment struct {
	Fallback  string `json:"fallback,omitempty"`
	Color     string `json:"color,omitempty"`
	Title     string `json:"title,omitempty"`
	TitleLink string `json:"title_link,omitempty"`
	Text      string `json:"text,omitempty"`
}

// AttachmentBuilder builds an Attachment with a fluent interface
type AttachmentBuilder struct {
	attachment Attachment
}

// NewAttachment creates a builder with the given body text. The text is
// also used as the fallback shown by clients that cannot render
// attachments.
func NewAttachment(text string) *AttachmentBuilder {
	return &AttachmentBuilder{attachment: Attachment{Text: text, Fallback: text}}
}

// Title sets the attachment title
func (b *AttachmentBuilder) Title(title string) *AttachmentBuilder {
	b.attachment.Title = title
	return b
}

// TitleLink sets the attachment title link
func (b *AttachmentBuilder) TitleLink(link string) *AttachmentBuilder {
	b.attachment.TitleLink = link
	return b
}

// Color sets the attachment color ("good", "warning", "danger" or hex)
func (b *AttachmentBuilder) Color(color string) *AttachmentBuilder {
	b.attachment.Color = color
	return b
}

// Build returns the assembled attachment
func (b *AttachmentBuilder) Build() Attachment {
	return b.attachment
}

// Client posts messages to a Slack incoming webhook
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient creates a new Slack webhook client
func NewClient(webhookURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Post sends a message to the webhook endpoint
func (c *Client) Post(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeChatPost, "failed to marshal message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeChatPost, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeChatPost, "failed to post message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.New(apperrors.ErrCodeChatPost,
			fmt.Sprintf("webhook returned status %d: %s", resp.StatusCode, string(body)))
	}

	logger.Debug("Posted chat message",
		zap.String("channel", msg.Channel),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}
