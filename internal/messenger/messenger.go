// Package messenger routes event notifications to their audience: the
// repository's review channel plus direct messages to interested users.
package messenger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/octobridge/octobridge/internal/config"
	"github.com/octobridge/octobridge/internal/event"
	"github.com/octobridge/octobridge/internal/slack"
	"github.com/octobridge/octobridge/pkg/logger"
	"github.com/octobridge/octobridge/pkg/telemetry"
)

// ChatPoster posts a single message to the chat service
type ChatPoster interface {
	Post(ctx context.Context, msg slack.Message) error
}

// Messenger implements event.Messenger on top of a chat client
type Messenger struct {
	cfg  *config.Config
	chat ChatPoster
}

// New creates a messenger backed by the given chat client
func New(cfg *config.Config, chat ChatPoster) *Messenger {
	return &Messenger{cfg: cfg, chat: chat}
}

var _ event.Messenger = (*Messenger)(nil)

// SendToAll notifies the review channel, the item owner and the
// assignees. Direct messages are deduplicated by login; the sender and
// the bot account are excluded.
func (m *Messenger) SendToAll(ctx context.Context, text string, attachments []slack.Attachment,
	itemOwner *event.User, sender *event.User, repo *event.Repo, assignees []event.User) {
	m.send(ctx, text, attachments, itemOwner, sender, repo, assignees)
}

// SendToOwner notifies the review channel and the item owner only
func (m *Messenger) SendToOwner(ctx context.Context, text string, attachments []slack.Attachment,
	itemOwner *event.User, repo *event.Repo) {
	m.send(ctx, text, attachments, itemOwner, nil, repo, nil)
}

// SendToChannel notifies the review channel only
func (m *Messenger) SendToChannel(ctx context.Context, text string, attachments []slack.Attachment,
	repo *event.Repo) {
	m.send(ctx, text, attachments, nil, nil, repo, nil)
}

func (m *Messenger) send(ctx context.Context, text string, attachments []slack.Attachment,
	itemOwner *event.User, sender *event.User, repo *event.Repo, assignees []event.User) {

	if repo != nil {
		if channel, ok := m.cfg.Repos.Lookup(repo.Host(), repo.FullName); ok {
			channelText := fmt.Sprintf("%s (<%s|%s>)", text, repo.HTMLURL, repo.FullName)
			m.post(ctx, "channel", slack.Message{
				Channel:     channel,
				Text:        channelText,
				Attachments: attachments,
			})
		}
	}

	seen := map[string]bool{
		strings.ToLower(m.cfg.BotUser): true,
	}
	if sender != nil {
		seen[strings.ToLower(sender.Login)] = true
	}

	var recipients []event.User
	if itemOwner != nil {
		recipients = append(recipients, *itemOwner)
	}
	recipients = append(recipients, assignees...)

	for _, u := range recipients {
		key := strings.ToLower(u.Login)
		if u.Login == "" || seen[key] {
			continue
		}
		seen[key] = true

		m.post(ctx, "dm", slack.Message{
			Channel:     m.cfg.Users.Mention(u.Login),
			Text:        text,
			Attachments: attachments,
		})
	}
}

// post delivers one message, logging failures without propagating them.
// A chat outage must never fail webhook handling.
func (m *Messenger) post(ctx context.Context, kind string, msg slack.Message) {
	err := m.chat.Post(ctx, msg)
	telemetry.RecordChatPost(ctx, kind, err)
	if err != nil {
		logger.Error("Failed to post chat message",
			zap.String("channel", msg.Channel),
			zap.Error(err),
		)
	}
}
