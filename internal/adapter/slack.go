package adapter

import (
	"context"
	"log/slog"

	"github.com/harunnryd/shukan/internal/errors"

	"github.com/slack-go/slack"
)

type SlackAdapter struct {
	channelID string
	client    *slack.Client
}

func NewSlackAdapter(botToken, channelID string, options ...slack.Option) *SlackAdapter {
	return &SlackAdapter{
		channelID: channelID,
		client:    slack.New(botToken, options...),
	}
}

func (s *SlackAdapter) Name() string {
	return "slack"
}

func (s *SlackAdapter) Start(ctx context.Context) error {
	slog.Info("Slack notifier started", "channel", s.channelID)
	return nil
}

func (s *SlackAdapter) Send(ctx context.Context, content string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channelID, slack.MsgOptionText(content, false))
	if err != nil {
		return errors.Wrap(err, "failed to send Slack message")
	}
	slog.Debug("Slack message sent", "channel", s.channelID)
	return nil
}

func (s *SlackAdapter) Health(ctx context.Context) error {
	if s.client == nil {
		return errors.Transient("Slack client not initialized")
	}

	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return errors.Transient("Slack connection failed")
	}
	return nil
}
