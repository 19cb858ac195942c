package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
	"github.com/slack-go/slack"
)

// Service provides Slack messaging capabilities
type Service struct {
	client *slack.Client
}

var _ interfaces.SlackClient = (*Service)(nil)

// New creates a new Slack service
func New(token string, options ...slack.Option) *Service {
	return &Service{
		client: slack.New(token, options...),
	}
}

// PostMessage sends a message to a Slack channel
func (s *Service) PostMessage(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	channel, timestamp, err := s.client.PostMessageContext(ctx, channelID, options...)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to post message to Slack",
			goerr.V("channelID", channelID))
	}
	return channel, timestamp, nil
}
