package config

import (
	"log/slog"

	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	slackSvc "github.com/secmon-lab/vantage/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds Slack configuration
type Slack struct {
	SigningSecret  string
	OAuthToken     string
	DefaultChannel string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack signing secret for slash command verification",
			Category:    "Slack",
			Sources:     cli.EnvVars("VANTAGE_SLACK_SIGNING_SECRET"),
			Destination: &s.SigningSecret,
		},
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack bot token used to post summaries",
			Category:    "Slack",
			Sources:     cli.EnvVars("VANTAGE_SLACK_OAUTH_TOKEN"),
			Destination: &s.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-default-channel",
			Usage:       "Channel ID used when a notification names none",
			Category:    "Slack",
			Sources:     cli.EnvVars("VANTAGE_SLACK_DEFAULT_CHANNEL"),
			Destination: &s.DefaultChannel,
		},
	}
}

// Configure creates a Slack client if configured, returns nil if not
func (s *Slack) Configure(logger *slog.Logger) interfaces.SlackClient {
	if !s.IsConfigured() {
		logger.Warn("Slack not configured - notifications are disabled")
		return nil
	}

	logger.Info("Configuring Slack client")
	return slackSvc.NewClient(s.OAuthToken)
}

// IsConfigured checks if Slack is configured for posting messages
func (s *Slack) IsConfigured() bool {
	return s.OAuthToken != ""
}

// IsFullyConfigured checks if Slack is configured for slash commands as well
func (s *Slack) IsFullyConfigured() bool {
	return s.SigningSecret != "" && s.OAuthToken != ""
}

// Channel returns the default channel ID
func (s *Slack) Channel() types.ChannelID {
	return types.ChannelID(s.DefaultChannel)
}

// LogValue returns structured log value
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_signing_secret", s.SigningSecret != ""),
		slog.Bool("has_oauth_token", s.OAuthToken != ""),
		slog.String("default_channel", s.DefaultChannel),
	)
}
