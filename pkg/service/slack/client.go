package slack

import (
	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
)

// NewClient returns a Slack client for the given bot token, or nil when the token is empty.
// Callers treat a nil client as "Slack delivery disabled".
func NewClient(token string) interfaces.SlackClient {
	if token == "" {
		return nil
	}
	return New(token)
}
