package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/service/llm"
	slackSvc "github.com/secmon-lab/vantage/pkg/service/slack"
	"github.com/secmon-lab/vantage/pkg/utils/apperr"
	"github.com/slack-go/slack"
)

// ErrTagSlackDisabled marks notification requests made without a Slack client
var ErrTagSlackDisabled = goerr.NewTag("slack_disabled")

// OutlookGenerator produces an executive narrative for a report
type OutlookGenerator interface {
	GenerateOutlook(ctx context.Context, title string, report *model.Report) (*llm.Outlook, error)
}

// NotifyOption is a functional option for configuring Notify
type NotifyOption func(*Notify)

// WithOutlook enables the LLM outlook section of summary messages
func WithOutlook(gen OutlookGenerator) NotifyOption {
	return func(n *Notify) {
		n.outlook = gen
	}
}

// WithDefaultChannel sets the channel used when a request names none
func WithDefaultChannel(channelID types.ChannelID) NotifyOption {
	return func(n *Notify) {
		n.defaultChannel = channelID
	}
}

// Notify posts governance summaries to Slack
type Notify struct {
	governance     *Governance
	slackClient    interfaces.SlackClient
	outlook        OutlookGenerator
	blocks         *slackSvc.BlockBuilder
	defaultChannel types.ChannelID
}

// NewNotify creates a new Notify use case. slackClient may be nil, in which case every
// notification fails with ErrTagSlackDisabled.
func NewNotify(governance *Governance, slackClient interfaces.SlackClient, opts ...NotifyOption) *Notify {
	n := &Notify{
		governance:  governance,
		slackClient: slackClient,
		blocks:      slackSvc.NewBlockBuilder(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether a Slack client is configured
func (n *Notify) Enabled() bool {
	return n.slackClient != nil
}

// NotifyReport posts the summary of a report to a channel. An outlook failure is logged
// and the summary is posted without it.
func (n *Notify) NotifyReport(ctx context.Context, channelID types.ChannelID, title string, report *model.Report) error {
	if n.slackClient == nil {
		return goerr.New("Slack is not configured", goerr.T(ErrTagSlackDisabled))
	}
	if channelID == "" {
		channelID = n.defaultChannel
	}
	if channelID == "" {
		return goerr.New("channel is required", goerr.T(model.ErrTagInvalidInput))
	}

	input := slackSvc.SummaryInput{
		Title:      title,
		Report:     report,
		Severities: n.governance.Config().GetSeveritiesConfig(),
	}
	if n.outlook != nil && report.Summary.TotalItems > 0 {
		outlook, err := n.outlook.GenerateOutlook(ctx, title, report)
		if err != nil {
			apperr.Degrade(ctx, "failed to generate outlook, posting summary without it", err)
		} else {
			input.Outlook = outlook.Markdown()
		}
	}

	_, ts, err := n.slackClient.PostMessage(ctx, channelID.String(),
		slack.MsgOptionText(n.blocks.BuildSummaryText(report), false),
		slack.MsgOptionBlocks(n.blocks.BuildSummaryBlocks(input)...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post summary", goerr.V("channel", channelID))
	}

	ctxlog.From(ctx).Info("summary posted",
		"channel", channelID,
		"ts", ts,
		"dataset", report.DatasetID,
		"verdict", report.Summary.Verdict,
	)
	return nil
}

// NotifyDataset analyzes a stored dataset and posts its summary
func (n *Notify) NotifyDataset(ctx context.Context, channelID types.ChannelID, id types.DatasetID, filter model.Filter) (*model.Report, error) {
	dataset, err := n.governance.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	report, err := n.governance.Analyze(ctx, dataset.Records, filter, types.Date{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze dataset", goerr.V("id", id))
	}
	report.DatasetID = dataset.ID

	if err := n.NotifyReport(ctx, channelID, dataset.Name, report); err != nil {
		return nil, err
	}
	return report, nil
}

// NotifyError posts an error message to a channel
func (n *Notify) NotifyError(ctx context.Context, channelID types.ChannelID, message string) error {
	if n.slackClient == nil {
		return goerr.New("Slack is not configured", goerr.T(ErrTagSlackDisabled))
	}
	if _, _, err := n.slackClient.PostMessage(ctx, channelID.String(),
		slack.MsgOptionText(message, false),
		slack.MsgOptionBlocks(n.blocks.BuildErrorBlocks(message)...),
	); err != nil {
		return goerr.Wrap(err, "failed to post error message", goerr.V("channel", channelID))
	}
	return nil
}
