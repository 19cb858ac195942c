package slack

import (
	"fmt"
	"strings"

	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/slack-go/slack"
)

// Number of velocity periods and breakdown values shown in the summary message
const (
	summaryPeriods    = 4
	summaryBreakdowns = 3
)

// GetSeverityEmoji returns emoji based on severity level
func GetSeverityEmoji(level int) string {
	switch {
	case level >= 80:
		return "🚨" // Critical
	case level >= 50:
		return "⚠️" // High/Medium
	case level >= 10:
		return "ℹ️" // Low/Info
	case level >= 0:
		return "✅" // Ignorable (level 0)
	default:
		return "❓" // Not configured
	}
}

// getVerdictEmoji returns emoji based on governance verdict
func getVerdictEmoji(verdict types.Verdict) string {
	switch verdict {
	case types.VerdictGo:
		return "🟢"
	case types.VerdictHold:
		return "🔴"
	default:
		return "⚪"
	}
}

// BlockBuilder provides methods to build Slack message blocks
type BlockBuilder struct{}

// NewBlockBuilder creates a new BlockBuilder instance
func NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{}
}

// SummaryInput carries what the executive summary message shows
type SummaryInput struct {
	Title      string
	Report     *model.Report
	Severities *model.SeveritiesConfig
	Outlook    string // optional narrative, omitted when empty
}

// BuildSummaryBlocks builds the executive summary message of a governance report
func (b *BlockBuilder) BuildSummaryBlocks(in SummaryInput) []slack.Block {
	report := in.Report
	s := report.Summary

	title := in.Title
	if title == "" {
		title = "Defect governance summary"
	}

	blocks := []slack.Block{
		&slack.HeaderBlock{
			Type: slack.MBTHeader,
			Text: &slack.TextBlockObject{
				Type: slack.PlainTextType,
				Text: title,
			},
		},
		&slack.ContextBlock{
			Type: slack.MBTContext,
			ContextElements: slack.ContextElements{
				Elements: []slack.MixedElement{
					&slack.TextBlockObject{
						Type: slack.MarkdownType,
						Text: fmt.Sprintf("As of *%s* · KPI threshold %d business days", report.AsOf, report.KPIThresholdDays),
					},
				},
			},
		},
		&slack.DividerBlock{
			Type: slack.MBTDivider,
		},
		&slack.SectionBlock{
			Type: slack.MBTSection,
			Fields: []*slack.TextBlockObject{
				{
					Type: slack.MarkdownType,
					Text: fmt.Sprintf("*Verdict:*\n%s %s", getVerdictEmoji(s.Verdict), s.Verdict),
				},
				{
					Type: slack.MarkdownType,
					Text: fmt.Sprintf("*KPI met:*\n%.1f%%", s.KPIMetPct),
				},
				{
					Type: slack.MarkdownType,
					Text: fmt.Sprintf("*Risk exposure:*\n$%s", formatMoney(s.RiskExposure)),
				},
				{
					Type: slack.MarkdownType,
					Text: fmt.Sprintf("*Avg aging:*\n%.1f days", s.AvgAgingDays),
				},
				{
					Type: slack.MarkdownType,
					Text: fmt.Sprintf("*Items:*\n%d total · %d open · %d breached", s.TotalItems, s.OpenItems, s.BreachedItems),
				},
				{
					Type: slack.MarkdownType,
					Text: "*Systemic root cause:*\n" + orNone(s.SystemicMode),
				},
			},
		},
	}

	if text := velocityText(report.Velocity); text != "" {
		blocks = append(blocks, markdownSection("*Backlog velocity:*\n"+text))
	}

	if text := severityText(report.Breakdown[types.DimensionSeverity], in.Severities); text != "" {
		blocks = append(blocks, markdownSection("*By severity:*\n"+text))
	}

	if n := len(report.Invalid); n > 0 {
		blocks = append(blocks, &slack.ContextBlock{
			Type: slack.MBTContext,
			ContextElements: slack.ContextElements{
				Elements: []slack.MixedElement{
					&slack.TextBlockObject{
						Type: slack.MarkdownType,
						Text: fmt.Sprintf("⚠️ %d record(s) excluded as invalid", n),
					},
				},
			},
		})
	}

	if in.Outlook != "" {
		blocks = append(blocks,
			&slack.DividerBlock{Type: slack.MBTDivider},
			markdownSection("*Outlook:*\n"+in.Outlook),
		)
	}

	return blocks
}

// BuildErrorBlocks builds blocks for error messages
func (b *BlockBuilder) BuildErrorBlocks(errorMessage string) []slack.Block {
	return []slack.Block{
		markdownSection(fmt.Sprintf("❌ Error: %s", errorMessage)),
	}
}

// BuildSummaryText builds the plain-text fallback of the summary message
func (b *BlockBuilder) BuildSummaryText(report *model.Report) string {
	s := report.Summary
	return fmt.Sprintf("Defect governance as of %s: %s, KPI met %.1f%%, %d open, risk exposure $%s",
		report.AsOf, s.Verdict, s.KPIMetPct, s.OpenItems, formatMoney(s.RiskExposure))
}

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
		nil,
		nil,
	)
}

// velocityText lists the most recent periods of the backlog series
func velocityText(series []model.BacklogPoint) string {
	if len(series) == 0 {
		return ""
	}
	start := max(0, len(series)-summaryPeriods)

	var lines []string
	for _, p := range series[start:] {
		lines = append(lines, fmt.Sprintf("`%s` +%d / -%d → backlog *%d*", p.Period, p.Inflow, p.Outflow, p.NetBacklog))
	}
	return strings.Join(lines, "\n")
}

func severityText(items []model.BreakdownItem, severities *model.SeveritiesConfig) string {
	if len(items) == 0 {
		return ""
	}

	var lines []string
	for i, item := range items {
		if i == summaryBreakdowns {
			break
		}
		level := -1
		if severities != nil {
			level = severities.LevelOf(item.Value)
		}
		lines = append(lines, fmt.Sprintf("%s %s: %d (%d breached)", GetSeverityEmoji(level), item.Value, item.Count, item.Breached))
	}
	return strings.Join(lines, "\n")
}

// formatMoney renders an amount with thousands separators and two decimals
func formatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	raw := fmt.Sprintf("%.2f", v)
	intPart, frac := raw[:len(raw)-3], raw[len(raw)-3:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
