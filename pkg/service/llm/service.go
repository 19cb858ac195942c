package llm

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// Error tags for categorization
var (
	ErrTagInvalidJSON     = goerr.NewTag("invalid_json")
	ErrTagMissingField    = goerr.NewTag("missing_field")
	ErrTagEmptyResponse   = goerr.NewTag("empty_response")
	ErrTagTemplateFailure = goerr.NewTag("template_failure")
)

// Limits on how much of a report goes into the prompt
const (
	promptPeriods    = 12
	promptBreakdowns = 5
	maxRisks         = 3
)

//go:embed templates/*.md
var templateFS embed.FS

// LLMService handles LLM operations for governance reports
type LLMService struct {
	llmClient gollem.LLMClient
}

// Outlook represents the structured response from LLM for a governance report
type Outlook struct {
	Headline  string   `json:"headline"`
	Narrative string   `json:"narrative"`
	Risks     []string `json:"risks"`
}

// Markdown renders the outlook for a Slack mrkdwn section
func (o *Outlook) Markdown() string {
	var b strings.Builder
	b.WriteString("*" + o.Headline + "*\n" + o.Narrative)
	for _, r := range o.Risks {
		b.WriteString("\n• " + r)
	}
	return b.String()
}

type dimensionData struct {
	Name  string
	Items []model.BreakdownItem
}

type outlookTemplateData struct {
	Title            string
	AsOf             types.Date
	KPIThresholdDays int
	Summary          model.Summary
	Velocity         []model.BacklogPoint
	Dimensions       []dimensionData
}

// NewLLMService creates a new LLMService instance
func NewLLMService(llmClient gollem.LLMClient) *LLMService {
	return &LLMService{
		llmClient: llmClient,
	}
}

// GenerateOutlook asks the LLM for an executive outlook on a report
func (s *LLMService) GenerateOutlook(ctx context.Context, title string, report *model.Report) (*Outlook, error) {
	if report == nil {
		return nil, goerr.New("report is nil")
	}

	prompt, err := renderOutlookTemplate(buildTemplateData(title, report))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to render outlook template",
			goerr.T(ErrTagTemplateFailure))
	}

	// Create session with JSON content type
	session, err := s.llmClient.NewSession(ctx, gollem.WithSessionContentType(gollem.ContentTypeJSON))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	response, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate LLM response")
	}

	if len(response.Texts) == 0 || response.Texts[0] == "" {
		return nil, goerr.New("empty response from LLM",
			goerr.T(ErrTagEmptyResponse))
	}

	var outlook Outlook
	if err := json.Unmarshal([]byte(response.Texts[0]), &outlook); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response as JSON",
			goerr.V("response", response.Texts[0]),
			goerr.T(ErrTagInvalidJSON))
	}

	if outlook.Headline == "" {
		return nil, goerr.New("LLM response missing headline",
			goerr.T(ErrTagMissingField),
			goerr.V("field", "headline"))
	}
	if outlook.Narrative == "" {
		return nil, goerr.New("LLM response missing narrative",
			goerr.T(ErrTagMissingField),
			goerr.V("field", "narrative"))
	}
	if len(outlook.Risks) > maxRisks {
		outlook.Risks = outlook.Risks[:maxRisks]
	}

	return &outlook, nil
}

func buildTemplateData(title string, report *model.Report) outlookTemplateData {
	data := outlookTemplateData{
		Title:            title,
		AsOf:             report.AsOf,
		KPIThresholdDays: report.KPIThresholdDays,
		Summary:          report.Summary,
		Velocity:         report.Velocity,
	}
	if data.Title == "" {
		data.Title = "Defect governance"
	}
	if len(data.Velocity) > promptPeriods {
		data.Velocity = data.Velocity[len(data.Velocity)-promptPeriods:]
	}

	for _, dim := range types.AllDimensions {
		items := report.Breakdown[dim]
		if len(items) == 0 {
			continue
		}
		if len(items) > promptBreakdowns {
			items = items[:promptBreakdowns]
		}
		data.Dimensions = append(data.Dimensions, dimensionData{Name: string(dim), Items: items})
	}
	return data
}

func renderOutlookTemplate(data outlookTemplateData) (string, error) {
	templateContent, err := templateFS.ReadFile("templates/outlook.md")
	if err != nil {
		return "", goerr.Wrap(err, "failed to read outlook template")
	}

	tmpl, err := template.New("outlook").Parse(string(templateContent))
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse outlook template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute outlook template")
	}

	return buf.String(), nil
}
