package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/cli/config"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/repository"
	"github.com/secmon-lab/vantage/pkg/service/llm"
	"github.com/secmon-lab/vantage/pkg/usecase"
	"github.com/urfave/cli/v3"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// reportOptions holds flags of the report command
type reportOptions struct {
	Format       string
	Name         string
	Title        string
	AsOf         string
	From         string
	To           string
	Statuses     []string
	Severities   []string
	KPIStatuses  []string
	DefectIDs    []string
	SlackChannel string
}

func (o *reportOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (json, text)",
			Value:       formatJSON,
			Destination: &o.Format,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "Dataset name (defaults to the file name)",
			Destination: &o.Name,
		},
		&cli.StringFlag{
			Name:        "title",
			Usage:       "Title of the Slack summary (defaults to the dataset name)",
			Destination: &o.Title,
		},
		&cli.StringFlag{
			Name:        "as-of",
			Usage:       "As-of date (YYYY-MM-DD) for open defects, overrides the configuration",
			Category:    "Filter",
			Destination: &o.AsOf,
		},
		&cli.StringFlag{
			Name:        "from",
			Usage:       "Earliest discovery date (YYYY-MM-DD, inclusive)",
			Category:    "Filter",
			Destination: &o.From,
		},
		&cli.StringFlag{
			Name:        "to",
			Usage:       "Latest discovery date (YYYY-MM-DD, inclusive)",
			Category:    "Filter",
			Destination: &o.To,
		},
		&cli.StringSliceFlag{
			Name:        "status",
			Usage:       "Status labels to include",
			Category:    "Filter",
			Destination: &o.Statuses,
		},
		&cli.StringSliceFlag{
			Name:        "severity",
			Usage:       "Severity labels to include",
			Category:    "Filter",
			Destination: &o.Severities,
		},
		&cli.StringSliceFlag{
			Name:        "kpi",
			Usage:       "KPI statuses to include (Met, Breached)",
			Category:    "Filter",
			Destination: &o.KPIStatuses,
		},
		&cli.StringSliceFlag{
			Name:        "id",
			Usage:       "Defect IDs to include",
			Category:    "Filter",
			Destination: &o.DefectIDs,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Post the summary to this Slack channel ID",
			Category:    "Slack",
			Sources:     cli.EnvVars("VANTAGE_SLACK_CHANNEL"),
			Destination: &o.SlackChannel,
		},
	}
}

// filter builds the report filter and as-of date from the flags
func (o *reportOptions) filter() (model.Filter, types.Date, error) {
	var filter model.Filter
	var err error

	if filter.From, err = types.ParseDate(o.From); err != nil {
		return model.Filter{}, types.Date{}, goerr.Wrap(err, "invalid --from")
	}
	if filter.To, err = types.ParseDate(o.To); err != nil {
		return model.Filter{}, types.Date{}, goerr.Wrap(err, "invalid --to")
	}
	asOf, err := types.ParseDate(o.AsOf)
	if err != nil {
		return model.Filter{}, types.Date{}, goerr.Wrap(err, "invalid --as-of")
	}

	filter.Statuses = o.Statuses
	filter.Severities = o.Severities
	for _, v := range o.KPIStatuses {
		filter.KPIStatuses = append(filter.KPIStatuses, types.ParseKPIStatus(v))
	}
	for _, v := range o.DefectIDs {
		filter.DefectIDs = append(filter.DefectIDs, types.DefectID(v))
	}

	if err := filter.Validate(); err != nil {
		return model.Filter{}, types.Date{}, err
	}
	return filter, asOf, nil
}

func cmdReport(governanceCfg *config.Governance) *cli.Command {
	var (
		opts      reportOptions
		slackCfg  config.Slack
		geminiCfg config.Gemini
	)

	return &cli.Command{
		Name:      "report",
		Usage:     "Analyze a spreadsheet (XLSX or CSV) and print the governance report",
		ArgsUsage: "<file>",
		Flags:     joinFlags(opts.Flags(), slackCfg.Flags(), geminiCfg.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			path := c.Args().First()
			if path == "" {
				return goerr.New("input file is required")
			}
			if opts.Format != formatJSON && opts.Format != formatText {
				return goerr.New("invalid output format", goerr.V("format", opts.Format))
			}

			filter, asOf, err := opts.filter()
			if err != nil {
				return err
			}

			govConfig, err := governanceCfg.Configure()
			if err != nil {
				return err
			}
			governance, err := usecase.NewGovernance(repository.NewMemory(), govConfig)
			if err != nil {
				return err
			}

			report, name, err := analyzeFile(ctx, governance, path, opts.Name, filter, asOf)
			if err != nil {
				return err
			}

			if err := writeReport(c.Root().Writer, report, opts.Format); err != nil {
				return err
			}

			if opts.SlackChannel == "" {
				return nil
			}

			var notifyOpts []usecase.NotifyOption
			if llmClient := geminiCfg.ConfigureOptional(ctx, logger); llmClient != nil {
				notifyOpts = append(notifyOpts, usecase.WithOutlook(llm.NewLLMService(llmClient)))
			}
			notify := usecase.NewNotify(governance, slackCfg.Configure(logger), notifyOpts...)

			title := opts.Title
			if title == "" {
				title = name
			}
			return notify.NotifyReport(ctx, types.ChannelID(opts.SlackChannel), title, report)
		},
	}
}

// analyzeFile imports a spreadsheet into governance and analyzes it. Row errors are logged.
func analyzeFile(ctx context.Context, governance *usecase.Governance, path, name string, filter model.Filter, asOf types.Date) (*model.Report, string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to open input file", goerr.V("path", path))
	}
	defer f.Close()

	imported, err := governance.ImportDataset(ctx, name, filepath.Base(path), f)
	if err != nil {
		return nil, "", err
	}

	logger := ctxlog.From(ctx)
	for _, rowErr := range imported.RowErrors {
		logger.Warn("Row skipped",
			"row", rowErr.Row,
			"column", rowErr.Column,
			"value", rowErr.Value,
			"message", rowErr.Message,
		)
	}

	report, err := governance.AnalyzeDataset(ctx, imported.Dataset.ID, filter, asOf)
	if err != nil {
		return nil, "", err
	}
	return report, imported.Dataset.Name, nil
}

// writeReport renders a report in the given format
func writeReport(w io.Writer, report *model.Report, format string) error {
	switch format {
	case formatText:
		return writeReportText(w, report)
	default:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return goerr.Wrap(err, "failed to encode report")
		}
		return nil
	}
}

func writeReportText(w io.Writer, report *model.Report) error {
	s := report.Summary
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Defect governance report as of %s (KPI: %d business days)\n", report.AsOf, report.KPIThresholdDays)
	fmt.Fprintf(tw, "Verdict:\t%s\n", s.Verdict)
	fmt.Fprintf(tw, "Items:\t%d (open %d, breached %d)\n", s.TotalItems, s.OpenItems, s.BreachedItems)
	fmt.Fprintf(tw, "KPI met:\t%.1f%%\n", s.KPIMetPct)
	fmt.Fprintf(tw, "Average aging:\t%.1f business days\n", s.AvgAgingDays)
	fmt.Fprintf(tw, "Risk exposure:\t%.2f\n", s.RiskExposure)
	fmt.Fprintf(tw, "Systemic mode:\t%s\n", orDash(s.SystemicMode))

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ID\tDISCOVERED\tCLOSED\tSTATUS\tSEVERITY\tAGING\tKPI")
	for _, row := range report.Rows {
		closed := "-"
		if !row.IsOpen() {
			closed = row.ClosedDate.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			row.ID, row.DiscoveryDate, closed, orDash(row.Status), orDash(row.Severity), row.AgingDays, row.KPIStatus)
	}

	if len(report.Velocity) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "VELOCITY (%s)\tINFLOW\tCLOSED\tMOVED\tNET BACKLOG\n", report.Period)
		for _, p := range report.Velocity {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", p.Period, p.Inflow, p.Closed, p.Moved, p.NetBacklog)
		}
	}

	if len(report.Invalid) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "INVALID\tID\tREASON")
		for _, inv := range report.Invalid {
			fmt.Fprintf(tw, "#%d\t%s\t%s\n", inv.Index+1, orDash(inv.DefectID.String()), inv.Reason)
		}
	}

	if err := tw.Flush(); err != nil {
		return goerr.Wrap(err, "failed to write report")
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
