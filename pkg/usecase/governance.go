package usecase

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/engine"
	"github.com/secmon-lab/vantage/pkg/service/importer"
)

// GovernanceOption is a functional option for configuring Governance
type GovernanceOption func(*Governance)

// WithClock sets the clock used to resolve "today" when no as-of date is given or configured
func WithClock(now func() time.Time) GovernanceOption {
	return func(g *Governance) {
		g.now = now
	}
}

// Governance ages, classifies and aggregates defect records against the governance configuration
type Governance struct {
	repo   interfaces.Repository
	config atomic.Pointer[model.GovernanceConfig]
	now    func() time.Time
}

// NewGovernance creates a new Governance use case. A nil config means the defaults.
func NewGovernance(repo interfaces.Repository, cfg *model.GovernanceConfig, opts ...GovernanceOption) (*Governance, error) {
	if cfg == nil {
		cfg = model.DefaultGovernanceConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid governance configuration")
	}

	g := &Governance{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.config.Store(cfg.Clone())

	return g, nil
}

// Config returns a copy of the current governance configuration
func (g *Governance) Config() *model.GovernanceConfig {
	return g.config.Load().Clone()
}

// UpdateConfig replaces the governance configuration. Analyses already running keep the
// configuration they started with.
func (g *Governance) UpdateConfig(ctx context.Context, cfg *model.GovernanceConfig) error {
	if cfg == nil {
		return goerr.New("governance configuration is nil")
	}
	if err := cfg.Validate(); err != nil {
		return goerr.Wrap(err, "invalid governance configuration")
	}

	g.config.Store(cfg.Clone())
	ctxlog.From(ctx).Info("governance configuration updated",
		"kpi_threshold_days", cfg.KPIThresholdDays,
		"holidays", len(cfg.Holidays),
		"period", cfg.Period,
		"event_source", cfg.EventSource,
	)
	return nil
}

// ResolveAsOf picks the as-of date: the explicit argument, then the configured date, then today
func (g *Governance) ResolveAsOf(asOf types.Date) types.Date {
	return resolveAsOf(g.config.Load(), asOf, g.now)
}

func resolveAsOf(cfg *model.GovernanceConfig, asOf types.Date, now func() time.Time) types.Date {
	if !asOf.IsZero() {
		return asOf
	}
	if !cfg.AsOf.IsZero() {
		return cfg.AsOf
	}
	return types.DateOf(now())
}

// ImportResult is the outcome of importing a spreadsheet
type ImportResult struct {
	Dataset   model.DatasetInfo   `json:"dataset"`
	RowErrors []importer.RowError `json:"rowErrors,omitempty"`
}

// ImportDataset parses a spreadsheet and stores its records as a new dataset
func (g *Governance) ImportDataset(ctx context.Context, name, filename string, r io.Reader) (*ImportResult, error) {
	parsed, err := importer.Parse(ctx, filename, r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to import spreadsheet", goerr.T(model.ErrTagInvalidInput))
	}

	dataset, err := model.NewDataset(name, filename, parsed.Records, g.now())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create dataset", goerr.T(model.ErrTagInvalidInput))
	}

	if err := g.repo.PutDataset(ctx, dataset); err != nil {
		return nil, goerr.Wrap(err, "failed to save dataset")
	}

	ctxlog.From(ctx).Info("dataset imported",
		"id", dataset.ID,
		"name", dataset.Name,
		"records", len(dataset.Records),
		"rowErrors", len(parsed.RowErrors),
	)

	return &ImportResult{
		Dataset:   dataset.Info(),
		RowErrors: parsed.RowErrors,
	}, nil
}

// GetDataset returns a stored dataset
func (g *Governance) GetDataset(ctx context.Context, id types.DatasetID) (*model.Dataset, error) {
	dataset, err := g.repo.GetDataset(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get dataset", goerr.V("id", id))
	}
	return dataset, nil
}

// ListDatasets lists stored datasets
func (g *Governance) ListDatasets(ctx context.Context) ([]*model.DatasetInfo, error) {
	infos, err := g.repo.ListDatasets(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list datasets")
	}
	return infos, nil
}

// DeleteDataset deletes a stored dataset
func (g *Governance) DeleteDataset(ctx context.Context, id types.DatasetID) error {
	if err := g.repo.DeleteDataset(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete dataset", goerr.V("id", id))
	}
	ctxlog.From(ctx).Info("dataset deleted", "id", id)
	return nil
}

// AgingResponse is the aging of inline records
type AgingResponse struct {
	AsOf    types.Date            `json:"asOf"`
	Results []AgingRow            `json:"results"`
	Invalid []model.InvalidRecord `json:"invalid"`
}

// AgingRow is the aging and KPI status of one valid record
type AgingRow struct {
	model.AgingResult
	KPIStatus types.KPIStatus `json:"kpiStatus"`
}

// Aging computes business-day aging and KPI status of records without filtering or aggregation
func (g *Governance) Aging(ctx context.Context, records []model.DefectRecord, asOf types.Date) *AgingResponse {
	cfg := g.config.Load()
	asOf = resolveAsOf(cfg, asOf, g.now)

	resp := &AgingResponse{
		AsOf:    asOf,
		Results: []AgingRow{},
		Invalid: []model.InvalidRecord{},
	}
	for _, r := range engine.ComputeAging(records, asOf, cfg.HolidaySet()) {
		if !r.Valid() {
			resp.Invalid = append(resp.Invalid, model.NewInvalidRecord(r))
			continue
		}
		resp.Results = append(resp.Results, AgingRow{
			AgingResult: r,
			KPIStatus:   engine.Classify(r.Days, cfg.KPIThresholdDays),
		})
	}

	ctxlog.From(ctx).Debug("aging computed",
		"records", len(records),
		"invalid", len(resp.Invalid),
		"as_of", asOf.String(),
	)
	return resp
}

// Velocity aggregates pre-tagged backlog events with the configured outflow rule.
// Event types are matched ignoring case; unknown types count as "other".
func (g *Governance) Velocity(ctx context.Context, events []model.BacklogEvent) ([]model.BacklogPoint, error) {
	cfg := g.config.Load()
	for i, ev := range events {
		if ev.Period == "" {
			return nil, goerr.New("event period is empty",
				goerr.T(model.ErrTagInvalidInput),
				goerr.V("index", i))
		}
	}

	series, err := engine.AggregateBacklog(events, engine.BacklogOptions{MovedIsOutflow: cfg.MovedIsOutflow})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to aggregate backlog")
	}
	return series, nil
}

// Analyze builds a full report over records: aging, KPI status, filtering, summary, verdict,
// velocity and breakdowns. Invalid records are listed regardless of the filter.
func (g *Governance) Analyze(ctx context.Context, records []model.DefectRecord, filter model.Filter, asOf types.Date) (*model.Report, error) {
	if err := filter.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid filter", goerr.T(model.ErrTagInvalidInput))
	}

	cfg := g.config.Load()
	asOf = resolveAsOf(cfg, asOf, g.now)

	report := &model.Report{
		AsOf:             asOf,
		KPIThresholdDays: cfg.KPIThresholdDays,
		Period:           cfg.Period,
		GeneratedAt:      g.now(),
		Rows:             []model.ReportRow{},
		Invalid:          []model.InvalidRecord{},
		Breakdown:        make(map[types.Dimension][]model.BreakdownItem),
	}

	matched := make([]model.DefectRecord, 0, len(records))
	for _, r := range engine.ComputeAging(records, asOf, cfg.HolidaySet()) {
		if !r.Valid() {
			report.Invalid = append(report.Invalid, model.NewInvalidRecord(r))
			continue
		}

		record := records[r.Index]
		kpi := engine.Classify(r.Days, cfg.KPIThresholdDays)
		if !filter.Match(&record, kpi) {
			continue
		}

		report.Rows = append(report.Rows, model.ReportRow{
			DefectRecord: record,
			AgingDays:    r.Days,
			KPIStatus:    kpi,
			Open:         r.Open,
		})
		matched = append(matched, record)
	}

	report.Summary = engine.Summarize(report.Rows)
	report.Summary.Verdict = engine.DecideVerdict(report.Summary, cfg.VerdictKPITarget)

	opts := engine.BacklogOptions{MovedIsOutflow: cfg.MovedIsOutflow}
	if cfg.FillGaps {
		opts.FillGaps = cfg.Period
	}
	events := engine.DeriveEvents(matched, cfg.EventSource, cfg.Period, cfg.Events)
	velocity, err := engine.AggregateBacklog(events, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to aggregate backlog")
	}
	report.Velocity = velocity

	for _, dim := range types.AllDimensions {
		items := engine.Breakdown(report.Rows, dim)
		if dim == types.DimensionSeverity {
			engine.SortBySeverityLevel(items, cfg.GetSeveritiesConfig())
		}
		report.Breakdown[dim] = items
	}
	report.RootCauseByArea = engine.NestedBreakdown(report.Rows, types.DimensionRootCause, types.DimensionAppArea)

	ctxlog.From(ctx).Debug("report generated",
		"records", len(records),
		"rows", len(report.Rows),
		"invalid", len(report.Invalid),
		"as_of", asOf.String(),
		"verdict", report.Summary.Verdict,
	)

	return report, nil
}

// AnalyzeDataset builds a report over a stored dataset
func (g *Governance) AnalyzeDataset(ctx context.Context, id types.DatasetID, filter model.Filter, asOf types.Date) (*model.Report, error) {
	dataset, err := g.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	report, err := g.Analyze(ctx, dataset.Records, filter, asOf)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze dataset", goerr.V("id", id))
	}
	report.DatasetID = dataset.ID
	return report, nil
}
