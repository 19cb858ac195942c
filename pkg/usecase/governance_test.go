package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/repository"
	"github.com/secmon-lab/vantage/pkg/usecase"
)

var fixedNow = time.Date(2026, 2, 13, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func datePtr(s string) *types.Date {
	d := types.MustParseDate(s)
	return &d
}

func testRecords() []model.DefectRecord {
	return []model.DefectRecord{
		{ID: "D1", DiscoveryDate: types.MustParseDate("2026-02-02"), ClosedDate: datePtr("2026-02-05"),
			Status: "Closed", Severity: "High", AppArea: "Billing", RootCause: "Config", FixCost: 1000},
		{ID: "D2", DiscoveryDate: types.MustParseDate("2026-02-04"),
			Status: "Created", Severity: "Critical", AppArea: "Search", RootCause: "Code", FixCost: 500},
		{ID: "D3", DiscoveryDate: types.MustParseDate("2026-02-09"),
			Status: "Open", Severity: "Low", AppArea: "Billing", RootCause: "Config", FixCost: 250},
		{ID: "D4", Status: "Created"},
		{ID: "D5", DiscoveryDate: types.MustParseDate("2026-02-16"), Status: "Created"},
	}
}

func newGovernance(t *testing.T, cfg *model.GovernanceConfig) *usecase.Governance {
	g, err := usecase.NewGovernance(repository.NewMemory(), cfg, usecase.WithClock(fixedClock))
	gt.NoError(t, err)
	return g
}

func TestGovernance_Analyze(t *testing.T) {
	ctx := context.Background()
	g := newGovernance(t, nil)

	report, err := g.Analyze(ctx, testRecords(), model.Filter{}, types.Date{})
	gt.NoError(t, err)

	t.Run("as-of defaults to today", func(t *testing.T) {
		gt.Equal(t, report.AsOf.String(), "2026-02-13")
		gt.Equal(t, report.GeneratedAt, fixedNow)
	})

	t.Run("rows keep input order with aging and KPI", func(t *testing.T) {
		gt.Equal(t, len(report.Rows), 3)
		gt.Equal(t, report.Rows[0].ID, types.DefectID("D1"))
		gt.Equal(t, report.Rows[0].AgingDays, 3)
		gt.Equal(t, report.Rows[0].KPIStatus, types.KPIMet)
		gt.Equal(t, report.Rows[1].AgingDays, 7)
		gt.Equal(t, report.Rows[1].KPIStatus, types.KPIBreached)
		gt.Equal(t, report.Rows[2].AgingDays, 4)
		gt.True(t, report.Rows[2].Open)
	})

	t.Run("invalid records are reported", func(t *testing.T) {
		gt.Equal(t, len(report.Invalid), 2)
		gt.Equal(t, report.Invalid[0].Index, 3)
		gt.Equal(t, report.Invalid[0].Reason, model.ReasonMissingDiscoveryDate)
		gt.Equal(t, report.Invalid[1].DefectID, types.DefectID("D5"))
		gt.Equal(t, report.Invalid[1].Reason, model.ReasonAsOfBeforeDiscovery)
	})

	t.Run("summary and verdict", func(t *testing.T) {
		s := report.Summary
		gt.Equal(t, s.TotalItems, 3)
		gt.Equal(t, s.OpenItems, 2)
		gt.Equal(t, s.BreachedItems, 1)
		gt.Equal(t, s.KPIMetPct, 66.7)
		gt.Equal(t, s.AvgAgingDays, 4.7)
		gt.Equal(t, s.RiskExposure, 1750.0)
		gt.Equal(t, s.SystemicMode, "Config")
		gt.Equal(t, s.Verdict, types.VerdictHold)
	})

	t.Run("velocity by discovery week", func(t *testing.T) {
		gt.Equal(t, len(report.Velocity), 2)
		gt.Equal(t, report.Velocity[0].Period, "2026-W06")
		gt.Equal(t, report.Velocity[0].Inflow, 1)
		gt.Equal(t, report.Velocity[0].Closed, 1)
		gt.Equal(t, report.Velocity[0].NetBacklog, 0)
		gt.Equal(t, report.Velocity[1].Period, "2026-W07")
		gt.Equal(t, report.Velocity[1].NetBacklog, 1)
	})

	t.Run("breakdown for every dimension", func(t *testing.T) {
		for _, dim := range types.AllDimensions {
			_, ok := report.Breakdown[dim]
			gt.True(t, ok)
		}
		areas := report.Breakdown[types.DimensionAppArea]
		gt.Equal(t, areas[0].Value, "Billing")
		gt.Equal(t, areas[0].Count, 2)
	})

	t.Run("root cause by area", func(t *testing.T) {
		gt.True(t, len(report.RootCauseByArea) > 0)
		for _, item := range report.RootCauseByArea {
			total := 0
			for _, child := range item.Children {
				total += child.Count
			}
			gt.Equal(t, total, item.Count)
		}
	})
}

func TestGovernance_AnalyzeFilter(t *testing.T) {
	ctx := context.Background()
	g := newGovernance(t, nil)

	t.Run("status filter keeps invalid list", func(t *testing.T) {
		report, err := g.Analyze(ctx, testRecords(), model.Filter{Statuses: []string{"created", "open"}}, types.Date{})
		gt.NoError(t, err)
		gt.Equal(t, len(report.Rows), 2)
		gt.Equal(t, len(report.Invalid), 2)
		gt.Equal(t, report.Velocity[0].Period, "2026-W06")
		gt.Equal(t, report.Velocity[0].NetBacklog, 1)
		gt.Equal(t, report.Velocity[1].NetBacklog, 2)
	})

	t.Run("KPI filter", func(t *testing.T) {
		report, err := g.Analyze(ctx, testRecords(), model.Filter{KPIStatuses: []types.KPIStatus{types.KPIBreached}}, types.Date{})
		gt.NoError(t, err)
		gt.Equal(t, len(report.Rows), 1)
		gt.Equal(t, report.Rows[0].ID, types.DefectID("D2"))
		gt.Equal(t, report.Summary.Verdict, types.VerdictHold)
	})

	t.Run("empty selection has no data", func(t *testing.T) {
		report, err := g.Analyze(ctx, testRecords(), model.Filter{DefectIDs: []types.DefectID{"nope"}}, types.Date{})
		gt.NoError(t, err)
		gt.Equal(t, len(report.Rows), 0)
		gt.Equal(t, len(report.Velocity), 0)
		gt.Equal(t, report.Summary.Verdict, types.VerdictNoData)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := g.Analyze(ctx, testRecords(), model.Filter{
			From: types.MustParseDate("2026-02-10"),
			To:   types.MustParseDate("2026-02-01"),
		}, types.Date{})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))
	})
}

func TestGovernance_ConfigEffects(t *testing.T) {
	ctx := context.Background()

	t.Run("holidays reduce aging", func(t *testing.T) {
		cfg := model.DefaultGovernanceConfig()
		cfg.Holidays = []types.Date{types.MustParseDate("2026-02-10")}
		g := newGovernance(t, cfg)

		report, err := g.Analyze(ctx, testRecords(), model.Filter{}, types.Date{})
		gt.NoError(t, err)
		gt.Equal(t, report.Rows[1].AgingDays, 6)
		gt.Equal(t, report.Rows[2].AgingDays, 3)
	})

	t.Run("configured as-of date", func(t *testing.T) {
		cfg := model.DefaultGovernanceConfig()
		cfg.AsOf = types.MustParseDate("2026-02-06")
		g := newGovernance(t, cfg)

		gt.Equal(t, g.ResolveAsOf(types.Date{}).String(), "2026-02-06")
		gt.Equal(t, g.ResolveAsOf(types.MustParseDate("2026-03-01")).String(), "2026-03-01")

		report, err := g.Analyze(ctx, testRecords(), model.Filter{}, types.Date{})
		gt.NoError(t, err)
		// D3 is discovered after the configured as-of date
		gt.Equal(t, len(report.Rows), 2)
		gt.Equal(t, len(report.Invalid), 3)
	})

	t.Run("update config swaps threshold", func(t *testing.T) {
		g := newGovernance(t, nil)

		cfg := g.Config()
		cfg.KPIThresholdDays = 7
		gt.NoError(t, g.UpdateConfig(ctx, cfg))

		report, err := g.Analyze(ctx, testRecords(), model.Filter{}, types.Date{})
		gt.NoError(t, err)
		gt.Equal(t, report.KPIThresholdDays, 7)
		gt.Equal(t, report.Summary.BreachedItems, 0)
		gt.Equal(t, report.Summary.Verdict, types.VerdictGo)
	})

	t.Run("update config rejects invalid configuration", func(t *testing.T) {
		g := newGovernance(t, nil)

		cfg := g.Config()
		cfg.KPIThresholdDays = -3
		gt.Error(t, g.UpdateConfig(ctx, cfg))
		gt.Equal(t, g.Config().KPIThresholdDays, 5)
	})

	t.Run("lifecycle events", func(t *testing.T) {
		cfg := model.DefaultGovernanceConfig()
		cfg.EventSource = types.EventSourceLifecycle
		cfg.FillGaps = false
		g := newGovernance(t, cfg)

		report, err := g.Analyze(ctx, testRecords(), model.Filter{}, types.Date{})
		gt.NoError(t, err)
		gt.Equal(t, len(report.Velocity), 2)
		gt.Equal(t, report.Velocity[0].Inflow, 2)
		gt.Equal(t, report.Velocity[0].Closed, 1)
		gt.Equal(t, report.Velocity[0].NetBacklog, 1)
		gt.Equal(t, report.Velocity[1].NetBacklog, 2)
	})

	t.Run("invalid initial configuration", func(t *testing.T) {
		cfg := model.DefaultGovernanceConfig()
		cfg.Period = "fortnight"
		_, err := usecase.NewGovernance(repository.NewMemory(), cfg)
		gt.Error(t, err)
	})
}

func TestGovernance_Aging(t *testing.T) {
	g := newGovernance(t, nil)
	resp := g.Aging(context.Background(), testRecords(), types.MustParseDate("2026-02-13"))

	gt.Equal(t, resp.AsOf.String(), "2026-02-13")
	gt.Equal(t, len(resp.Results), 3)
	gt.Equal(t, resp.Results[1].Days, 7)
	gt.Equal(t, resp.Results[1].KPIStatus, types.KPIBreached)
	gt.Equal(t, len(resp.Invalid), 2)
}

func TestGovernance_Velocity(t *testing.T) {
	ctx := context.Background()
	g := newGovernance(t, nil)

	t.Run("aggregates events", func(t *testing.T) {
		series, err := g.Velocity(ctx, []model.BacklogEvent{
			{Period: "2026-W07", Type: types.EventOther},
			{Period: "2026-W06", Type: types.EventCreated},
			{Period: "2026-W06", Type: types.EventCreated},
			{Period: "2026-W06", Type: types.EventMoved},
		})
		gt.NoError(t, err)
		gt.Equal(t, len(series), 2)
		gt.Equal(t, series[0].Inflow, 2)
		gt.Equal(t, series[0].NetBacklog, 1)
		gt.Equal(t, series[1].Inflow, 0)
		gt.Equal(t, series[1].NetBacklog, 1)
	})

	t.Run("unknown and capitalized types", func(t *testing.T) {
		series, err := g.Velocity(ctx, []model.BacklogEvent{
			{Period: "2026-W06", Type: "Created"},
			{Period: "2026-W06", Type: "Reopened"},
			{Period: "2026-W07", Type: "Reopened"},
			{Period: "2026-W08", Type: " CLOSED "},
		})
		gt.NoError(t, err)
		gt.Equal(t, len(series), 3)
		gt.Equal(t, series[0].Period, "2026-W06")
		gt.Equal(t, series[0].Inflow, 1)
		gt.Equal(t, series[0].Outflow, 0)
		gt.Equal(t, series[1].Period, "2026-W07")
		gt.Equal(t, series[1].Inflow, 0)
		gt.Equal(t, series[1].Outflow, 0)
		gt.Equal(t, series[1].NetBacklog, 1)
		gt.Equal(t, series[2].Closed, 1)
		gt.Equal(t, series[2].NetBacklog, 0)
	})

	t.Run("rejects empty period", func(t *testing.T) {
		_, err := g.Velocity(ctx, []model.BacklogEvent{{Period: "", Type: types.EventCreated}})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))
	})

	t.Run("empty input", func(t *testing.T) {
		series, err := g.Velocity(ctx, nil)
		gt.NoError(t, err)
		gt.Equal(t, len(series), 0)
	})
}

const importCSV = `Defect_ID,Discovery_Date,Closed_Date,Status,Severity,App_Area,Root_Cause,Fix_Cost
D1,2026-02-02,2026-02-05,Closed,High,Billing,Config,1000
D2,2026-02-04,,Created,Critical,Search,Code,500
D3,bad-date,,Created,Low,Search,Code,100
`

func TestGovernance_Datasets(t *testing.T) {
	ctx := context.Background()
	g := newGovernance(t, nil)

	result, err := g.ImportDataset(ctx, "", "release.csv", strings.NewReader(importCSV))
	gt.NoError(t, err)
	gt.Equal(t, result.Dataset.Name, "release.csv")
	gt.Equal(t, result.Dataset.RecordCount, 2)
	gt.Equal(t, result.Dataset.ImportedAt, fixedNow)
	gt.Equal(t, len(result.RowErrors), 1)
	gt.Equal(t, result.RowErrors[0].Row, 4)

	infos, err := g.ListDatasets(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(infos), 1)

	report, err := g.AnalyzeDataset(ctx, result.Dataset.ID, model.Filter{}, types.Date{})
	gt.NoError(t, err)
	gt.Equal(t, report.DatasetID, result.Dataset.ID)
	gt.Equal(t, report.Summary.TotalItems, 2)

	gt.NoError(t, g.DeleteDataset(ctx, result.Dataset.ID))

	_, err = g.AnalyzeDataset(ctx, result.Dataset.ID, model.Filter{}, types.Date{})
	gt.True(t, errors.Is(err, model.ErrDatasetNotFound))

	t.Run("unsupported file", func(t *testing.T) {
		_, err := g.ImportDataset(ctx, "x", "release.pdf", strings.NewReader("%PDF"))
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))
	})
}
