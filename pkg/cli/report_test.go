package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/repository"
	"github.com/secmon-lab/vantage/pkg/usecase"
)

const reportCSV = `Defect_ID,Discovery_Date,Closed_Date,Status,Severity,App_Area,Root_Cause,Fix_Cost
D1,2026-02-02,2026-02-05,Closed,High,Billing,Config,"$1,000"
D2,2026-02-04,,Created,Critical,Search,Code,500
D3,2026-02-20,,Created,Low,Search,Code,100
D4,not-a-date,,Created,Low,Search,Code,100
`

func writeCSV(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "release.csv")
	gt.NoError(t, os.WriteFile(path, []byte(reportCSV), 0o600))
	return path
}

func TestReportOptions_Filter(t *testing.T) {
	t.Run("all filters", func(t *testing.T) {
		opts := reportOptions{
			AsOf:        "2026-02-13",
			From:        "2026-02-01",
			To:          "2026-02-28",
			Statuses:    []string{"Created"},
			Severities:  []string{"Critical"},
			KPIStatuses: []string{"breached"},
			DefectIDs:   []string{"D2"},
		}
		filter, asOf, err := opts.filter()
		gt.NoError(t, err)
		gt.Equal(t, asOf.String(), "2026-02-13")
		gt.Equal(t, filter.From.String(), "2026-02-01")
		gt.Equal(t, filter.To.String(), "2026-02-28")
		gt.Equal(t, filter.KPIStatuses, []types.KPIStatus{types.KPIBreached})
		gt.Equal(t, filter.DefectIDs, []types.DefectID{"D2"})
	})

	t.Run("empty flags", func(t *testing.T) {
		var opts reportOptions
		filter, asOf, err := opts.filter()
		gt.NoError(t, err)
		gt.True(t, asOf.IsZero())
		gt.True(t, filter.From.IsZero())
	})

	testCases := []struct {
		name string
		opts reportOptions
	}{
		{"invalid as-of", reportOptions{AsOf: "13/02/2026"}},
		{"invalid from", reportOptions{From: "yesterday"}},
		{"inverted range", reportOptions{From: "2026-03-01", To: "2026-02-01"}},
		{"unknown KPI status", reportOptions{KPIStatuses: []string{"late"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tc.opts.filter()
			gt.Error(t, err)
		})
	}
}

func newReport(t *testing.T, filter model.Filter) *model.Report {
	ctx := context.Background()
	governance, err := usecase.NewGovernance(repository.NewMemory(), nil)
	gt.NoError(t, err)

	report, name, err := analyzeFile(ctx, governance, writeCSV(t), "", filter, types.MustParseDate("2026-02-13"))
	gt.NoError(t, err)
	gt.Equal(t, name, "release.csv")
	return report
}

func TestAnalyzeFile(t *testing.T) {
	report := newReport(t, model.Filter{})
	gt.Equal(t, report.AsOf.String(), "2026-02-13")
	gt.Equal(t, len(report.Rows), 2)
	gt.Equal(t, report.Rows[0].FixCost, 1000.0)
	gt.Equal(t, len(report.Invalid), 1)
	gt.Equal(t, report.Invalid[0].DefectID, types.DefectID("D3"))
	gt.Equal(t, report.Invalid[0].Reason, model.ReasonAsOfBeforeDiscovery)

	t.Run("filter applies", func(t *testing.T) {
		report := newReport(t, model.Filter{KPIStatuses: []types.KPIStatus{types.KPIMet}})
		gt.Equal(t, len(report.Rows), 1)
		gt.Equal(t, report.Rows[0].ID, types.DefectID("D1"))
	})

	t.Run("missing file", func(t *testing.T) {
		governance, err := usecase.NewGovernance(repository.NewMemory(), nil)
		gt.NoError(t, err)
		_, _, err = analyzeFile(context.Background(), governance, filepath.Join(t.TempDir(), "none.csv"), "", model.Filter{}, types.Date{})
		gt.Error(t, err)
	})
}

func TestWriteReport(t *testing.T) {
	report := newReport(t, model.Filter{})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		gt.NoError(t, writeReport(&buf, report, formatJSON))

		var decoded model.Report
		gt.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		gt.Equal(t, len(decoded.Rows), 2)
		gt.Equal(t, decoded.Summary.Verdict, report.Summary.Verdict)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		gt.NoError(t, writeReport(&buf, report, formatText))

		out := buf.String()
		gt.S(t, out).Contains("as of 2026-02-13")
		gt.S(t, out).Contains("Verdict:")
		gt.S(t, out).Contains("HOLD")
		gt.S(t, out).Contains("KPI met:")
		gt.S(t, out).Contains("50.0%")
		gt.S(t, out).Contains("D2")
		gt.S(t, out).Contains("VELOCITY (week)")
		gt.S(t, out).Contains("as_of_before_discovery")
	})
}
