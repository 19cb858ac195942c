package model

import (
	"time"

	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// ReportRow is a valid defect record with its derived aging and KPI status
type ReportRow struct {
	DefectRecord
	AgingDays int             `json:"agingDays"`
	KPIStatus types.KPIStatus `json:"kpiStatus"`
	Open      bool            `json:"open"`
}

// Summary holds the headline governance metrics of a report
type Summary struct {
	TotalItems    int           `json:"totalItems"`
	OpenItems     int           `json:"openItems"`
	BreachedItems int           `json:"breachedItems"`
	RiskExposure  float64       `json:"riskExposure"` // sum of fix cost
	KPIMetPct     float64       `json:"kpiMetPct"`
	AvgAgingDays  float64       `json:"avgAgingDays"`
	SystemicMode  string        `json:"systemicMode"` // most frequent root cause
	Verdict       types.Verdict `json:"verdict"`
}

// BreakdownItem aggregates rows sharing one value of a dimension
type BreakdownItem struct {
	Value        string  `json:"value"`
	Count        int     `json:"count"`
	Breached     int     `json:"breached"`
	FixCost      float64 `json:"fixCost"`
	AvgAgingDays float64 `json:"avgAgingDays"`

	Children []BreakdownItem `json:"children,omitempty"`
}

// Report is the full result of analyzing a set of defect records
type Report struct {
	DatasetID        types.DatasetID                     `json:"datasetId,omitempty"`
	AsOf             types.Date                          `json:"asOf"`
	KPIThresholdDays int                                 `json:"kpiThresholdDays"`
	Period           types.Granularity                   `json:"period"`
	GeneratedAt      time.Time                           `json:"generatedAt"`
	Rows             []ReportRow                         `json:"rows"`
	Invalid          []InvalidRecord                     `json:"invalid"`
	Summary          Summary                             `json:"summary"`
	Velocity         []BacklogPoint                      `json:"velocity"`
	Breakdown        map[types.Dimension][]BreakdownItem `json:"breakdown"`
	RootCauseByArea  []BreakdownItem                     `json:"rootCauseByArea"`
}
