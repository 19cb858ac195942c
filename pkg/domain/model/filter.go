package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// Filter selects report rows. Empty fields match everything.
type Filter struct {
	From        types.Date        `json:"from"` // inclusive, on discovery date
	To          types.Date        `json:"to"`   // inclusive, on discovery date
	Statuses    []string          `json:"statuses,omitempty"`
	Severities  []string          `json:"severities,omitempty"`
	KPIStatuses []types.KPIStatus `json:"kpiStatuses,omitempty"`
	DefectIDs   []types.DefectID  `json:"defectIds,omitempty"`
}

// Validate validates the filter
func (f *Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return goerr.New("filter end date is before start date",
			goerr.T(ErrTagInvalidInput),
			goerr.V("from", f.From.String()),
			goerr.V("to", f.To.String()))
	}
	for _, s := range f.KPIStatuses {
		if !s.IsValid() {
			return goerr.New("invalid KPI status in filter",
				goerr.T(ErrTagInvalidInput),
				goerr.V("kpi_status", s))
		}
	}
	return nil
}

// Match reports whether a record with the given KPI status passes the filter
func (f *Filter) Match(r *DefectRecord, kpi types.KPIStatus) bool {
	if !f.From.IsZero() && r.DiscoveryDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.DiscoveryDate.After(f.To) {
		return false
	}
	if len(f.Statuses) > 0 && !containsFold(f.Statuses, r.Status) {
		return false
	}
	if len(f.Severities) > 0 && !containsFold(f.Severities, r.Severity) {
		return false
	}
	if len(f.KPIStatuses) > 0 && !containsKPI(f.KPIStatuses, kpi) {
		return false
	}
	if len(f.DefectIDs) > 0 && !containsID(f.DefectIDs, r.ID) {
		return false
	}
	return true
}

func containsFold(values []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, s := range values {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}

func containsKPI(values []types.KPIStatus, v types.KPIStatus) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func containsID(values []types.DefectID, v types.DefectID) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
