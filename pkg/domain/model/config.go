package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// GovernanceConfig holds the reporting-period settings used to age and aggregate defects
type GovernanceConfig struct {
	Holidays         []types.Date      `yaml:"holidays" json:"holidays"`
	KPIThresholdDays int               `yaml:"kpi_threshold_days" json:"kpiThresholdDays"`
	AsOf             types.Date        `yaml:"as_of,omitempty" json:"asOf"` // zero means "today" at analysis time
	Period           types.Granularity `yaml:"period" json:"period"`
	FillGaps         bool              `yaml:"fill_gaps" json:"fillGaps"`
	EventSource      types.EventSource `yaml:"event_source" json:"eventSource"`
	Events           EventLabels       `yaml:"events" json:"events"`
	MovedIsOutflow   bool              `yaml:"moved_is_outflow" json:"movedIsOutflow"`
	VerdictKPITarget float64           `yaml:"verdict_kpi_target" json:"verdictKpiTarget"` // percent
	Severities       []Severity        `yaml:"severities,omitempty" json:"severities,omitempty"`
}

// DefaultGovernanceConfig returns the configuration used when no file is given
func DefaultGovernanceConfig() *GovernanceConfig {
	return &GovernanceConfig{
		KPIThresholdDays: 5,
		Period:           types.GranularityWeek,
		FillGaps:         true,
		EventSource:      types.EventSourceStatus,
		Events:           DefaultEventLabels(),
		MovedIsOutflow:   true,
		VerdictKPITarget: 80,
	}
}

// Validate validates the governance configuration
func (c *GovernanceConfig) Validate() error {
	if c.KPIThresholdDays < 0 {
		return goerr.New("KPI threshold must not be negative",
			goerr.T(ErrTagInvalidConfig),
			goerr.V("kpi_threshold_days", c.KPIThresholdDays))
	}
	if !c.Period.IsValid() {
		return goerr.New("invalid period granularity",
			goerr.T(ErrTagInvalidConfig),
			goerr.V("period", c.Period))
	}
	if !c.EventSource.IsValid() {
		return goerr.New("invalid event source",
			goerr.T(ErrTagInvalidConfig),
			goerr.V("event_source", c.EventSource))
	}
	if c.VerdictKPITarget < 0 || c.VerdictKPITarget > 100 {
		return goerr.New("verdict KPI target must be between 0 and 100",
			goerr.T(ErrTagInvalidConfig),
			goerr.V("verdict_kpi_target", c.VerdictKPITarget))
	}

	seen := make(map[string]types.EventType)
	groups := []struct {
		event  types.EventType
		labels []string
	}{
		{types.EventCreated, c.Events.Created},
		{types.EventClosed, c.Events.Closed},
		{types.EventMoved, c.Events.Moved},
	}
	for _, g := range groups {
		for _, label := range g.labels {
			key := strings.ToLower(strings.TrimSpace(label))
			if key == "" {
				return goerr.New("empty event label",
					goerr.T(ErrTagInvalidConfig),
					goerr.V("event", g.event))
			}
			if prev, ok := seen[key]; ok && prev != g.event {
				return goerr.New("event label mapped to more than one event type",
					goerr.T(ErrTagInvalidConfig),
					goerr.V("label", label),
					goerr.V("first", prev),
					goerr.V("second", g.event))
			}
			seen[key] = g.event
		}
	}

	sevConfig := &SeveritiesConfig{Severities: c.Severities}
	if err := sevConfig.Validate(); err != nil {
		return goerr.Wrap(err, "invalid severities", goerr.T(ErrTagInvalidConfig))
	}

	return nil
}

// HolidaySet returns the configured holidays as a HolidaySet
func (c *GovernanceConfig) HolidaySet() HolidaySet {
	return NewHolidaySet(c.Holidays...)
}

// GetSeveritiesConfig returns SeveritiesConfig
func (c *GovernanceConfig) GetSeveritiesConfig() *SeveritiesConfig {
	return &SeveritiesConfig{Severities: c.Severities}
}

// Clone returns a deep copy so callers can modify it without affecting shared configuration
func (c *GovernanceConfig) Clone() *GovernanceConfig {
	out := *c
	out.Holidays = append([]types.Date(nil), c.Holidays...)
	out.Events = EventLabels{
		Created: append([]string(nil), c.Events.Created...),
		Closed:  append([]string(nil), c.Events.Closed...),
		Moved:   append([]string(nil), c.Events.Moved...),
	}
	out.Severities = append([]Severity(nil), c.Severities...)
	return &out
}
