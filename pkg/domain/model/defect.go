package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// DefectRecord is one row of defect data
type DefectRecord struct {
	ID            types.DefectID `json:"id"`
	DiscoveryDate types.Date     `json:"discoveryDate"`
	ClosedDate    *types.Date    `json:"closedDate,omitempty"` // nil while the defect is open
	Status        string         `json:"status,omitempty"`
	Severity      string         `json:"severity,omitempty"`
	AppArea       string         `json:"appArea,omitempty"`
	RootCause     string         `json:"rootCause,omitempty"`
	FixCost       float64        `json:"fixCost,omitempty"`
}

// IsOpen reports whether the defect has no closed date
func (r *DefectRecord) IsOpen() bool {
	return r.ClosedDate == nil || r.ClosedDate.IsZero()
}

// EndDate returns the closed date, or asOf for open defects
func (r *DefectRecord) EndDate(asOf types.Date) types.Date {
	if r.IsOpen() {
		return asOf
	}
	return *r.ClosedDate
}

// Validate checks the record's own invariants. It does not know the as-of date;
// see ValidateAt for the full aging precondition.
func (r *DefectRecord) Validate() error {
	if r.DiscoveryDate.IsZero() {
		return goerr.New("discovery date is required",
			goerr.T(ErrTagInvalidRecord),
			goerr.T(ErrTagMissingDiscoveryDate),
			goerr.V("defect_id", r.ID))
	}
	if !r.IsOpen() && r.ClosedDate.Before(r.DiscoveryDate) {
		return goerr.New("closed date is before discovery date",
			goerr.T(ErrTagInvalidRecord),
			goerr.T(ErrTagClosedBeforeDiscovery),
			goerr.V("defect_id", r.ID),
			goerr.V("discovery_date", r.DiscoveryDate.String()),
			goerr.V("closed_date", r.ClosedDate.String()))
	}
	return nil
}

// ValidateAt checks that the record can be aged as of the given date. A record discovered
// after the as-of date is rejected whether or not it is closed.
func (r *DefectRecord) ValidateAt(asOf types.Date) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if asOf.Before(r.DiscoveryDate) {
		return goerr.New("as-of date is before discovery date",
			goerr.T(ErrTagInvalidRecord),
			goerr.T(ErrTagAsOfBeforeDiscovery),
			goerr.V("defect_id", r.ID),
			goerr.V("discovery_date", r.DiscoveryDate.String()),
			goerr.V("as_of", asOf.String()))
	}
	return nil
}

// Dimension returns the value of the record for a breakdown dimension
func (r *DefectRecord) Dimension(d types.Dimension) string {
	switch d {
	case types.DimensionAppArea:
		return r.AppArea
	case types.DimensionRootCause:
		return r.RootCause
	case types.DimensionSeverity:
		return r.Severity
	case types.DimensionStatus:
		return r.Status
	default:
		return ""
	}
}
