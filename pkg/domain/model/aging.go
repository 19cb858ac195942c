package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// AgingResult is the business-day aging of one input record, at the record's input position
type AgingResult struct {
	Index    int            `json:"index"`
	DefectID types.DefectID `json:"defectId"`
	Days     int            `json:"days"`
	EndDate  types.Date     `json:"endDate"`
	Open     bool           `json:"open"`
	Err      error          `json:"-"` // non-nil when the record failed validation; Days is then meaningless
}

// Valid reports whether the aging value can be used
func (r AgingResult) Valid() bool {
	return r.Err == nil
}

// InvalidReason returns a short machine-readable reason for a validation error
func InvalidReason(err error) string {
	switch {
	case err == nil:
		return ""
	case goerr.HasTag(err, ErrTagMissingDiscoveryDate):
		return ReasonMissingDiscoveryDate
	case goerr.HasTag(err, ErrTagClosedBeforeDiscovery):
		return ReasonClosedBeforeDiscovery
	case goerr.HasTag(err, ErrTagAsOfBeforeDiscovery):
		return ReasonAsOfBeforeDiscovery
	default:
		return ReasonInvalidRecord
	}
}

// InvalidRecord describes a record excluded from aggregate computations
type InvalidRecord struct {
	Index    int            `json:"index"`
	DefectID types.DefectID `json:"defectId"`
	Reason   string         `json:"reason"`
	Message  string         `json:"message"`
}

// NewInvalidRecord builds an InvalidRecord from a failed AgingResult
func NewInvalidRecord(r AgingResult) InvalidRecord {
	msg := ""
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return InvalidRecord{
		Index:    r.Index,
		DefectID: r.DefectID,
		Reason:   InvalidReason(r.Err),
		Message:  msg,
	}
}
