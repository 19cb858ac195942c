package engine

import (
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// ComputeAging ages every record in business days as of asOf. The result has one entry per
// input record in input order. Records failing validation carry Err and a zero Days value.
func ComputeAging(records []model.DefectRecord, asOf types.Date, holidays model.HolidaySet) []model.AgingResult {
	results := make([]model.AgingResult, len(records))
	for i := range records {
		results[i] = AgeRecord(i, &records[i], asOf, holidays)
	}
	return results
}

// AgeRecord ages a single record
func AgeRecord(index int, r *model.DefectRecord, asOf types.Date, holidays model.HolidaySet) model.AgingResult {
	result := model.AgingResult{
		Index:    index,
		DefectID: r.ID,
		Open:     r.IsOpen(),
	}

	if err := r.ValidateAt(asOf); err != nil {
		result.Err = err
		return result
	}

	result.EndDate = r.EndDate(asOf)
	result.Days = CountBusinessDays(r.DiscoveryDate, result.EndDate, holidays)
	return result
}
