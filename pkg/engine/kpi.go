package engine

import "github.com/secmon-lab/vantage/pkg/domain/types"

// Classify returns Met when the aging is within the threshold, Breached otherwise
func Classify(agingDays, thresholdDays int) types.KPIStatus {
	if agingDays <= thresholdDays {
		return types.KPIMet
	}
	return types.KPIBreached
}
