package engine

import (
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// CountBusinessDays returns the number of weekdays in [from, to) that are not holidays.
// It returns 0 when to is not after from; callers validate ordering beforehand.
func CountBusinessDays(from, to types.Date, holidays model.HolidaySet) int {
	days := from.DaysUntil(to)
	if days <= 0 {
		return 0
	}

	count := (days / 7) * 5
	wd := from.Weekday()
	for i := 0; i < days%7; i++ {
		d := (int(wd) + i) % 7
		if d != 0 && d != 6 { // Sunday, Saturday
			count++
		}
	}

	return count - holidays.CountWeekdaysIn(from, to)
}
