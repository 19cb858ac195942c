package model

import (
	"sort"

	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// HolidaySet is an ordered set of calendar dates excluded from business-day counting
type HolidaySet struct {
	dates []types.Date
}

// NewHolidaySet builds a holiday set. Duplicates and zero dates are dropped.
func NewHolidaySet(dates ...types.Date) HolidaySet {
	sorted := make([]types.Date, 0, len(dates))
	for _, d := range dates {
		if !d.IsZero() {
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})

	unique := sorted[:0]
	for i, d := range sorted {
		if i > 0 && d.Equal(sorted[i-1]) {
			continue
		}
		unique = append(unique, d)
	}
	return HolidaySet{dates: unique}
}

// Dates returns a copy of the holidays in ascending order
func (h HolidaySet) Dates() []types.Date {
	out := make([]types.Date, len(h.dates))
	copy(out, h.dates)
	return out
}

// Len returns the number of holidays
func (h HolidaySet) Len() int {
	return len(h.dates)
}

// Contains reports whether d is a holiday
func (h HolidaySet) Contains(d types.Date) bool {
	i := h.search(d)
	return i < len(h.dates) && h.dates[i].Equal(d)
}

// CountWeekdaysIn returns how many holidays fall on a weekday within [from, to)
func (h HolidaySet) CountWeekdaysIn(from, to types.Date) int {
	if !from.Before(to) {
		return 0
	}
	count := 0
	for i := h.search(from); i < len(h.dates) && h.dates[i].Before(to); i++ {
		if !h.dates[i].IsWeekend() {
			count++
		}
	}
	return count
}

// search returns the index of the first holiday on or after d
func (h HolidaySet) search(d types.Date) int {
	return sort.Search(len(h.dates), func(i int) bool {
		return !h.dates[i].Before(d)
	})
}
