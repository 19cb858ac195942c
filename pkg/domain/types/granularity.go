package types

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Granularity is the length of a reporting period used for velocity aggregation.
// Keys produced by a granularity sort lexicographically in chronological order.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// String returns the string representation
func (g Granularity) String() string {
	return string(g)
}

// IsValid checks if the granularity is supported
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return true
	default:
		return false
	}
}

// Key returns the period key containing d: "2026-02-02", "2026-W06" (ISO week) or "2026-02"
func (g Granularity) Key(d Date) string {
	switch g {
	case GranularityDay:
		return d.String()
	case GranularityMonth:
		return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
	default:
		year, week := d.Time().ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
}

// Start returns the first date of the period identified by key. Only canonical keys, as
// produced by Key, are accepted: "2026-W5" and week 53 of a 52-week year are rejected.
func (g Granularity) Start(key string) (Date, error) {
	start, err := g.parseStart(key)
	if err != nil {
		return Date{}, err
	}
	if g.Key(start) != key {
		return Date{}, goerr.New("non-canonical period key",
			goerr.V("key", key),
			goerr.V("granularity", g),
			goerr.V("canonical", g.Key(start)))
	}
	return start, nil
}

func (g Granularity) parseStart(key string) (Date, error) {
	switch g {
	case GranularityDay:
		d, err := ParseDate(key)
		if err != nil || d.IsZero() {
			return Date{}, goerr.New("invalid day period key", goerr.V("key", key))
		}
		return d, nil

	case GranularityMonth:
		var year, month int
		if _, err := fmt.Sscanf(key, "%04d-%02d", &year, &month); err != nil || month < 1 || month > 12 {
			return Date{}, goerr.New("invalid month period key", goerr.V("key", key))
		}
		return NewDate(year, time.Month(month), 1), nil

	case GranularityWeek:
		var year, week int
		if _, err := fmt.Sscanf(key, "%04d-W%02d", &year, &week); err != nil || week < 1 || week > 53 {
			return Date{}, goerr.New("invalid week period key", goerr.V("key", key))
		}
		start := isoWeekStart(year, week)
		if y, w := start.Time().ISOWeek(); y != year || w != week {
			return Date{}, goerr.New("week does not exist in year", goerr.V("key", key))
		}
		return start, nil
	}

	return Date{}, goerr.New("unsupported granularity", goerr.V("granularity", g))
}

// Next returns the key of the period immediately following key
func (g Granularity) Next(key string) (string, error) {
	start, err := g.Start(key)
	if err != nil {
		return "", err
	}

	switch g {
	case GranularityDay:
		return g.Key(start.AddDays(1)), nil
	case GranularityMonth:
		return g.Key(NewDate(start.Year(), start.Month()+1, 1)), nil
	default:
		return g.Key(start.AddDays(7)), nil
	}
}

// isoWeekStart returns the Monday of the given ISO week. Week 1 is the week containing January 4th.
func isoWeekStart(year, week int) Date {
	jan4 := NewDate(year, time.January, 4)
	offset := int(jan4.Weekday()+6) % 7 // days since Monday
	return jan4.AddDays(-offset + (week-1)*7)
}
