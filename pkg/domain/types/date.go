package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// DateLayout is the canonical text form of a Date
const DateLayout = "2006-01-02"

// Date represents a civil calendar date without time of day. The zero value means "no date".
type Date struct {
	t time.Time
}

// NewDate creates a Date from year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a date in YYYY-MM-DD form
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, goerr.Wrap(err, "invalid date", goerr.V("value", s))
	}
	return DateOf(t), nil
}

// MustParseDate parses a date and panics on failure. Intended for tests and constants.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns the date as midnight UTC
func (d Date) Time() time.Time {
	return d.t
}

// Year returns the year of the date
func (d Date) Year() int {
	return d.t.Year()
}

// Month returns the month of the date
func (d Date) Month() time.Month {
	return d.t.Month()
}

// Day returns the day of month
func (d Date) Day() int {
	return d.t.Day()
}

// Weekday returns the day of the week
func (d Date) Weekday() time.Weekday {
	return d.t.Weekday()
}

// IsWeekend reports whether the date falls on Saturday or Sunday
func (d Date) IsWeekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddDays returns the date n days later (or earlier for negative n)
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the number of calendar days from d to other. Negative when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / 86400)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Equal reports whether both dates are the same day
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// Compare returns -1, 0 or +1 like time.Time.Compare
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// String returns the YYYY-MM-DD representation, or empty string for the zero date
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD" or null when unset
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes "YYYY-MM-DD" or null
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return goerr.Wrap(err, "date must be a string")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes the date as "YYYY-MM-DD"
func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML decodes a YAML scalar. yaml.v3 resolves unquoted dates to timestamps,
// so the raw scalar value is parsed instead of decoding into a string.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return goerr.New("date must be a scalar", goerr.V("line", node.Line))
	}
	value := node.Value
	if len(value) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			*d = DateOf(t)
			return nil
		}
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return goerr.Wrap(err, "invalid date in YAML", goerr.V("line", node.Line))
	}
	*d = parsed
	return nil
}
