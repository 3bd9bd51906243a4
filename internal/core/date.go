package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. The zero value means
// absent (optional date fields use it instead of a pointer).
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// dateLayouts are the accepted input formats, in order of preference.
// Spreadsheet exports carry either ISO dates or dotted day-first dates,
// sometimes with a trailing time component.
var dateLayouts = []string{
	dateLayout,
	"02.01.2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses s as a calendar date. Any time-of-day part is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// ParsePeriod parses a plan period. Besides the full-date layouts it accepts
// "2006-01", which normalizes to the first day of the month. structured
// reports whether the input carried an explicit day.
func ParsePeriod(s string) (d Date, structured bool, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return NewDate(t.Year(), int(t.Month()), 1), false, nil
	}
	d, err = ParseDate(s)
	return d, true, err
}

// String returns the ISO form, or an empty string for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// DaysUntil returns the whole number of days from d to other. Negative when
// other is before d.
func (d Date) DaysUntil(other Date) int64 {
	return int64(other.Time.Sub(d.Time) / (24 * time.Hour))
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
