package model

import (
	"fmt"
	"time"
)

const monthKeyLayout = "2006-01"

// MonthKey identifies a competition month. Its string form is YYYY-MM and is
// the only persisted identifier format, shared with the eligibility monitor.
type MonthKey struct {
	year  int
	month time.Month
}

// NewMonthKey builds a key from a year and month.
func NewMonthKey(year int, month time.Month) (MonthKey, error) {
	if year < 1 || year > 9999 || month < time.January || month > time.December {
		return MonthKey{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonthKey, year, int(month))
	}
	return MonthKey{year: year, month: month}, nil
}

// MustMonthKey is like NewMonthKey but panics on an invalid month.
func MustMonthKey(year int, month time.Month) MonthKey {
	k, err := NewMonthKey(year, month)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseMonthKey parses a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(monthKeyLayout, s)
	if err != nil || len(s) != len(monthKeyLayout) {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey{year: t.Year(), month: t.Month()}, nil
}

// MonthKeyOf returns the key of the UTC month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	t = t.UTC()
	return MonthKey{year: t.Year(), month: t.Month()}
}

// Year returns the calendar year.
func (m MonthKey) Year() int { return m.year }

// Month returns the calendar month.
func (m MonthKey) Month() time.Month { return m.month }

// IsZero reports whether m is the zero key.
func (m MonthKey) IsZero() bool { return m.year == 0 }

// Start returns the first instant of the month in loc.
func (m MonthKey) Start(loc *time.Location) time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, loc)
}

// End returns the first instant of the following month in loc (exclusive bound).
func (m MonthKey) End(loc *time.Location) time.Time {
	return m.Start(loc).AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the UTC month, the same window
// stores query with Start(time.UTC) and End(time.UTC).
func (m MonthKey) Contains(t time.Time) bool {
	t = t.UTC()
	return t.Year() == m.year && t.Month() == m.month
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.year, int(m.month))
}

// MarshalText implements encoding.TextMarshaler.
func (m MonthKey) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MonthKey) UnmarshalText(b []byte) error {
	k, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*m = k
	return nil
}
