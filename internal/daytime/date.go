// Package daytime defines the calendar day used by every streak and quest rule.
//
// A Date carries no time of day and no location. Two instants are "the same day"
// only after both have been converted to a Date through the same Clock.
package daytime

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Date is a civil calendar date. The zero value means "unset".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse reads a YYYY-MM-DD string. An empty string yields the zero Date.
func Parse(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParse is Parse for literals in tests and defaults.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ordinal counts days since the Unix epoch. UTC midnight keeps the
// arithmetic free of daylight-saving shifts.
func (d Date) ordinal() int64 {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Before(other Date) bool {
	return d.ordinal() < other.ordinal()
}

// DayDistance returns the number of calendar days from b to a.
func DayDistance(a, b Date) int {
	return int(a.ordinal() - b.ordinal())
}

// LastNDays returns the n dates ending with today, oldest first.
func LastNDays(today Date, n int) []Date {
	if n <= 0 {
		return nil
	}
	days := make([]Date, n)
	for i := 0; i < n; i++ {
		days[i] = today.AddDays(i - (n - 1))
	}
	return days
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
