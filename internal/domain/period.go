package domain

import (
	"fmt"
	"time"

	"distledger/internal/core/apperror"
)

// Month is a calendar month in UTC.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, apperror.NewFieldValidation("month", fmt.Sprintf("month must be YYYY-MM, got %q", s))
	}
	return MonthOf(t), nil
}

// Start is the first day of the month at 00:00 UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the month at 00:00 UTC.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

// Prev returns the preceding month.
func (m Month) Prev() Month {
	return MonthOf(m.Start().AddDate(0, -1, 0))
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Contains reports whether t falls within the month.
func (m Month) Contains(t time.Time) bool {
	return MonthOf(t) == m
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	return m.Start().Before(o.Start())
}

func (m Month) String() string {
	return m.Start().Format("2006-01")
}

// TruncateDay drops the time of day, in UTC.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
