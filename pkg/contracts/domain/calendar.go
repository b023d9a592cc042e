package domain

import (
	"fmt"
	"time"
)

// CalendarMonth identifies one month of one year. Month columns of a usage
// report are labelled with calendar months; the zero value is not a valid month.
type CalendarMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewCalendarMonth builds a CalendarMonth, normalising month overflow
// (month 13 of 2021 is January 2022).
func NewCalendarMonth(year int, month time.Month) CalendarMonth {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return CalendarMonth{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) CalendarMonth {
	return CalendarMonth{Year: t.Year(), Month: t.Month()}
}

// IsZero reports whether m is the zero value.
func (m CalendarMonth) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// StartDate returns midnight UTC of the first day of the month.
func (m CalendarMonth) StartDate() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// EndDate returns midnight UTC of the last day of the month.
func (m CalendarMonth) EndDate() time.Time {
	return m.StartDate().AddDate(0, 1, -1)
}

// AddMonths returns the month n months after m (n may be negative).
func (m CalendarMonth) AddMonths(n int) CalendarMonth {
	return NewCalendarMonth(m.Year, m.Month+time.Month(n))
}

// index is a monotonic month number used for ordering and differences.
func (m CalendarMonth) index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Before reports whether m is strictly earlier than other.
func (m CalendarMonth) Before(other CalendarMonth) bool {
	return m.index() < other.index()
}

// After reports whether m is strictly later than other.
func (m CalendarMonth) After(other CalendarMonth) bool {
	return m.index() > other.index()
}

// Equal reports whether m and other are the same month.
func (m CalendarMonth) Equal(other CalendarMonth) bool {
	return m.index() == other.index()
}

// MonthsUntil counts the months from m to end inclusive. It returns 1 when
// m == end and a value <= 0 when end is before m.
func (m CalendarMonth) MonthsUntil(end CalendarMonth) int {
	return end.index() - m.index() + 1
}

// String renders the month as MM/YYYY.
func (m CalendarMonth) String() string {
	return fmt.Sprintf("%02d/%04d", int(m.Month), m.Year)
}

// MarshalText encodes the month as YYYY-MM.
func (m CalendarMonth) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))), nil
}

// UnmarshalText decodes a YYYY-MM month.
func (m *CalendarMonth) UnmarshalText(text []byte) error {
	t, err := time.Parse("2006-01", string(text))
	if err != nil {
		return fmt.Errorf("invalid calendar month %q: %w", string(text), err)
	}
	*m = MonthOf(t)
	return nil
}

// DateRange renders an inclusive month range the way file details show it:
// "MM/YYYY - MM/YYYY".
func DateRange(start, end CalendarMonth) string {
	return start.String() + " - " + end.String()
}
