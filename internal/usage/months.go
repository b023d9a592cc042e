package usage

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"counterviz/pkg/contracts/domain"
)

// monthLayouts are the column label formats seen in TR_J1 exports from
// different platforms and spreadsheet tools.
var monthLayouts = []string{
	"Jan-2006",
	"Jan 2006",
	"January-2006",
	"January 2006",
	"Jan-06",
	"2006-01",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/2006",
	"1/2006",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
}

// Excel serial day numbers accepted as month labels (1954-10-04 .. 2119-01-08).
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// ParseMonthLabel interprets a column label as a calendar month. It returns
// false for labels that are not dates.
func ParseMonthLabel(label string) (domain.CalendarMonth, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return domain.CalendarMonth{}, false
	}

	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.MonthOf(t), true
		}
	}

	// Spreadsheet headers stored as dates arrive as serial numbers when read raw.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial >= minExcelSerial && serial <= maxExcelSerial {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return domain.MonthOf(t), true
			}
		}
	}

	return domain.CalendarMonth{}, false
}

// RemainingMonths lists the months after end that complete a twelve month
// fiscal year beginning at start. It is empty when the year is already complete.
func RemainingMonths(start, end domain.CalendarMonth) []domain.CalendarMonth {
	last := start.AddMonths(11)
	var months []domain.CalendarMonth
	for m := end.AddMonths(1); !m.After(last); m = m.AddMonths(1) {
		months = append(months, m)
	}
	return months
}
