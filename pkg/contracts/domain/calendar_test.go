package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarMonthDates(t *testing.T) {
	tests := []struct {
		name      string
		month     CalendarMonth
		wantStart string
		wantEnd   string
	}{
		{"january", CalendarMonth{2021, time.January}, "2021-01-01", "2021-01-31"},
		{"leap february", CalendarMonth{2020, time.February}, "2020-02-01", "2020-02-29"},
		{"february", CalendarMonth{2021, time.February}, "2021-02-01", "2021-02-28"},
		{"december", CalendarMonth{2021, time.December}, "2021-12-01", "2021-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStart, tt.month.StartDate().Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, tt.month.EndDate().Format("2006-01-02"))
		})
	}
}

func TestCalendarMonthArithmetic(t *testing.T) {
	nov := CalendarMonth{2021, time.November}

	assert.Equal(t, CalendarMonth{2022, time.January}, nov.AddMonths(2))
	assert.Equal(t, CalendarMonth{2020, time.November}, nov.AddMonths(-12))
	assert.Equal(t, CalendarMonth{2022, time.January}, NewCalendarMonth(2021, 13))

	assert.True(t, nov.Before(nov.AddMonths(1)))
	assert.True(t, nov.After(nov.AddMonths(-1)))
	assert.True(t, nov.Equal(CalendarMonth{2021, time.November}))

	assert.Equal(t, 1, nov.MonthsUntil(nov))
	assert.Equal(t, 12, CalendarMonth{2021, time.July}.MonthsUntil(CalendarMonth{2022, time.June}))
	assert.Equal(t, 0, nov.MonthsUntil(nov.AddMonths(-1)))
}

func TestCalendarMonthText(t *testing.T) {
	m := CalendarMonth{2023, time.March}
	assert.Equal(t, "03/2023", m.String())
	assert.Equal(t, "03/2023 - 08/2023", DateRange(m, m.AddMonths(5)))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `"2023-03"`, string(data))

	var decoded CalendarMonth
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m, decoded)

	assert.Error(t, decoded.UnmarshalText([]byte("March")))
}

func TestParseMetricType(t *testing.T) {
	tests := []struct {
		input   string
		want    MetricType
		wantErr bool
	}{
		{"Unique_Item_Requests", MetricUniqueItemRequests, false},
		{"Unique Item Requests", MetricUniqueItemRequests, false},
		{"unique", MetricUniqueItemRequests, false},
		{"Total_Item_Requests", MetricTotalItemRequests, false},
		{" total ", MetricTotalItemRequests, false},
		{"Unique_Title_Requests", MetricUnrecognized, true},
		{"", MetricUnrecognized, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMetricType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestTabularRecordCell(t *testing.T) {
	rec := TabularRecord{
		Name:    "fy21.csv",
		Columns: []Column{{Name: "Title"}, {Name: "Jan-2021"}},
		Rows: []map[string]Cell{
			{"Title": Text("Journal A"), "Jan-2021": Number(4)},
		},
	}

	assert.Equal(t, []string{"Title", "Jan-2021"}, rec.ColumnNames())
	assert.True(t, rec.HasColumn("Title"))
	assert.False(t, rec.HasColumn("DOI"))
	assert.Equal(t, "Journal A", rec.Cell(0, "Title").String())
	assert.Equal(t, "4", rec.Cell(0, "Jan-2021").String())
	assert.True(t, rec.Cell(0, "DOI").IsMissing())
	assert.True(t, rec.Cell(3, "Title").IsMissing())
}
