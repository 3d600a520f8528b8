package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
)

func date(t *testing.T, s string) time.Time {
	d, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestAddWorkingDays(t *testing.T) {
	cal := calendar.Default()

	tests := []struct {
		start    string
		n        int
		expected string
	}{
		{"2026-10-18", 14, "2026-11-06"}, // 4 ноября пропускается
		{"2026-04-27", 14, "2026-05-18"}, // 1 мая, 9 мая в субботу
		{"2026-10-16", 1, "2026-10-19"},  // пятница -> понедельник
		{"2026-11-03", 1, "2026-11-05"},
		{"2025-12-31", 1, "2026-01-02"},
		{"2026-12-31", 1, "2027-01-01"}, // праздники другого года не заданы
		{"2026-10-18", 0, "2026-10-18"},
	}

	for _, tt := range tests {
		got := cal.AddWorkingDays(date(t, tt.start), tt.n)
		assert.Equal(t, tt.expected, calendar.FormatDate(got), "start=%s n=%d", tt.start, tt.n)
	}
}

func TestAddWorkingDaysLandsOnWorkingDay(t *testing.T) {
	cal := calendar.Default()
	start := date(t, "2025-12-20")

	for day := 0; day < 400; day += 3 {
		from := start.AddDate(0, 0, day)
		for _, n := range []int{1, 5, 14} {
			got := cal.AddWorkingDays(from, n)
			assert.True(t, cal.IsWorkingDay(got), "%s + %d = %s", calendar.FormatDate(from), n, calendar.FormatDate(got))

			counted := 0
			for d := from.AddDate(0, 0, 1); !d.After(got); d = d.AddDate(0, 0, 1) {
				if cal.IsWorkingDay(d) {
					counted++
				}
			}
			assert.Equal(t, n, counted)
		}
	}
}

func TestAddWorkingDaysZeroIsNoop(t *testing.T) {
	cal := calendar.Default()
	sat := date(t, "2026-10-17")
	assert.Equal(t, sat, cal.AddWorkingDays(sat, 0))

	got, err := cal.AddWorkingDaysISO("2026-01-01", 0)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", got)
}

func TestAddCalendarDays(t *testing.T) {
	got, err := calendar.AddCalendarDaysISO("2026-10-18", 45)
	require.NoError(t, err)
	assert.Equal(t, "2026-12-02", got)

	got, err = calendar.AddCalendarDaysISO("2026-12-20", 45)
	require.NoError(t, err)
	assert.Equal(t, "2027-02-03", got)

	_, err = calendar.AddCalendarDaysISO("18.10.2026", 45)
	assert.Error(t, err)
}

func TestCustomHolidays(t *testing.T) {
	cal, err := calendar.New([]string{"2026-10-19", " ", "2026-10-20"})
	require.NoError(t, err)
	got := cal.AddWorkingDays(date(t, "2026-10-16"), 1)
	assert.Equal(t, "2026-10-21", calendar.FormatDate(got))

	_, err = calendar.New([]string{"не дата"})
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	today := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 2, calendar.DaysBetween(date(t, "2026-10-16"), today))
	assert.Equal(t, -3, calendar.DaysBetween(today, date(t, "2026-10-15")))
	assert.Equal(t, 0, calendar.DaysBetween(today, date(t, "2026-10-18")))
}
