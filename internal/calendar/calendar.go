package calendar

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// RussianHolidays2026 - праздники, не попадающие на выходные, учитываются при подсчёте рабочих дней
var RussianHolidays2026 = []string{
	"2026-01-01", "2026-01-07", "2026-02-23", "2026-03-08",
	"2026-05-01", "2026-05-09", "2026-06-12", "2026-11-04",
}

type Calendar struct {
	holidays map[string]struct{}
}

func New(holidays []string) (*Calendar, error) {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		d, err := ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("праздник %q: %w", h, err)
		}
		c.holidays[FormatDate(d)] = struct{}{}
	}
	return c, nil
}

// Default возвращает календарь с праздниками 2026 года.
func Default() *Calendar {
	c, _ := New(RussianHolidays2026)
	return c
}

func (c *Calendar) IsHoliday(d time.Time) bool {
	_, ok := c.holidays[FormatDate(d)]
	return ok
}

func (c *Calendar) IsWorkingDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(d)
}

// AddWorkingDays shifts start forward until n working days have passed.
// The start day itself is never counted; n <= 0 returns start unchanged.
func (c *Calendar) AddWorkingDays(start time.Time, n int) time.Time {
	d := Truncate(start)
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if !c.IsWorkingDay(d) {
			continue
		}
		added++
	}
	return d
}

func (c *Calendar) AddWorkingDaysISO(start string, n int) (string, error) {
	d, err := ParseDate(start)
	if err != nil {
		return "", err
	}
	return FormatDate(c.AddWorkingDays(d, n)), nil
}

func AddCalendarDays(start time.Time, n int) time.Time {
	return Truncate(start).AddDate(0, 0, n)
}

func AddCalendarDaysISO(start string, n int) (string, error) {
	d, err := ParseDate(start)
	if err != nil {
		return "", err
	}
	return FormatDate(AddCalendarDays(d, n)), nil
}

// Truncate приводит время к полуночи UTC той же календарной даты.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("неверная дата %q, нужен формат ГГГГ-ММ-ДД", s)
	}
	return d, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween - число целых суток от from до to (отрицательное, если to раньше).
func DaysBetween(from, to time.Time) int {
	return int(Truncate(to).Sub(Truncate(from)).Hours() / 24)
}
