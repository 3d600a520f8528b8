package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/lifecycle"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

var today = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

func day(offset int) string {
	return calendar.FormatDate(today.AddDate(0, 0, offset))
}

func orderWith(d14, d45 string, statuses ...models.StatusKey) *models.Order {
	st := map[models.StatusKey]bool{}
	for _, s := range statuses {
		st[s] = true
	}
	return &models.Order{
		ID:         "1",
		Number:     "№0001",
		Delivery14: d14,
		Delivery45: d45,
		Items:      []models.Item{{Name: "Кружка", Statuses: st}},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		order    *models.Order
		expected models.Urgency
	}{
		{"returned beats overdue 45", orderWith(day(-20), day(-3), models.StatusReturned), models.UrgencyReturned},
		{"overdue 45 beats overdue 14", orderWith(day(-30), day(-3)), models.UrgencyOverdue45},
		{"warning 45 beats overdue 14", orderWith(day(-10), day(4)), models.UrgencyWarning45},
		{"warning 45 on deadline day", orderWith(day(-10), day(0)), models.UrgencyWarning45},
		{"overdue 14", orderWith(day(-1), day(25)), models.UrgencyOverdue14},
		{"warning 14 edge", orderWith(day(5), day(25)), models.UrgencyWarning14},
		{"warning 14 today", orderWith(day(0), day(25)), models.UrgencyWarning14},
		{"normal", orderWith(day(6), day(25)), models.UrgencyNormal},
		{"warning 45 edge", orderWith(day(6), day(5)), models.UrgencyWarning45},
		{"received does not matter", orderWith(day(10), day(30), models.StatusReceived), models.UrgencyNormal},
		{"broken dates", orderWith("", "bad"), models.UrgencyNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, lifecycle.Classify(tt.order, today))
		})
	}
}

func TestReturnedOnAnyItem(t *testing.T) {
	o := orderWith(day(10), day(30))
	o.Items = append(o.Items, models.Item{Name: "Чайник", Statuses: map[models.StatusKey]bool{models.StatusReturned: true}})
	assert.Equal(t, models.UrgencyReturned, lifecycle.Classify(o, today))
}

func TestStamp(t *testing.T) {
	o := &models.Order{}
	lifecycle.Stamp(calendar.Default(), o, today)
	assert.Equal(t, "2026-10-18", o.CreatedAt)
	assert.Equal(t, "2026-11-06", o.Delivery14)
	assert.Equal(t, "2026-12-02", o.Delivery45)
}

func TestStatusSummary(t *testing.T) {
	o := &models.Order{Items: []models.Item{
		{Name: "a", Statuses: map[models.StatusKey]bool{models.StatusIssued: true, models.StatusReceived: true}},
		{Name: "b", Statuses: map[models.StatusKey]bool{models.StatusReceived: false}},
		{Name: "c", Statuses: map[models.StatusKey]bool{models.StatusReturned: true, models.StatusNotified: true}},
	}}
	assert.Equal(t, "✅📦 📣🔁", lifecycle.StatusSummary(o))

	empty := &models.Order{Items: []models.Item{{Name: "a"}}}
	assert.Equal(t, "", lifecycle.StatusSummary(empty))
}

func TestSetStatus(t *testing.T) {
	it := models.Item{Name: "a"}
	lifecycle.SetStatus(&it, models.StatusReceived, true, today)
	assert.True(t, it.Has(models.StatusReceived))
	assert.Equal(t, "2026-10-18", it.StatusesDate[models.StatusReceived])

	lifecycle.SetStatus(&it, models.StatusReceived, false, today.AddDate(0, 0, 1))
	assert.False(t, it.Has(models.StatusReceived))
	assert.Equal(t, "2026-10-18", it.StatusesDate[models.StatusReceived], "дата снятия не перезаписывается")
}
