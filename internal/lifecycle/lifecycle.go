package lifecycle

import (
	"strings"
	"time"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

const (
	InterimWorkingDays = 14
	FinalCalendarDays  = 45
	WarningWindowDays  = 5
)

// Deadlines считает промежуточный (14 рабочих дней) и итоговый (45 календарных) сроки.
func Deadlines(cal *calendar.Calendar, createdAt time.Time) (d14, d45 time.Time) {
	return cal.AddWorkingDays(createdAt, InterimWorkingDays), calendar.AddCalendarDays(createdAt, FinalCalendarDays)
}

// Stamp проставляет дату создания и пересчитывает оба срока.
func Stamp(cal *calendar.Calendar, o *models.Order, createdAt time.Time) {
	d14, d45 := Deadlines(cal, createdAt)
	o.CreatedAt = calendar.FormatDate(createdAt)
	o.Delivery14 = calendar.FormatDate(d14)
	o.Delivery45 = calendar.FormatDate(d45)
}

// Classify returns the urgency of an order. The final deadline is checked
// before the interim one so a long-overdue order is never masked.
func Classify(o *models.Order, today time.Time) models.Urgency {
	if o.HasStatus(models.StatusReturned) {
		return models.UrgencyReturned
	}
	if left, ok := daysLeft(o.Delivery45, today); ok {
		if left < 0 {
			return models.UrgencyOverdue45
		}
		if left <= WarningWindowDays {
			return models.UrgencyWarning45
		}
	}
	if left, ok := daysLeft(o.Delivery14, today); ok {
		if left < 0 {
			return models.UrgencyOverdue14
		}
		if left <= WarningWindowDays {
			return models.UrgencyWarning14
		}
	}
	return models.UrgencyNormal
}

func daysLeft(deadline string, today time.Time) (int, bool) {
	if deadline == "" {
		return 0, false
	}
	d, err := calendar.ParseDate(deadline)
	if err != nil {
		return 0, false
	}
	return calendar.DaysBetween(today, d), true
}

// StatusSummary - иконки активных статусов по каждому товару через пробел.
func StatusSummary(o *models.Order) string {
	var parts []string
	for _, it := range o.Items {
		var sb strings.Builder
		for _, k := range it.ActiveStatuses() {
			sb.WriteString(k.Icon())
		}
		if sb.Len() > 0 {
			parts = append(parts, sb.String())
		}
	}
	return strings.Join(parts, " ")
}

// SetStatus переключает статус товара. Включение ставит дату отметки.
func SetStatus(it *models.Item, key models.StatusKey, on bool, today time.Time) {
	if it.Statuses == nil {
		it.Statuses = map[models.StatusKey]bool{}
	}
	it.Statuses[key] = on
	if !on {
		return
	}
	if it.StatusesDate == nil {
		it.StatusesDate = map[models.StatusKey]string{}
	}
	it.StatusesDate[key] = calendar.FormatDate(today)
}
