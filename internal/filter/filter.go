package filter

import (
	"sort"
	"strings"
	"time"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/lifecycle"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
	"gitlab.ozon.dev/qwestard/umishka/internal/numbering"
)

type Category string

const (
	CategoryAll       Category = "all"
	CategoryNew       Category = "new"
	CategoryOK        Category = "ok"
	CategoryOverdue14 Category = "overdue14"
	CategoryOverdue45 Category = "overdue45"
	CategoryOverdue   Category = "overdue"
	CategoryReturned  Category = "returned"
	CategoryReceived  Category = "received"
)

const NewWindowDays = 2

var categories = map[Category]struct{}{
	CategoryAll: {}, CategoryNew: {}, CategoryOK: {}, CategoryOverdue14: {},
	CategoryOverdue45: {}, CategoryOverdue: {}, CategoryReturned: {}, CategoryReceived: {},
}

func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryAll, nil
	}
	c := Category(strings.ToLower(s))
	if _, ok := categories[c]; !ok {
		return "", &models.ValidationError{Field: "filter", Message: "неизвестный фильтр: " + s}
	}
	return c, nil
}

// Row - готовая строка таблицы заказов
type Row struct {
	ID          string
	NumberCell  string
	ItemsCell   string
	ClientsCell string
	StatusCell  string
	CreatedAt   string
	Urgency     models.Urgency
}

func BuildRow(o *models.Order, today time.Time) Row {
	return Row{
		ID:          o.ID,
		NumberCell:  o.Number + " " + o.CreatedAt,
		ItemsCell:   strings.Join(o.ItemNames(), ", "),
		ClientsCell: strings.Join(o.ClientNames(), " "),
		StatusCell:  lifecycle.StatusSummary(o),
		CreatedAt:   o.CreatedAt,
		Urgency:     lifecycle.Classify(o, today),
	}
}

func BuildRows(orders []*models.Order, today time.Time) []Row {
	rows := make([]Row, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, BuildRow(o, today))
	}
	return rows
}

// FilterRows returns the ids of rows passing both the text query and the category.
func FilterRows(rows []Row, query string, category Category, today time.Time) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	visible := make([]string, 0, len(rows))
	for _, r := range rows {
		if matchesQuery(r, q) && matchesCategory(r, category, today) {
			visible = append(visible, r.ID)
		}
	}
	return visible
}

func matchesQuery(r Row, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.NumberCell), q) ||
		strings.Contains(strings.ToLower(r.ItemsCell), q) ||
		strings.Contains(strings.ToLower(r.ClientsCell), q)
}

func matchesCategory(r Row, c Category, today time.Time) bool {
	switch c {
	case CategoryNew:
		created, err := calendar.ParseDate(r.CreatedAt)
		if err != nil {
			return true
		}
		// абсолютная разница: дата из будущего тоже считается новой
		diff := calendar.DaysBetween(created, today)
		if diff < 0 {
			diff = -diff
		}
		return diff <= NewWindowDays
	case CategoryOK:
		return !r.Urgency.IsOverdue() && r.Urgency != models.UrgencyReturned
	case CategoryOverdue14:
		return r.Urgency == models.UrgencyOverdue14
	case CategoryOverdue45:
		return r.Urgency == models.UrgencyOverdue45
	case CategoryOverdue:
		return r.Urgency.IsOverdue()
	case CategoryReturned:
		return r.Urgency == models.UrgencyReturned
	case CategoryReceived:
		return strings.Contains(r.StatusCell, models.StatusReceived.Icon())
	}
	return true
}

type SortMode string

const (
	SortDateDesc   SortMode = "date-desc"
	SortDateAsc    SortMode = "date-asc"
	SortNumberDesc SortMode = "number-desc"
	SortNumberAsc  SortMode = "number-asc"
)

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(s)); m {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortNumberDesc, SortNumberAsc:
		return m, nil
	}
	return "", &models.ValidationError{Field: "sort", Message: "неизвестная сортировка: " + s}
}

// Sort упорядочивает заказы на месте. Для сортировки по дате равные даты
// упорядочиваются по номеру в том же направлении.
func Sort(orders []*models.Order, mode SortMode) {
	desc := strings.HasSuffix(string(mode), "desc")
	byDate := strings.HasPrefix(string(mode), "date")
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if byDate && a.CreatedAt != b.CreatedAt {
			if desc {
				return a.CreatedAt > b.CreatedAt
			}
			return a.CreatedAt < b.CreatedAt
		}
		na, nb := numbering.SortKey(a.Number), numbering.SortKey(b.Number)
		if desc {
			return na > nb
		}
		return na < nb
	})
}
