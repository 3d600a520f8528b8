package merge

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/lifecycle"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

type Result struct {
	Accepted []*models.Order
	// RejectedCount - записи, номер которых уже есть в хранилище
	RejectedCount int
	// Invalid - записи с нечитаемой датой создания, Err объясняет почему
	Invalid int
	Err     error
}

// Merge converts the snapshot entries that are not already present into
// orders. Identity is the order number: ids are device-local and are
// regenerated here. Existing orders are never touched.
func Merge(current []*models.Order, batch []models.SnapshotOrder, cal *calendar.Calendar, newID func() string) Result {
	existing := make(map[string]struct{}, len(current))
	for _, o := range current {
		existing[o.Number] = struct{}{}
	}

	var res Result
	for _, entry := range batch {
		if _, dup := existing[entry.Number]; dup {
			res.RejectedCount++
			continue
		}
		o, err := convert(entry, cal)
		if err != nil {
			res.Invalid++
			res.Err = errors.Join(res.Err, fmt.Errorf("заказ %s: %w", entry.Number, err))
			continue
		}
		o.ID = newID()
		res.Accepted = append(res.Accepted, o)
	}
	return res
}

func convert(entry models.SnapshotOrder, cal *calendar.Calendar) (*models.Order, error) {
	created, err := calendar.ParseDate(entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	d14, d45 := lifecycle.Deadlines(cal, created)

	o := &models.Order{
		Number:     entry.Number,
		CreatedAt:  calendar.FormatDate(created),
		Delivery14: entry.Delivery14,
		Delivery45: calendar.FormatDate(d45),
		Clients:    []models.Client{},
		Items: []models.Item{{
			Name:     entry.Products,
			Price:    0,
			Statuses: map[models.StatusKey]bool{},
		}},
		Comment: entry.Comment,
	}
	if o.Delivery14 == "" {
		o.Delivery14 = calendar.FormatDate(d14)
	}
	if entry.Clients != "" {
		o.Clients = []models.Client{{Full: entry.Clients}}
	}
	return o, nil
}

// Flatten сворачивает заказ в запись снимка синхронизации.
func Flatten(o *models.Order) models.SnapshotOrder {
	statuses := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		keys := it.ActiveStatuses()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, string(k))
		}
		statuses = append(statuses, strings.Join(parts, ","))
	}
	return models.SnapshotOrder{
		Number:     o.Number,
		CreatedAt:  o.CreatedAt,
		Products:   strings.Join(o.ItemNames(), ", "),
		Clients:    strings.Join(o.ClientNames(), "; "),
		Comment:    o.Comment,
		Delivery14: o.Delivery14,
		Statuses:   strings.Join(statuses, "; "),
	}
}

func FlattenAll(orders []*models.Order) []models.SnapshotOrder {
	res := make([]models.SnapshotOrder, 0, len(orders))
	for _, o := range orders {
		res = append(res, Flatten(o))
	}
	return res
}
