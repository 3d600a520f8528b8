package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gitlab.ozon.dev/qwestard/umishka/internal/filter"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

// SplitArgs делит строку по пробелам, двойные кавычки склеивают слова.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t') && !quoted:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, errors.New("незакрытая кавычка")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}

type options struct {
	number  string
	date    string
	items   []models.ItemInput
	clients []models.Client
	comment *string
}

func parseOptions(args []string) (*options, error) {
	opts := &options{}
	for _, a := range args {
		key, val, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("ожидается поле=значение, получено %q", a)
		}
		switch key {
		case "number":
			opts.number = val
		case "date":
			opts.date = val
		case "item":
			it, err := parseItem(val)
			if err != nil {
				return nil, err
			}
			opts.items = append(opts.items, it)
		case "client":
			if val = strings.TrimSpace(val); val != "" {
				opts.clients = append(opts.clients, models.Client{Full: val})
			}
		case "comment":
			opts.comment = &val
		default:
			return nil, fmt.Errorf("неизвестное поле %q", key)
		}
	}
	return opts, nil
}

// parseItem разбирает "название:цена", цена необязательна.
func parseItem(s string) (models.ItemInput, error) {
	name, price := s, 0.0
	if i := strings.LastIndex(s, ":"); i >= 0 {
		name = s[:i]
		p, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s[i+1:]), ",", "."), 64)
		if err != nil {
			return models.ItemInput{}, fmt.Errorf("цена товара %q: %w", name, err)
		}
		price = p
	}
	return models.ItemInput{Name: strings.TrimSpace(name), Price: price}, nil
}

func (o *options) form() (models.OrderForm, error) {
	if o.date != "" {
		return models.OrderForm{}, errors.New("дата нового заказа всегда сегодняшняя")
	}
	form := models.OrderForm{
		Number:  o.number,
		Clients: o.clients,
		Items:   o.items,
	}
	if o.comment != nil {
		form.Comment = *o.comment
	}
	return form, nil
}

// formFrom собирает форму редактирования поверх существующего заказа.
// Если товары перечислены заново, статусы сохраняются у товаров с тем же
// названием на той же позиции.
func (o *options) formFrom(cur *models.Order) (models.OrderForm, error) {
	form := models.OrderForm{
		Number:    cur.Number,
		CreatedAt: o.date,
		Clients:   cur.Clients,
		Comment:   cur.Comment,
	}
	if o.number != "" {
		form.Number = o.number
	}
	if len(o.clients) > 0 {
		form.Clients = o.clients
	}
	if o.comment != nil {
		form.Comment = *o.comment
	}

	if len(o.items) == 0 {
		for _, it := range cur.Items {
			form.Items = append(form.Items, models.ItemInput{
				Name:         it.Name,
				Price:        it.Price,
				Statuses:     it.Statuses,
				StatusesDate: it.StatusesDate,
			})
		}
		return form, nil
	}
	for i, it := range o.items {
		if i < len(cur.Items) && cur.Items[i].Name == it.Name {
			it.Statuses = cur.Items[i].Statuses
			it.StatusesDate = cur.Items[i].StatusesDate
		}
		form.Items = append(form.Items, it)
	}
	return form, nil
}

func (h *Handler) printRows(rows []filter.Row) {
	if len(rows) == 0 {
		h.printf("Ничего не найдено\n")
		return
	}
	for _, r := range rows {
		h.printf("%s\t%s\t%s\t%s\t%s\t%s\n",
			shortRef(r.ID), r.NumberCell, r.ItemsCell, r.ClientsCell, r.StatusCell, urgencyMark(r.Urgency))
	}
	h.printf("Всего: %d\n", len(rows))
}

func (h *Handler) printOrder(o *models.Order) {
	h.printf("%s от %s (id=%s)\n", o.Number, o.CreatedAt, o.ID)
	h.printf("Срок 14: %s, срок 45: %s\n", o.Delivery14, o.Delivery45)
	for i, it := range o.Items {
		var marks []string
		for _, k := range it.ActiveStatuses() {
			mark := k.Label()
			if d := it.StatusesDate[k]; d != "" {
				mark += " " + d
			}
			marks = append(marks, mark)
		}
		h.printf("  %d. %s %s ₽ %s\n", i+1, it.Name, strconv.FormatFloat(it.Price, 'f', -1, 64), strings.Join(marks, ", "))
	}
	if names := o.ClientNames(); len(names) > 0 {
		h.printf("Клиенты: %s\n", strings.Join(names, "; "))
	}
	if o.Comment != "" {
		h.printf("Комментарий: %s\n", o.Comment)
	}
}

func shortRef(id string) string {
	r := []rune(id)
	if len(r) <= 6 {
		return id
	}
	return string(r[len(r)-6:])
}

func urgencyMark(u models.Urgency) string {
	switch {
	case u == models.UrgencyReturned:
		return "↩"
	case u.IsOverdue():
		return "‼ " + string(u)
	case u.IsWarning():
		return "! " + string(u)
	}
	return ""
}
