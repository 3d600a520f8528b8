package models

import "strings"

type StatusKey string

const (
	StatusReceived StatusKey = "received"
	StatusNotified StatusKey = "notified"
	StatusIssued   StatusKey = "issued"
	StatusReturned StatusKey = "returned"
)

// StatusKeys в порядке отображения
var StatusKeys = []StatusKey{StatusReceived, StatusNotified, StatusIssued, StatusReturned}

var statusIcons = map[StatusKey]string{
	StatusReceived: "✅",
	StatusNotified: "📣",
	StatusIssued:   "📦",
	StatusReturned: "🔁",
}

var statusLabels = map[StatusKey]string{
	StatusReceived: "Получен",
	StatusNotified: "Уведомлен",
	StatusIssued:   "Выдан",
	StatusReturned: "Возврат",
}

func (k StatusKey) Icon() string {
	return statusIcons[k]
}

func (k StatusKey) Label() string {
	return statusLabels[k]
}

func (k StatusKey) Valid() bool {
	_, ok := statusIcons[k]
	return ok
}

func ParseStatusKey(s string) (StatusKey, error) {
	k := StatusKey(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", &ValidationError{Field: "status", Message: "неизвестный статус: " + s}
	}
	return k, nil
}

// Client либо свободная строка, либо пара имя/телефон
type Client struct {
	Full  string `json:"full,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Client) Display() string {
	if c.Full != "" {
		return c.Full
	}
	return strings.TrimSpace(c.Name + " " + c.Phone)
}

type Item struct {
	Name         string               `json:"name"`
	Price        float64              `json:"price"`
	Statuses     map[StatusKey]bool   `json:"statuses"`
	StatusesDate map[StatusKey]string `json:"statusesDate,omitempty"`
}

func (i Item) Has(k StatusKey) bool {
	return i.Statuses[k]
}

// ActiveStatuses возвращает включенные статусы в порядке StatusKeys.
func (i Item) ActiveStatuses() []StatusKey {
	var res []StatusKey
	for _, k := range StatusKeys {
		if i.Statuses[k] {
			res = append(res, k)
		}
	}
	return res
}

// Order - запись заказа. Имена полей совпадают с сохранённым блобом.
type Order struct {
	ID         string   `json:"id"`
	Number     string   `json:"number"`
	CreatedAt  string   `json:"createdAt"`
	Delivery14 string   `json:"delivery14"`
	Delivery45 string   `json:"delivery45"`
	Clients    []Client `json:"clients"`
	Items      []Item   `json:"items"`
	Comment    string   `json:"comment,omitempty"`
}

func (o *Order) HasStatus(k StatusKey) bool {
	for _, it := range o.Items {
		if it.Has(k) {
			return true
		}
	}
	return false
}

func (o *Order) ItemNames() []string {
	names := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.Name)
	}
	return names
}

func (o *Order) ClientNames() []string {
	var names []string
	for _, c := range o.Clients {
		if d := c.Display(); d != "" {
			names = append(names, d)
		}
	}
	return names
}

// Clone делает глубокую копию, чтобы наружу не утекали ссылки на хранилище.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Clients = append([]Client(nil), o.Clients...)
	cp.Items = make([]Item, len(o.Items))
	for i, it := range o.Items {
		cp.Items[i] = it
		cp.Items[i].Statuses = copyMap(it.Statuses)
		cp.Items[i].StatusesDate = copyMap(it.StatusesDate)
	}
	return &cp
}

func copyMap[V any](m map[StatusKey]V) map[StatusKey]V {
	if m == nil {
		return nil
	}
	res := make(map[StatusKey]V, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyWarning14 Urgency = "warning-14"
	UrgencyOverdue14 Urgency = "overdue-14"
	UrgencyWarning45 Urgency = "warning-45"
	UrgencyOverdue45 Urgency = "overdue-45"
	UrgencyReturned  Urgency = "returned"
)

func (u Urgency) String() string {
	return string(u)
}

func (u Urgency) IsOverdue() bool {
	return u == UrgencyOverdue14 || u == UrgencyOverdue45
}

func (u Urgency) IsWarning() bool {
	return u == UrgencyWarning14 || u == UrgencyWarning45
}
