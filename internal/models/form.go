package models

// ItemInput - строка товара из формы
type ItemInput struct {
	Name         string               `validate:"required"`
	Price        float64              `validate:"gte=0"`
	Statuses     map[StatusKey]bool
	StatusesDate map[StatusKey]string
}

// OrderForm - то, что собирает интерфейс перед созданием/редактированием.
// CreatedAt при создании игнорируется, при редактировании пустое значение
// оставляет прежнюю дату.
type OrderForm struct {
	Number    string      `validate:"required,ordernum"`
	CreatedAt string      `validate:"omitempty,datetime=2006-01-02"`
	Clients   []Client    `validate:"max=2"`
	Items     []ItemInput `validate:"required,min=1,dive"`
	Comment   string
}

func (f OrderForm) BuildItems() []Item {
	items := make([]Item, 0, len(f.Items))
	for _, in := range f.Items {
		st := in.Statuses
		if st == nil {
			st = map[StatusKey]bool{}
		}
		items = append(items, Item{
			Name:         in.Name,
			Price:        in.Price,
			Statuses:     st,
			StatusesDate: in.StatusesDate,
		})
	}
	return items
}

// SnapshotOrder - сплющенная запись заказа в снимке синхронизации
type SnapshotOrder struct {
	Number     string `json:"number"`
	CreatedAt  string `json:"createdAt"`
	Products   string `json:"products"`
	Clients    string `json:"clients"`
	Comment    string `json:"comment"`
	Delivery14 string `json:"delivery14"`
	Statuses   string `json:"statuses"`
}

// Snapshot - документ синхронизации между устройствами
type Snapshot struct {
	Orders    []SnapshotOrder `json:"orders"`
	Timestamp string          `json:"timestamp"`
	Count     int             `json:"count"`
	Device    string          `json:"device"`
}
