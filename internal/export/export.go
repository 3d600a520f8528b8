package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/merge"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

const (
	TableHeader = "ID;Номер;Дата;Товары;Клиенты;Статусы"

	msgNotSnapshot = "Скопируй данные с исходного устройства"
	msgBadFormat   = "Неверный формат"
)

func NewSnapshot(orders []*models.Order, device string, now time.Time) models.Snapshot {
	return models.Snapshot{
		Orders:    merge.FlattenAll(orders),
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Count:     len(orders),
		Device:    device,
	}
}

// EncodeSnapshot - отступ в два пробела, как у файла, который кладётся на диск.
func EncodeSnapshot(s models.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot разбирает текст из буфера обмена. Любая ошибка - ImportFormatError.
func DecodeSnapshot(text []byte) (models.Snapshot, error) {
	var raw struct {
		Orders    *[]models.SnapshotOrder `json:"orders"`
		Timestamp string                  `json:"timestamp"`
		Count     int                     `json:"count"`
		Device    string                  `json:"device"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(text), &raw); err != nil {
		return models.Snapshot{}, &models.ImportFormatError{Message: msgNotSnapshot, Err: err}
	}
	if raw.Orders == nil {
		return models.Snapshot{}, &models.ImportFormatError{Message: msgBadFormat}
	}
	return models.Snapshot{
		Orders:    *raw.Orders,
		Timestamp: raw.Timestamp,
		Count:     raw.Count,
		Device:    raw.Device,
	}, nil
}

func SnapshotFileName(now time.Time) string {
	return "umishka_" + calendar.FormatDate(now.UTC()) + ".json"
}

func TableFileName(now time.Time) string {
	return "заказы_" + calendar.FormatDate(now.UTC()) + ".csv"
}

// Table строит выгрузку с разделителем ";" и всеми полями в кавычках.
func Table(orders []*models.Order) []byte {
	var sb strings.Builder
	sb.WriteString(TableHeader)
	sb.WriteByte('\n')
	for _, o := range orders {
		fields := []string{
			shortID(o.ID),
			o.Number,
			o.CreatedAt,
			tableItems(o),
			strings.Join(o.ClientNames(), ", "),
			tableStatuses(o),
		}
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(quote(f))
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func tableItems(o *models.Order) string {
	parts := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		parts = append(parts, fmt.Sprintf("%s (%s₽)", it.Name, FormatPrice(it.Price)))
	}
	return strings.Join(parts, ", ")
}

func tableStatuses(o *models.Order) string {
	var perItem []string
	for _, it := range o.Items {
		var labels []string
		for _, k := range it.ActiveStatuses() {
			labels = append(labels, k.Label())
		}
		if len(labels) > 0 {
			perItem = append(perItem, strings.Join(labels, ","))
		}
	}
	return strings.Join(perItem, "; ")
}

func FormatPrice(p float64) string {
	return decimal.NewFromFloat(p).String()
}

// Total - сумма цен всех товаров.
func Total(orders []*models.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		for _, it := range o.Items {
			sum = sum.Add(decimal.NewFromFloat(it.Price))
		}
	}
	return sum
}

func shortID(id string) string {
	r := []rune(id)
	if len(r) <= 6 {
		return id
	}
	return string(r[len(r)-6:])
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
