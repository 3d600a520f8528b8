package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

const Prefix = "№"

var pattern = regexp.MustCompile(`^№\d{4}$`)

// Next returns max(existing) + 1. Nothing is reserved: two calls before
// either order is saved yield the same number.
func Next(orders []*models.Order) string {
	last := 0
	for _, o := range orders {
		if n, ok := Parse(o.Number); ok && n > last {
			last = n
		}
	}
	return Format(last + 1)
}

// Parse достаёт числовую часть номера вида №NNNN (допускает любую длину).
func Parse(number string) (int, bool) {
	if !strings.HasPrefix(number, Prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(number, Prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

func Format(n int) string {
	return fmt.Sprintf("%s%04d", Prefix, n)
}

func Valid(number string) bool {
	return pattern.MatchString(number)
}

func Validate(number string) error {
	if !Valid(number) {
		return &models.ValidationError{Field: "number", Message: "Номер: №0001"}
	}
	return nil
}

// SortKey - цифры номера для сортировки, 0 если их нет.
func SortKey(number string) int {
	var sb strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	n, _ := strconv.Atoi(sb.String())
	return n
}
