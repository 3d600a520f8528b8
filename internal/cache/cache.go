package cache

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

type OrderSource interface {
	Load(ctx context.Context) []*models.Order
}

// ItemNamesCache - названия товаров для автодополнения в форме заказа.
type ItemNamesCache struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewItemNamesCache() *ItemNamesCache {
	return &ItemNamesCache{
		names: make(map[string]struct{}),
	}
}

func (c *ItemNamesCache) Refresh(ctx context.Context, src OrderSource) {
	names := make(map[string]struct{})
	for _, o := range src.Load(ctx) {
		for _, n := range o.ItemNames() {
			if n = strings.TrimSpace(n); n != "" {
				names[n] = struct{}{}
			}
		}
	}
	c.mu.Lock()
	c.names = names
	c.mu.Unlock()
}

func (c *ItemNamesCache) Add(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			c.names[n] = struct{}{}
		}
	}
}

// Suggest возвращает названия, начинающиеся с prefix (без учёта регистра), по алфавиту.
func (c *ItemNamesCache) Suggest(prefix string) []string {
	p := strings.ToLower(strings.TrimSpace(prefix))
	c.mu.RLock()
	res := make([]string, 0, len(c.names))
	for n := range c.names {
		if strings.HasPrefix(strings.ToLower(n), p) {
			res = append(res, n)
		}
	}
	c.mu.RUnlock()
	sort.Strings(res)
	return res
}
