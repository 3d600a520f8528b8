package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

const DefaultKey = "umishka_orders_v2"

// OrderStorage держит весь список заказов под одним ключом. Любая мутация:
// прочитать список, изменить, записать целиком. Мьютекс сериализует эти
// циклы, писатель всё равно один.
type OrderStorage struct {
	mu    sync.Mutex
	blobs BlobStore
	key   string
	log   *zap.Logger
}

func New(blobs BlobStore, key string, log *zap.Logger) *OrderStorage {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderStorage{blobs: blobs, key: key, log: log}
}

func (st *OrderStorage) Key() string {
	return st.key
}

// Load never fails: an unreadable or corrupt blob loads as an empty list
// and the next write replaces it. The loss is logged, not propagated.
func (st *OrderStorage) Load(ctx context.Context) []*models.Order {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.load(ctx)
}

func (st *OrderStorage) load(ctx context.Context) []*models.Order {
	data, err := st.blobs.Get(ctx, st.key)
	if errors.Is(err, ErrBlobNotFound) {
		return []*models.Order{}
	}
	if err != nil {
		st.log.Warn("order list unreadable, treating as empty", zap.String("key", st.key), zap.Error(err))
		return []*models.Order{}
	}
	if len(data) == 0 {
		return []*models.Order{}
	}

	var orders []*models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		st.log.Warn("order list corrupt, treating as empty",
			zap.String("key", st.key), zap.Int("bytes", len(data)), zap.Error(err))
		return []*models.Order{}
	}
	res := orders[:0]
	for _, o := range orders {
		if o != nil {
			res = append(res, o)
		}
	}
	return res
}

func (st *OrderStorage) save(ctx context.Context, op string, orders []*models.Order) error {
	if orders == nil {
		orders = []*models.Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return &models.PersistenceError{Op: op, Err: err}
	}
	if err := st.blobs.Put(ctx, st.key, data); err != nil {
		return &models.PersistenceError{Op: op, Err: err}
	}
	return nil
}

// Save перезаписывает весь список.
func (st *OrderStorage) Save(ctx context.Context, orders []*models.Order) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.save(ctx, "save", orders)
}

func (st *OrderStorage) Get(ctx context.Context, id string) (*models.Order, error) {
	for _, o := range st.Load(ctx) {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, models.ErrOrderNotFound
}

// Add ставит новый заказ в начало списка.
func (st *OrderStorage) Add(ctx context.Context, o *models.Order) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	orders := st.load(ctx)
	orders = append([]*models.Order{o}, orders...)
	return st.save(ctx, "add", orders)
}

// Update применяет fn к заказу с данным id и сохраняет список. Если fn
// вернула ошибку, ничего не записывается.
func (st *OrderStorage) Update(ctx context.Context, id string, fn func(o *models.Order) error) (*models.Order, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	orders := st.load(ctx)
	for i, o := range orders {
		if o.ID != id {
			continue
		}
		updated := o.Clone()
		if err := fn(updated); err != nil {
			return nil, err
		}
		updated.ID = o.ID
		orders[i] = updated
		if err := st.save(ctx, "update", orders); err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, models.ErrOrderNotFound
}

func (st *OrderStorage) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	orders := st.load(ctx)
	kept := make([]*models.Order, 0, len(orders))
	for _, o := range orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	if len(kept) == len(orders) {
		return models.ErrOrderNotFound
	}
	return st.save(ctx, "delete", kept)
}

// Merge вызывает fn с текущим списком и дописывает то, что она вернула, в
// конец. Запись одна - весь объединённый список.
func (st *OrderStorage) Merge(ctx context.Context, fn func(current []*models.Order) []*models.Order) ([]*models.Order, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	current := st.load(ctx)
	added := fn(current)
	if len(added) == 0 {
		return nil, nil
	}
	all := make([]*models.Order, 0, len(current)+len(added))
	all = append(all, current...)
	all = append(all, added...)
	if err := st.save(ctx, "import", all); err != nil {
		return nil, err
	}
	return added, nil
}
