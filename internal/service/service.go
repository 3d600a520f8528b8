package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.ozon.dev/qwestard/umishka/internal/cache"
	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/clipboard"
	"gitlab.ozon.dev/qwestard/umishka/internal/export"
	"gitlab.ozon.dev/qwestard/umishka/internal/filter"
	"gitlab.ozon.dev/qwestard/umishka/internal/lifecycle"
	"gitlab.ozon.dev/qwestard/umishka/internal/merge"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
	"gitlab.ozon.dev/qwestard/umishka/internal/numbering"
	"gitlab.ozon.dev/qwestard/umishka/internal/storage"
)

// Syncer - отложенная и немедленная синхронизация.
type Syncer interface {
	Schedule()
	RunNow(ctx context.Context) (models.Snapshot, error)
}

type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventImported EventKind = "imported"
)

// Event сообщает подписчикам, что список заказов изменился и проекцию надо пересобрать.
type Event struct {
	Kind EventKind
	IDs  []string
}

type Deps struct {
	Storage   *storage.OrderStorage
	Calendar  *calendar.Calendar
	Names     *cache.ItemNamesCache
	Syncer    Syncer
	Clipboard clipboard.Clipboard
	Log       *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

// OrderService - всё, что интерфейс может сделать с заказами.
type OrderService struct {
	st       *storage.OrderStorage
	cal      *calendar.Calendar
	names    *cache.ItemNamesCache
	syncer   Syncer
	clip     clipboard.Clipboard
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	validate *validator.Validate

	submitting atomic.Bool

	subsMu sync.Mutex
	subs   []func(Event)
}

func NewOrderService(d Deps) *OrderService {
	s := &OrderService{
		st:       d.Storage,
		cal:      d.Calendar,
		names:    d.Names,
		syncer:   d.Syncer,
		clip:     d.Clipboard,
		log:      d.Log,
		now:      d.Now,
		newID:    d.NewID,
		validate: newValidator(),
	}
	if s.cal == nil {
		s.cal = calendar.Default()
	}
	if s.names == nil {
		s.names = cache.NewItemNamesCache()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = generateID
	}
	return s
}

// generateID - UUID v7, упорядоченный по времени; при сбое - метка времени.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id.String()
}

func (s *OrderService) today() time.Time {
	return calendar.Truncate(s.now())
}

// Subscribe регистрирует обработчик изменений. Вызывается синхронно после записи.
func (s *OrderService) Subscribe(fn func(Event)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *OrderService) afterMutation(ev Event) {
	s.subsMu.Lock()
	subs := append([]func(Event){}, s.subs...)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
	if s.syncer != nil {
		s.syncer.Schedule()
	}
}

// WarmUp заполняет кэш автодополнения из хранилища.
func (s *OrderService) WarmUp(ctx context.Context) {
	s.names.Refresh(ctx, s.st)
}

func (s *OrderService) beginSubmit() error {
	if !s.submitting.CompareAndSwap(false, true) {
		return models.ErrSubmissionInProgress
	}
	return nil
}

func (s *OrderService) endSubmit() {
	s.submitting.Store(false)
}

func (s *OrderService) NextNumber(ctx context.Context) string {
	return numbering.Next(s.st.Load(ctx))
}

// CreateOrder validates the form, stamps today's date and both deadlines and
// puts the order at the head of the list.
func (s *OrderService) CreateOrder(ctx context.Context, form models.OrderForm) (*models.Order, error) {
	if err := s.beginSubmit(); err != nil {
		return nil, err
	}
	defer s.endSubmit()

	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	o := &models.Order{
		ID:      s.newID(),
		Number:  form.Number,
		Clients: nonNilClients(form.Clients),
		Items:   form.BuildItems(),
		Comment: form.Comment,
	}
	lifecycle.Stamp(s.cal, o, s.today())

	if err := s.st.Add(ctx, o); err != nil {
		return nil, err
	}
	s.names.Add(o.ItemNames()...)
	s.log.Info("order created", zap.String("id", o.ID), zap.String("number", o.Number))
	s.afterMutation(Event{Kind: EventCreated, IDs: []string{o.ID}})
	return o, nil
}

// UpdateOrder заменяет редактируемые поля. Пустая CreatedAt оставляет прежнюю
// дату; сроки пересчитываются всегда.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, form models.OrderForm) (*models.Order, error) {
	if err := s.beginSubmit(); err != nil {
		return nil, err
	}
	defer s.endSubmit()

	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	updated, err := s.st.Update(ctx, id, func(o *models.Order) error {
		createdAt := o.CreatedAt
		if form.CreatedAt != "" {
			createdAt = form.CreatedAt
		}
		created, err := calendar.ParseDate(createdAt)
		if err != nil {
			return &models.ValidationError{Field: "createdAt", Message: "Дата: ГГГГ-ММ-ДД"}
		}
		o.Number = form.Number
		o.Clients = nonNilClients(form.Clients)
		o.Items = form.BuildItems()
		o.Comment = form.Comment
		lifecycle.Stamp(s.cal, o, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.names.Add(updated.ItemNames()...)
	s.log.Info("order updated", zap.String("id", id))
	s.afterMutation(Event{Kind: EventUpdated, IDs: []string{id}})
	return updated, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.st.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("order deleted", zap.String("id", id))
	s.afterMutation(Event{Kind: EventDeleted, IDs: []string{id}})
	return nil
}

// SetItemStatus переключает статус товара itemIdx; включение ставит сегодняшнюю дату.
func (s *OrderService) SetItemStatus(ctx context.Context, id string, itemIdx int, key models.StatusKey, on bool) (*models.Order, error) {
	if !key.Valid() {
		return nil, &models.ValidationError{Field: "status", Message: "неизвестный статус: " + string(key)}
	}
	today := s.today()
	updated, err := s.st.Update(ctx, id, func(o *models.Order) error {
		if itemIdx < 0 || itemIdx >= len(o.Items) {
			return &models.ValidationError{Field: "items", Message: fmt.Sprintf("нет товара №%d", itemIdx+1)}
		}
		lifecycle.SetStatus(&o.Items[itemIdx], key, on, today)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterMutation(Event{Kind: EventUpdated, IDs: []string{id}})
	return updated, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.st.Get(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, mode filter.SortMode) []*models.Order {
	orders := s.st.Load(ctx)
	filter.Sort(orders, mode)
	return orders
}

func (s *OrderService) Classify(o *models.Order) models.Urgency {
	return lifecycle.Classify(o, s.today())
}

func (s *OrderService) Rows(ctx context.Context, mode filter.SortMode) []filter.Row {
	return filter.BuildRows(s.ListOrders(ctx, mode), s.today())
}

func (s *OrderService) FilterRows(rows []filter.Row, query string, category filter.Category) []string {
	return filter.FilterRows(rows, query, category, s.today())
}

// Search - строки таблицы, прошедшие поиск и фильтр, в порядке сортировки.
func (s *OrderService) Search(ctx context.Context, query string, category filter.Category, mode filter.SortMode) []filter.Row {
	rows := s.Rows(ctx, mode)
	visible := make(map[string]struct{}, len(rows))
	for _, id := range s.FilterRows(rows, query, category) {
		visible[id] = struct{}{}
	}
	res := make([]filter.Row, 0, len(visible))
	for _, r := range rows {
		if _, ok := visible[r.ID]; ok {
			res = append(res, r)
		}
	}
	return res
}

// MergeImport дописывает в хранилище заказы из снимка, которых ещё нет (по номеру).
func (s *OrderService) MergeImport(ctx context.Context, batch []models.SnapshotOrder) (merge.Result, error) {
	var res merge.Result
	added, err := s.st.Merge(ctx, func(current []*models.Order) []*models.Order {
		res = merge.Merge(current, batch, s.cal, func() string { return "import_" + s.newID() })
		return res.Accepted
	})
	if err != nil {
		return merge.Result{}, err
	}
	if res.Err != nil {
		s.log.Warn("import skipped invalid entries", zap.Int("invalid", res.Invalid), zap.Error(res.Err))
	}
	if len(added) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(added))
	for _, o := range added {
		ids = append(ids, o.ID)
		s.names.Add(o.ItemNames()...)
	}
	s.log.Info("orders imported", zap.Int("accepted", len(added)), zap.Int("rejected", res.RejectedCount))
	s.afterMutation(Event{Kind: EventImported, IDs: ids})
	return res, nil
}

// ImportFromClipboard читает снимок из буфера обмена и сливает его с хранилищем.
func (s *OrderService) ImportFromClipboard(ctx context.Context) (merge.Result, error) {
	if s.clip == nil {
		return merge.Result{}, &models.ImportFormatError{Message: "буфер обмена не настроен"}
	}
	text, err := s.clip.ReadText()
	if err != nil {
		return merge.Result{}, &models.ImportFormatError{Message: "Скопируй данные с исходного устройства", Err: err}
	}
	snap, err := export.DecodeSnapshot([]byte(text))
	if err != nil {
		return merge.Result{}, err
	}
	return s.MergeImport(ctx, snap.Orders)
}

// SyncNow - явная команда синхронизации, в отличие от отложенной ошибки возвращаются.
func (s *OrderService) SyncNow(ctx context.Context) (models.Snapshot, error) {
	if s.syncer == nil {
		return models.Snapshot{}, fmt.Errorf("синхронизация не настроена")
	}
	return s.syncer.RunNow(ctx)
}

// ExportTable пишет табличную выгрузку в dir и возвращает путь к файлу.
func (s *OrderService) ExportTable(ctx context.Context, dir string) (string, error) {
	orders := s.st.Load(ctx)
	if len(orders) == 0 {
		return "", models.ErrNoOrders
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, export.TableFileName(s.now()))
	if err := os.WriteFile(path, export.Table(orders), 0o644); err != nil {
		return "", fmt.Errorf("write table: %w", err)
	}
	return path, nil
}

// Total - сумма цен всех товаров и число заказов.
func (s *OrderService) Total(ctx context.Context) (decimal.Decimal, int) {
	orders := s.st.Load(ctx)
	return export.Total(orders), len(orders)
}

func (s *OrderService) Suggestions(prefix string) []string {
	return s.names.Suggest(prefix)
}

func nonNilClients(c []models.Client) []models.Client {
	if c == nil {
		return []models.Client{}
	}
	return c
}
