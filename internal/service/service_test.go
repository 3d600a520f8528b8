package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/clipboard"
	"gitlab.ozon.dev/qwestard/umishka/internal/filter"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
	"gitlab.ozon.dev/qwestard/umishka/internal/service"
	"gitlab.ozon.dev/qwestard/umishka/internal/storage"
	"gitlab.ozon.dev/qwestard/umishka/internal/syncer"
)

var today = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type fakeSyncer struct {
	mu        sync.Mutex
	scheduled int
}

func (f *fakeSyncer) Schedule() {
	f.mu.Lock()
	f.scheduled++
	f.mu.Unlock()
}

func (f *fakeSyncer) RunNow(context.Context) (models.Snapshot, error) {
	return models.Snapshot{}, nil
}

func (f *fakeSyncer) Scheduled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduled
}

type ServiceSuite struct {
	suite.Suite
	ctx    context.Context
	st     *storage.OrderStorage
	svc    *service.OrderService
	sync   *fakeSyncer
	clip   *clipboard.Memory
	events []service.Event
	ids    int
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	blobs, err := storage.NewFileBlobStore(s.T().TempDir())
	s.Require().NoError(err)
	s.st = storage.New(blobs, "", nil)
	s.sync = &fakeSyncer{}
	s.clip = &clipboard.Memory{}
	s.events = nil
	s.ids = 0
	s.svc = s.newService(s.st, s.clip)
	s.svc.Subscribe(func(ev service.Event) { s.events = append(s.events, ev) })
}

func (s *ServiceSuite) newService(st *storage.OrderStorage, cb clipboard.Clipboard) *service.OrderService {
	return service.NewOrderService(service.Deps{
		Storage:   st,
		Calendar:  calendar.Default(),
		Syncer:    s.sync,
		Clipboard: cb,
		Now:       func() time.Time { return today },
		NewID: func() string {
			s.ids++
			return fmt.Sprintf("id-%d", s.ids)
		},
	})
}

func form(number string, items ...string) models.OrderForm {
	f := models.OrderForm{Number: number, Clients: []models.Client{{Full: "Иван 8900"}}}
	for _, name := range items {
		f.Items = append(f.Items, models.ItemInput{Name: name, Price: 100})
	}
	return f
}

func (s *ServiceSuite) TestCreateOrder() {
	o, err := s.svc.CreateOrder(s.ctx, form("№0001", "Кружка"))
	s.Require().NoError(err)

	s.Equal("id-1", o.ID)
	s.Equal("2026-10-18", o.CreatedAt)
	s.Equal("2026-11-06", o.Delivery14)
	s.Equal("2026-12-02", o.Delivery45)
	s.NotNil(o.Items[0].Statuses)

	stored, err := s.svc.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(o, stored)

	s.Equal([]service.Event{{Kind: service.EventCreated, IDs: []string{"id-1"}}}, s.events)
	s.Equal(1, s.sync.Scheduled())
	s.Equal([]string{"Кружка"}, s.svc.Suggestions("кр"))
}

func (s *ServiceSuite) TestCreateIgnoresFormDate() {
	f := form("№0001", "Кружка")
	f.CreatedAt = "2020-01-01"
	o, err := s.svc.CreateOrder(s.ctx, f)
	s.Require().NoError(err)
	s.Equal("2026-10-18", o.CreatedAt)
}

func (s *ServiceSuite) TestNextNumber() {
	s.Equal("№0001", s.svc.NextNumber(s.ctx))
	_, err := s.svc.CreateOrder(s.ctx, form("№0001", "a"))
	s.Require().NoError(err)
	_, err = s.svc.CreateOrder(s.ctx, form("№0003", "b"))
	s.Require().NoError(err)
	s.Equal("№0004", s.svc.NextNumber(s.ctx))
}

func (s *ServiceSuite) TestValidation() {
	tests := []struct {
		name  string
		form  models.OrderForm
		field string
	}{
		{"missing sign", form("0005", "a"), "number"},
		{"five digits", form("№12345", "a"), "number"},
		{"no items", form("№0005"), "items"},
		{"no items beats bad number", form("bad"), "items"},
		{"empty item name", form("№0005", ""), "items"},
		{"negative price", models.OrderForm{Number: "№0005", Items: []models.ItemInput{{Name: "a", Price: -1}}}, "price"},
		{"three clients", models.OrderForm{Number: "№0005", Clients: make([]models.Client, 3), Items: []models.ItemInput{{Name: "a"}}}, "clients"},
		{"bad date", models.OrderForm{Number: "№0005", CreatedAt: "18.10.2026", Items: []models.ItemInput{{Name: "a"}}}, "createdAt"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.CreateOrder(s.ctx, tt.form)
			var verr *models.ValidationError
			s.Require().True(errors.As(err, &verr), "ожидалась ValidationError, получено %v", err)
			s.Equal(tt.field, verr.Field)
		})
	}
	s.Empty(s.st.Load(s.ctx), "при ошибке валидации ничего не пишется")
	s.Empty(s.events)
	s.Zero(s.sync.Scheduled())

	_, err := s.svc.CreateOrder(s.ctx, form("№0005", "a"))
	s.NoError(err)
}

func (s *ServiceSuite) TestUpdateRecomputesDeadlines() {
	o, err := s.svc.CreateOrder(s.ctx, form("№0001", "Кружка"))
	s.Require().NoError(err)

	f := form("№0002", "Чайник", "Ложка")
	f.CreatedAt = "2026-04-27"
	f.Comment = "перезвонить"
	updated, err := s.svc.UpdateOrder(s.ctx, o.ID, f)
	s.Require().NoError(err)

	s.Equal(o.ID, updated.ID)
	s.Equal("№0002", updated.Number)
	s.Equal("2026-04-27", updated.CreatedAt)
	s.Equal("2026-05-18", updated.Delivery14)
	s.Equal("2026-06-11", updated.Delivery45)
	s.Len(updated.Items, 2)
	s.Equal("перезвонить", updated.Comment)

	f.CreatedAt = ""
	updated, err = s.svc.UpdateOrder(s.ctx, o.ID, f)
	s.Require().NoError(err)
	s.Equal("2026-04-27", updated.CreatedAt, "пустая дата оставляет прежнюю")

	_, err = s.svc.UpdateOrder(s.ctx, "нет такого", f)
	s.ErrorIs(err, models.ErrOrderNotFound)
	s.Equal(3, s.sync.Scheduled())
}

func (s *ServiceSuite) TestDeleteOrder() {
	o, err := s.svc.CreateOrder(s.ctx, form("№0001", "Кружка"))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.DeleteOrder(s.ctx, o.ID))
	s.Empty(s.svc.ListOrders(s.ctx, filter.SortDateDesc))
	s.Equal(service.EventDeleted, s.events[len(s.events)-1].Kind)

	s.ErrorIs(s.svc.DeleteOrder(s.ctx, o.ID), models.ErrOrderNotFound)
}

func (s *ServiceSuite) TestSetItemStatus() {
	o, err := s.svc.CreateOrder(s.ctx, form("№0001", "Кружка", "Чайник"))
	s.Require().NoError(err)

	updated, err := s.svc.SetItemStatus(s.ctx, o.ID, 1, models.StatusReturned, true)
	s.Require().NoError(err)
	s.True(updated.Items[1].Has(models.StatusReturned))
	s.Equal("2026-10-18", updated.Items[1].StatusesDate[models.StatusReturned])
	s.Equal(models.UrgencyReturned, s.svc.Classify(updated))

	_, err = s.svc.SetItemStatus(s.ctx, o.ID, 5, models.StatusReceived, true)
	var verr *models.ValidationError
	s.True(errors.As(err, &verr))

	_, err = s.svc.SetItemStatus(s.ctx, o.ID, 0, models.StatusKey("lost"), true)
	s.True(errors.As(err, &verr))
}

func (s *ServiceSuite) TestSearch() {
	_, err := s.svc.CreateOrder(s.ctx, form("№0001", "Кружка"))
	s.Require().NoError(err)
	_, err = s.svc.CreateOrder(s.ctx, form("№0002", "Чайник"))
	s.Require().NoError(err)
	_, err = s.svc.MergeImport(s.ctx, []models.SnapshotOrder{{Number: "№0003", CreatedAt: "2026-08-01", Products: "Ложка"}})
	s.Require().NoError(err)

	rows := s.svc.Search(s.ctx, "", filter.CategoryNew, filter.SortNumberAsc)
	s.Require().Len(rows, 2)
	s.Equal("№0001 2026-10-18", rows[0].NumberCell)

	rows = s.svc.Search(s.ctx, "ложка", filter.CategoryOverdue, filter.SortDateDesc)
	s.Require().Len(rows, 1)
	s.Equal(models.UrgencyOverdue45, rows[0].Urgency)

	all := s.svc.Rows(s.ctx, filter.SortDateDesc)
	s.Len(s.svc.FilterRows(all, "ИВАН", filter.CategoryAll), 2)
}

func (s *ServiceSuite) TestMergeImport() {
	_, err := s.svc.CreateOrder(s.ctx, form("№0001", "Кружка"))
	s.Require().NoError(err)
	s.events = nil

	res, err := s.svc.MergeImport(s.ctx, []models.SnapshotOrder{{Number: "№0001", CreatedAt: "2026-10-01", Products: "x"}})
	s.Require().NoError(err)
	s.Empty(res.Accepted)
	s.Equal(1, res.RejectedCount)
	s.Empty(s.events, "без новых заказов событий нет")

	res, err = s.svc.MergeImport(s.ctx, []models.SnapshotOrder{{Number: "№0009", CreatedAt: "2026-10-01", Products: "Чайник"}})
	s.Require().NoError(err)
	s.Require().Len(res.Accepted, 1)
	s.Equal("import_id-2", res.Accepted[0].ID)
	s.Equal("2026-11-15", res.Accepted[0].Delivery45)

	orders := s.st.Load(s.ctx)
	s.Require().Len(orders, 2)
	s.Equal("№0001", orders[0].Number, "импорт дописывает в конец")
	s.Equal("№0009", orders[1].Number)
	s.Equal(service.EventImported, s.events[0].Kind)
}

func (s *ServiceSuite) TestImportFromClipboardErrors() {
	var ferr *models.ImportFormatError

	_, err := s.svc.ImportFromClipboard(s.ctx)
	s.True(errors.As(err, &ferr), "пустой буфер")

	s.clip.Text = "привет"
	_, err = s.svc.ImportFromClipboard(s.ctx)
	s.Require().True(errors.As(err, &ferr))
	s.Equal("Скопируй данные с исходного устройства", ferr.Message)

	s.clip.Text = `{"count": 1}`
	_, err = s.svc.ImportFromClipboard(s.ctx)
	s.Require().True(errors.As(err, &ferr))
	s.Equal("Неверный формат", ferr.Message)

	s.Empty(s.st.Load(s.ctx))
}

func (s *ServiceSuite) TestSyncRoundTrip() {
	_, err := s.svc.CreateOrder(s.ctx, form("№0001", "Кружка"))
	s.Require().NoError(err)
	_, err = s.svc.CreateOrder(s.ctx, form("№0002", "Чайник"))
	s.Require().NoError(err)

	sy := syncer.New(syncer.Config{Device: "Windows"}, s.st, nil, syncer.NewClipboardSink(s.clip))
	defer sy.Shutdown()
	snap, err := sy.RunNow(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, snap.Count)

	// то же хранилище: всё отклоняется как дубликаты
	res, err := s.svc.ImportFromClipboard(s.ctx)
	s.Require().NoError(err)
	s.Empty(res.Accepted)
	s.Equal(2, res.RejectedCount)

	// чистое хранилище на другом устройстве
	blobs, err := storage.NewFileBlobStore(s.T().TempDir())
	s.Require().NoError(err)
	fresh := storage.New(blobs, "", nil)
	other := s.newService(fresh, &clipboard.Memory{Text: s.clip.Text})
	res, err = other.ImportFromClipboard(s.ctx)
	s.Require().NoError(err)
	s.Len(res.Accepted, 2)
	s.Len(fresh.Load(s.ctx), 2)
}

func (s *ServiceSuite) TestTotalAndExportTable() {
	f := form("№0001", "Кружка")
	f.Items = append(f.Items, models.ItemInput{Name: "Чайник", Price: 1999.99})
	_, err := s.svc.CreateOrder(s.ctx, f)
	s.Require().NoError(err)

	total, count := s.svc.Total(s.ctx)
	s.Equal("2099.99", total.String())
	s.Equal(1, count)

	dir := s.T().TempDir()
	path, err := s.svc.ExportTable(s.ctx, dir)
	s.Require().NoError(err)
	s.True(strings.HasSuffix(path, "заказы_2026-10-18.csv"))
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(data), `"Кружка (100₽), Чайник (1999.99₽)"`)
}

func (s *ServiceSuite) TestExportEmpty() {
	_, err := s.svc.ExportTable(s.ctx, s.T().TempDir())
	s.ErrorIs(err, models.ErrNoOrders)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// blockingBlobs держит Put, пока тест не отпустит release.
type blockingBlobs struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBlobs) Get(context.Context, string) ([]byte, error) {
	return nil, storage.ErrBlobNotFound
}

func (b *blockingBlobs) Put(context.Context, string, []byte) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestSubmissionGuard(t *testing.T) {
	blobs := &blockingBlobs{entered: make(chan struct{}), release: make(chan struct{})}
	svc := service.NewOrderService(service.Deps{
		Storage: storage.New(blobs, "", nil),
		Now:     func() time.Time { return today },
	})
	ctx := context.Background()

	done := make(chan error)
	go func() {
		_, err := svc.CreateOrder(ctx, form("№0001", "Кружка"))
		done <- err
	}()
	<-blobs.entered

	_, err := svc.CreateOrder(ctx, form("№0002", "Чайник"))
	assert.ErrorIs(t, err, models.ErrSubmissionInProgress)
	_, err = svc.UpdateOrder(ctx, "x", form("№0002", "Чайник"))
	assert.ErrorIs(t, err, models.ErrSubmissionInProgress)

	close(blobs.release)
	require.NoError(t, <-done)

	go func() { <-blobs.entered }()
	_, err = svc.CreateOrder(ctx, form("№0002", "Чайник"))
	assert.NoError(t, err, "после завершения можно отправлять снова")
}

func TestPersistenceErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	blobs, err := storage.NewFileBlobStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	if os.Geteuid() == 0 {
		t.Skip("root пишет в каталог без прав")
	}

	svc := service.NewOrderService(service.Deps{Storage: storage.New(blobs, "", nil)})
	_, err = svc.CreateOrder(context.Background(), form("№0001", "Кружка"))
	var perr *models.PersistenceError
	assert.True(t, errors.As(err, &perr))
}
