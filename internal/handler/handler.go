package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gitlab.ozon.dev/qwestard/umishka/internal/filter"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
	"gitlab.ozon.dev/qwestard/umishka/internal/service"
)

var ErrExit = errors.New("exit")

type Handler struct {
	svc       *service.OrderService
	out       io.Writer
	exportDir string
	commands  map[string]func(ctx context.Context, args []string) error
}

func New(svc *service.OrderService, out io.Writer, exportDir string) *Handler {
	h := &Handler{svc: svc, out: out, exportDir: exportDir}
	h.commands = map[string]func(context.Context, []string) error{
		"help":    h.printHelp,
		"exit":    h.handleExit,
		"new":     h.handleNew,
		"edit":    h.handleEdit,
		"delete":  h.handleDelete,
		"status":  h.handleStatus,
		"show":    h.handleShow,
		"list":    h.handleList,
		"find":    h.handleFind,
		"next":    h.handleNext,
		"sync":    h.handleSync,
		"import":  h.handleImport,
		"export":  h.handleExport,
		"total":   h.handleTotal,
		"suggest": h.handleSuggest,
	}
	return h
}

// Execute разбирает строку и выполняет команду. ErrExit - сигнал завершить цикл.
func (h *Handler) Execute(ctx context.Context, line string) error {
	parts, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return nil
	}
	fn, ok := h.commands[parts[0]]
	if !ok {
		return errors.New("неизвестная команда. Введите 'help' для справки")
	}
	return fn(ctx, parts[1:])
}

func (h *Handler) printf(format string, args ...any) {
	fmt.Fprintf(h.out, format, args...)
}

func (h *Handler) printHelp(context.Context, []string) error {
	h.printf(`Доступные команды:
  help
    - выводит справку
  exit
    - завершает программу
  new [number=№0001] item=название[:цена] [item=...] [client=...] [client=...] [comment=...]
    - новый заказ, номер по умолчанию следующий по порядку
  edit <id> [number=...] [date=ГГГГ-ММ-ДД] [item=...] [client=...] [comment=...]
    - изменить заказ, не указанные поля остаются прежними
  delete <id>
    - удалить заказ
  status <id> <товар №> <received|notified|issued|returned> [on|off]
    - отметить статус товара
  show <id>
    - карточка заказа
  list [date-desc|date-asc|number-desc|number-asc]
    - все заказы
  find [текст] [filter=all|new|ok|overdue14|overdue45|overdue|returned|received] [sort=...]
    - поиск и фильтр
  next
    - следующий номер заказа
  sync
    - выгрузить снимок в файл и буфер обмена
  import
    - загрузить заказы из буфера обмена
  export
    - таблица заказов в CSV
  total
    - сумма по всем товарам
  suggest <начало названия>
    - подсказки названий товаров
`)
	return nil
}

func (h *Handler) handleExit(context.Context, []string) error {
	h.printf("Выход из приложения.\n")
	return ErrExit
}

func (h *Handler) handleNew(ctx context.Context, args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	form, err := opts.form()
	if err != nil {
		return err
	}
	if form.Number == "" {
		form.Number = h.svc.NextNumber(ctx)
	}
	o, err := h.svc.CreateOrder(ctx, form)
	if err != nil {
		return err
	}
	h.printf("Заказ %s создан (id=%s), срок 14: %s, срок 45: %s\n", o.Number, o.ID, o.Delivery14, o.Delivery45)
	return nil
}

func (h *Handler) handleEdit(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("Формат: edit <id> [поле=значение ...]")
	}
	o, err := h.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	opts, err := parseOptions(args[1:])
	if err != nil {
		return err
	}
	form, err := opts.formFrom(o)
	if err != nil {
		return err
	}
	updated, err := h.svc.UpdateOrder(ctx, o.ID, form)
	if err != nil {
		return err
	}
	h.printf("Заказ %s обновлён, срок 14: %s, срок 45: %s\n", updated.Number, updated.Delivery14, updated.Delivery45)
	return nil
}

func (h *Handler) handleDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("Формат: delete <id>")
	}
	o, err := h.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	if err := h.svc.DeleteOrder(ctx, o.ID); err != nil {
		return err
	}
	h.printf("Заказ %s удалён\n", o.Number)
	return nil
}

func (h *Handler) handleStatus(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errors.New("Формат: status <id> <товар №> <статус> [on|off]")
	}
	o, err := h.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("номер товара: %w", err)
	}
	key, err := models.ParseStatusKey(args[2])
	if err != nil {
		return err
	}
	on := true
	if len(args) == 4 {
		switch args[3] {
		case "on":
		case "off":
			on = false
		default:
			return errors.New("ожидается on или off")
		}
	}
	updated, err := h.svc.SetItemStatus(ctx, o.ID, idx-1, key, on)
	if err != nil {
		return err
	}
	h.printf("%s: %s\n", updated.Number, h.svc.Classify(updated))
	return nil
}

func (h *Handler) handleShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("Формат: show <id>")
	}
	o, err := h.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	h.printOrder(o)
	return nil
}

func (h *Handler) handleList(ctx context.Context, args []string) error {
	mode := ""
	if len(args) > 0 {
		mode = args[0]
	}
	sortMode, err := filter.ParseSortMode(mode)
	if err != nil {
		return err
	}
	h.printRows(h.svc.Rows(ctx, sortMode))
	return nil
}

func (h *Handler) handleFind(ctx context.Context, args []string) error {
	var words []string
	category, sortMode := filter.CategoryAll, filter.SortDateDesc
	for _, a := range args {
		key, val, ok := strings.Cut(a, "=")
		var err error
		switch {
		case ok && key == "filter":
			category, err = filter.ParseCategory(val)
		case ok && key == "sort":
			sortMode, err = filter.ParseSortMode(val)
		default:
			words = append(words, a)
		}
		if err != nil {
			return err
		}
	}
	h.printRows(h.svc.Search(ctx, strings.Join(words, " "), category, sortMode))
	return nil
}

func (h *Handler) handleNext(ctx context.Context, _ []string) error {
	h.printf("%s\n", h.svc.NextNumber(ctx))
	return nil
}

func (h *Handler) handleSync(ctx context.Context, _ []string) error {
	snap, err := h.svc.SyncNow(ctx)
	if errors.Is(err, models.ErrNoOrders) {
		h.printf("📭 Нет заказов\n")
		return nil
	}
	if err != nil {
		return err
	}
	h.printf("✅ %d заказов выгружено (%s)\n", snap.Count, snap.Device)
	return nil
}

func (h *Handler) handleImport(ctx context.Context, _ []string) error {
	res, err := h.svc.ImportFromClipboard(ctx)
	if err != nil {
		return err
	}
	if res.Invalid > 0 {
		h.printf("⚠️ пропущено записей с неверной датой: %d\n", res.Invalid)
	}
	if len(res.Accepted) == 0 {
		h.printf("✅ Все заказы уже есть\n")
		return nil
	}
	h.printf("✅ +%d заказов! (дубликатов: %d)\n", len(res.Accepted), res.RejectedCount)
	return nil
}

func (h *Handler) handleExport(ctx context.Context, _ []string) error {
	path, err := h.svc.ExportTable(ctx, h.exportDir)
	if errors.Is(err, models.ErrNoOrders) {
		h.printf("Нет данных\n")
		return nil
	}
	if err != nil {
		return err
	}
	h.printf("Таблица сохранена: %s\n", path)
	return nil
}

func (h *Handler) handleTotal(ctx context.Context, _ []string) error {
	total, count := h.svc.Total(ctx)
	h.printf("💰 %s ₽ (%d заказов)\n", total.StringFixedBank(2), count)
	return nil
}

func (h *Handler) handleSuggest(_ context.Context, args []string) error {
	for _, n := range h.svc.Suggestions(strings.Join(args, " ")) {
		h.printf("%s\n", n)
	}
	return nil
}

// resolve находит заказ по полному id или по его окончанию (как в таблице).
func (h *Handler) resolve(ctx context.Context, ref string) (*models.Order, error) {
	var found *models.Order
	for _, o := range h.svc.ListOrders(ctx, filter.SortDateDesc) {
		if o.ID == ref {
			return o, nil
		}
		if strings.HasSuffix(o.ID, ref) {
			if found != nil {
				return nil, fmt.Errorf("id %q подходит к нескольким заказам", ref)
			}
			found = o
		}
	}
	if found == nil {
		return nil, models.ErrOrderNotFound
	}
	return found, nil
}
