package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.ozon.dev/qwestard/umishka/internal/export"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

type OrderSource interface {
	Load(ctx context.Context) []*models.Order
}

type Config struct {
	Delay  time.Duration
	Device string
}

// Syncer builds a sync snapshot and hands it to every sink. Schedule is
// the post-mutation trigger: it never blocks and never reports failures
// to the caller.
type Syncer struct {
	source OrderSource
	sinks  []Sink
	delay  time.Duration
	device string
	log    *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func New(cfg Config, source OrderSource, log *zap.Logger, sinks ...Sink) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		source: source,
		sinks:  sinks,
		delay:  cfg.Delay,
		device: cfg.Device,
		log:    log,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithClock подменяет часы для отметки времени снимка.
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// Schedule откладывает синхронизацию на delay. Повторный вызов до
// срабатывания переносит запуск, так что серия правок даёт один снимок.
func (s *Syncer) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil && s.timer.Stop() {
		s.timer.Reset(s.delay)
		return
	}
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *Syncer) fire() {
	defer s.wg.Done()
	if _, err := s.RunNow(s.ctx); err != nil {
		if errors.Is(err, models.ErrNoOrders) {
			s.log.Debug("deferred sync skipped: no orders")
			return
		}
		s.log.Warn("deferred sync failed", zap.Error(err))
	}
}

// RunNow синхронизирует сразу. Пустое хранилище - ErrNoOrders, ничего не пишется.
func (s *Syncer) RunNow(ctx context.Context) (models.Snapshot, error) {
	orders := s.source.Load(ctx)
	if len(orders) == 0 {
		return models.Snapshot{}, models.ErrNoOrders
	}

	snap := export.NewSnapshot(orders, s.device, s.now())
	data, err := export.EncodeSnapshot(snap)
	if err != nil {
		return snap, err
	}

	var errs error
	for _, sink := range s.sinks {
		if err := ctx.Err(); err != nil {
			return snap, err
		}
		if err := sink.Deliver(ctx, snap, data); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		s.log.Debug("snapshot delivered", zap.String("sink", sink.Name()), zap.Int("count", snap.Count))
	}
	return snap, errs
}

// Shutdown отменяет отложенный запуск и ждёт уже идущий.
func (s *Syncer) Shutdown() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
