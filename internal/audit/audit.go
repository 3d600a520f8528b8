package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Record - одна запись журнала изменений списка заказов.
type Record struct {
	Timestamp time.Time
	Kind      string
	OrderIDs  []string
	Device    string
}

type PoolConfig struct {
	BatchSize   int
	Timeout     time.Duration
	ChannelSize int
}

type Processor interface {
	Process(ctx context.Context, batch []Record) error
}

// DBProcessor пишет пачку одним INSERT в order_events.
type DBProcessor struct {
	db *sql.DB
}

func NewDBProcessor(db *sql.DB) *DBProcessor {
	return &DBProcessor{db: db}
}

func (p *DBProcessor) Process(ctx context.Context, batch []Record) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_events (ts, kind, order_ids, device) VALUES `)

	params := make([]any, 0, len(batch)*4)
	for i, rec := range batch {
		if i > 0 {
			sb.WriteString(",")
		}
		n := i * 4
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4))
		params = append(params, rec.Timestamp, rec.Kind, pq.Array(rec.OrderIDs), rec.Device)
	}
	if _, err := p.db.ExecContext(ctx, sb.String(), params...); err != nil {
		return fmt.Errorf("DBProcessor error: %w", err)
	}
	return nil
}

// LogProcessor пишет журнал в лог, Filter оставляет только записи нужного вида.
type LogProcessor struct {
	log    *zap.Logger
	Filter string
}

func NewLogProcessor(log *zap.Logger) *LogProcessor {
	return &LogProcessor{log: log}
}

func (p *LogProcessor) Process(_ context.Context, batch []Record) error {
	for _, rec := range batch {
		if p.Filter != "" && !strings.EqualFold(rec.Kind, p.Filter) {
			continue
		}
		p.log.Info("order journal",
			zap.Time("ts", rec.Timestamp),
			zap.String("kind", rec.Kind),
			zap.Strings("ids", rec.OrderIDs),
			zap.String("device", rec.Device),
		)
	}
	return nil
}

// WorkerPool копит записи и отдаёт их процессорам пачками: по размеру или по таймауту.
type WorkerPool struct {
	inputCh    chan Record
	processors []Processor
	batchSize  int
	timeout    time.Duration
	log        *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorkerPool(cfg PoolConfig, log *zap.Logger, processors ...Processor) *WorkerPool {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		inputCh:    make(chan Record, cfg.ChannelSize),
		processors: processors,
		batchSize:  cfg.BatchSize,
		timeout:    cfg.Timeout,
		log:        log,
	}
}

func (p *WorkerPool) Start(ctx context.Context, numWorkers int) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker(ctx)
		}()
	}
}

func (p *WorkerPool) worker(ctx context.Context) {
	var batch []Record
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			// дочитываем то, что уже лежит в канале
		drain:
			for {
				select {
				case rec := <-p.inputCh:
					batch = append(batch, rec)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				p.processBatch(batch)
			}
			return
		case rec := <-p.inputCh:
			batch = append(batch, rec)
			if len(batch) >= p.batchSize {
				if !timer.Stop() {
					<-timer.C
				}
				p.processBatch(batch)
				batch = nil
				timer.Reset(p.timeout)
			}
		case <-timer.C:
			if len(batch) > 0 {
				p.processBatch(batch)
				batch = nil
			}
			timer.Reset(p.timeout)
		}
	}
}

func (p *WorkerPool) processBatch(batch []Record) {
	// контекст воркера к этому моменту может быть уже отменён
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, proc := range p.processors {
		if err := proc.Process(ctx, batch); err != nil {
			p.log.Error("journal batch failed", zap.Int("size", len(batch)), zap.Error(err))
		}
	}
}

// Log не блокирует: при переполненном канале запись теряется.
func (p *WorkerPool) Log(rec Record) {
	select {
	case p.inputCh <- rec:
	default:
		p.log.Warn("journal channel full, dropping record", zap.String("kind", rec.Kind))
	}
}

func (p *WorkerPool) Shutdown() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
