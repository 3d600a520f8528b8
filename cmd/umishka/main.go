package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"gitlab.ozon.dev/qwestard/umishka/internal/audit"
	"gitlab.ozon.dev/qwestard/umishka/internal/cache"
	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
	"gitlab.ozon.dev/qwestard/umishka/internal/clipboard"
	"gitlab.ozon.dev/qwestard/umishka/internal/config"
	"gitlab.ozon.dev/qwestard/umishka/internal/db"
	"gitlab.ozon.dev/qwestard/umishka/internal/handler"
	"gitlab.ozon.dev/qwestard/umishka/internal/kafka"
	"gitlab.ozon.dev/qwestard/umishka/internal/logger"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
	"gitlab.ozon.dev/qwestard/umishka/internal/service"
	"gitlab.ozon.dev/qwestard/umishka/internal/storage"
	"gitlab.ozon.dev/qwestard/umishka/internal/syncer"
)

func main() {
	cfg := config.LoadConfig()

	zl, err := logger.NewZapLog(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cal, err := calendar.New(cfg.Holidays)
	if err != nil {
		zl.Fatal("bad holiday list", zap.Error(err))
	}

	blobs, database, closeBlobs, err := openBlobs(ctx, cfg)
	if err != nil {
		zl.Fatal("open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeBlobs()

	st := storage.New(blobs, cfg.StoreKey, zl)
	clip := clipboard.NewFileClipboard(cfg.ClipboardFile)

	sinks := []syncer.Sink{
		syncer.NewFileSink(filepath.Join(cfg.DataDir, "sync"), nil),
		syncer.NewClipboardSink(clip),
	}
	var prod *kafka.SaramaProducer
	if cfg.KafkaEnabled() {
		prod, err = kafka.NewSaramaProducer(cfg.KafkaBrokers, zl)
		if err != nil {
			zl.Warn("kafka unavailable, sync goes to file and clipboard only", zap.Error(err))
			prod = nil
		} else {
			defer prod.Close()
			sinks = append(sinks, syncer.NewKafkaSink(prod, cfg.KafkaTopic))
		}
	}
	sy := syncer.New(syncer.Config{Delay: cfg.SyncDelay, Device: cfg.Device}, st, zl, sinks...)
	defer sy.Shutdown()

	processors := []audit.Processor{audit.NewLogProcessor(zl)}
	if database != nil {
		processors = append(processors, audit.NewDBProcessor(database))
	}
	journal := audit.NewWorkerPool(audit.PoolConfig{
		BatchSize:   cfg.JournalBatchSize,
		Timeout:     cfg.JournalTimeout,
		ChannelSize: cfg.JournalBatchSize * 4,
	}, zl, processors...)
	journal.Start(ctx, 1)
	defer journal.Shutdown()

	svc := service.NewOrderService(service.Deps{
		Storage:   st,
		Calendar:  cal,
		Names:     cache.NewItemNamesCache(),
		Syncer:    sy,
		Clipboard: clip,
		Log:       zl,
	})
	svc.WarmUp(ctx)
	svc.Subscribe(func(ev service.Event) {
		journal.Log(audit.Record{Timestamp: time.Now().UTC(), Kind: string(ev.Kind), OrderIDs: ev.IDs, Device: cfg.Device})
	})

	if prod != nil {
		go func() {
			receiver := kafka.NewSnapshotHandler(svc, cfg.Device, zl)
			if err := kafka.StartConsumer(ctx, cfg.KafkaBrokers, cfg.KafkaGroup, []string{cfg.KafkaTopic}, receiver, zl); err != nil {
				zl.Warn("sync consumer stopped", zap.Error(err))
			}
		}()
	}

	h := handler.New(svc, os.Stdout, cfg.ExportDir)
	run(ctx, h)
}

// run - цикл чтения команд, как в консольке: строка, команда, результат.
func run(ctx context.Context, h *handler.Handler) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("Umishka: учёт заказов. Введите 'help' для справки.")
	for {
		fmt.Print("\n> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			err := h.Execute(ctx, line)
			if errors.Is(err, handler.ErrExit) {
				return
			}
			if err != nil {
				printError(err)
			}
		}
	}
}

func printError(err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		fmt.Printf("Ошибка в поле %s: %s\n", verr.Field, verr.Message)
		return
	}
	fmt.Printf("Ошибка: %v\n", err)
}

// openBlobs выбирает хранилище по STORE_BACKEND. *sql.DB не nil только для postgres.
func openBlobs(ctx context.Context, cfg *config.Config) (storage.BlobStore, *sql.DB, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		database, err := db.NewDB(cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return storage.NewPostgresBlobStore(database), database, func() { database.Close() }, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return storage.NewRedisBlobStore(client), nil, func() { client.Close() }, nil
	case config.BackendFile, "":
		blobs, err := storage.NewFileBlobStore(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return blobs, nil, func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
