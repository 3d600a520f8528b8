package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gitlab.ozon.dev/qwestard/umishka/internal/clipboard"
	"gitlab.ozon.dev/qwestard/umishka/internal/export"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

// Sink получает готовый снимок. data - ровно тот текст, что уходит в буфер обмена.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, snap models.Snapshot, data []byte) error
}

// FileSink пишет umishka_<дата>.json в каталог выгрузки.
type FileSink struct {
	dir string
	now func() time.Time
}

func NewFileSink(dir string, now func() time.Time) *FileSink {
	if now == nil {
		now = time.Now
	}
	return &FileSink{dir: dir, now: now}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Deliver(_ context.Context, _ models.Snapshot, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.dir, export.SnapshotFileName(s.now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

type ClipboardSink struct {
	cb clipboard.Clipboard
}

func NewClipboardSink(cb clipboard.Clipboard) *ClipboardSink {
	return &ClipboardSink{cb: cb}
}

func (s *ClipboardSink) Name() string { return "clipboard" }

func (s *ClipboardSink) Deliver(_ context.Context, _ models.Snapshot, data []byte) error {
	return s.cb.WriteText(string(data))
}

type Publisher interface {
	Publish(topic, key string, message []byte) error
}

// KafkaSink публикует снимок в топик, ключ - имя устройства.
type KafkaSink struct {
	pub   Publisher
	topic string
}

func NewKafkaSink(pub Publisher, topic string) *KafkaSink {
	return &KafkaSink{pub: pub, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(_ context.Context, snap models.Snapshot, data []byte) error {
	return s.pub.Publish(s.topic, snap.Device, data)
}
