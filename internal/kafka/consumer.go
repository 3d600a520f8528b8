package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"gitlab.ozon.dev/qwestard/umishka/internal/export"
	"gitlab.ozon.dev/qwestard/umishka/internal/merge"
	"gitlab.ozon.dev/qwestard/umishka/internal/models"
)

// Importer сливает заказы из чужого снимка с локальным списком.
type Importer interface {
	MergeImport(ctx context.Context, batch []models.SnapshotOrder) (merge.Result, error)
}

// SnapshotHandler принимает снимки других устройств из топика синхронизации.
// Свои снимки (ключ сообщения = имя устройства) пропускаются.
type SnapshotHandler struct {
	importer Importer
	device   string
	log      *zap.Logger
}

func NewSnapshotHandler(importer Importer, device string, log *zap.Logger) *SnapshotHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotHandler{importer: importer, device: device, log: log}
}

func (*SnapshotHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (*SnapshotHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *SnapshotHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		// битое сообщение всё равно помечаем, иначе оно будет приходить вечно
		_ = h.Handle(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

// Handle разбирает одно сообщение и сливает его заказы.
func (h *SnapshotHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if h.device != "" && string(msg.Key) == h.device {
		return nil
	}
	snap, err := export.DecodeSnapshot(msg.Value)
	if err != nil {
		h.log.Warn("bad snapshot message",
			zap.String("topic", msg.Topic), zap.Int64("offset", msg.Offset), zap.Error(err))
		return err
	}
	res, err := h.importer.MergeImport(ctx, snap.Orders)
	if err != nil {
		h.log.Error("snapshot merge failed", zap.String("from", snap.Device), zap.Error(err))
		return err
	}
	h.log.Info("snapshot received",
		zap.String("from", snap.Device),
		zap.Int("accepted", len(res.Accepted)),
		zap.Int("rejected", res.RejectedCount),
	)
	return nil
}

// StartConsumer читает топики группой groupID, пока не отменён ctx.
func StartConsumer(ctx context.Context, brokers []string, groupID string, topics []string, handler sarama.ConsumerGroupHandler, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Fetch.Max = 4 << 20

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumerGroup.Close(); err != nil {
			log.Warn("close consumer group", zap.Error(err))
		}
	}()

	for {
		if err := consumerGroup.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			log.Warn("consumer error", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
