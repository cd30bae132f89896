package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kyungseok/order-shop-go/common/messaging"
	"github.com/kyungseok/order-shop-go/common/retry"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"go.uber.org/zap"
)

// OutboxWorker Outbox 패턴 워커.
// PENDING 이벤트를 주기적으로 폴링해 브로커로 발행하고 SENT 로 표시한다.
// 발행과 표시 사이에 실패하면 같은 이벤트가 다시 발행될 수 있다. (at-least-once)
type OutboxWorker struct {
	outboxRepo repository.OutboxRepository
	publisher  messaging.Publisher
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
}

// NewOutboxWorker Outbox 워커 생성
func NewOutboxWorker(
	outboxRepo repository.OutboxRepository,
	publisher messaging.Publisher,
	logger *zap.Logger,
	interval time.Duration,
) *OutboxWorker {
	return &OutboxWorker{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
		interval:   interval,
		batchSize:  100,
	}
}

// Start 워커 시작. ctx 취소 시 종료된다.
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if err := w.Process(ctx); err != nil {
				w.logger.Error("failed to process outbox events", zap.Error(err))
			}
		}
	}
}

// Process PENDING 이벤트 한 배치를 발행한다.
func (w *OutboxWorker) Process(ctx context.Context) error {
	events, err := w.outboxRepo.FindPending(ctx, w.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	w.logger.Info("processing outbox events", zap.Int("count", len(events)))

	for _, event := range events {
		if err := w.publishEvent(ctx, event); err != nil {
			w.logger.Error("failed to publish event",
				zap.Int64("eventId", event.ID),
				zap.String("eventType", event.EventType),
				zap.Error(err))
			continue
		}

		if err := w.outboxRepo.MarkSent(ctx, event.ID); err != nil {
			w.logger.Error("failed to mark event as sent",
				zap.Int64("eventId", event.ID),
				zap.Error(err))
		}
	}

	return nil
}

func (w *OutboxWorker) publishEvent(ctx context.Context, event *repository.OutboxEvent) error {
	// 애그리거트 식별자를 파티션 키로 사용해 같은 주문의 이벤트 순서를 보존한다.
	return retry.Do(ctx, retry.DefaultConfig(), w.logger, func() error {
		return messaging.PublishWithAggregateID(
			ctx, w.publisher, event.EventType, event.AggregateID, json.RawMessage(event.Payload))
	})
}
