package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/common/logger"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"github.com/kyungseok/order-shop-go/internal/testdb"
	"github.com/kyungseok/order-shop-go/internal/worker"
)

type published struct {
	topic string
	key   string
}

// fakePublisher 발행 호출을 기록하는 테스트 더블
type fakePublisher struct {
	mu     sync.Mutex
	calls  []published
	failOn map[string]bool
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[topic] {
		return errors.New(errors.ErrCodeDatabaseError, "broker unavailable")
	}
	p.calls = append(p.calls, published{topic: topic, key: key})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestOutboxWorker_Process(t *testing.T) {
	db := testdb.Open(t)
	outboxRepo := repository.NewOutboxRepository(db)
	ctx := context.Background()

	insert := func(aggregateID int64, eventType string) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, outboxRepo.InsertTx(ctx, tx, &repository.OutboxEvent{
			AggregateType: "order",
			AggregateID:   aggregateID,
			EventType:     eventType,
			Payload:       []byte(`{"orderId":1}`),
		}))
		require.NoError(t, tx.Commit())
	}

	insert(42, "order.placed.v1")
	insert(42, "order.canceled.v1")

	publisher := &fakePublisher{}
	w := worker.NewOutboxWorker(outboxRepo, publisher, logger.NewTestLogger(), time.Second)

	require.NoError(t, w.Process(ctx))

	require.Len(t, publisher.calls, 2)
	assert.Equal(t, "order.placed.v1", publisher.calls[0].topic)
	assert.Equal(t, "order.canceled.v1", publisher.calls[1].topic)
	// 같은 애그리거트의 이벤트는 같은 파티션 키를 받는다
	assert.Equal(t, "42", publisher.calls[0].key)
	assert.Equal(t, "42", publisher.calls[1].key)

	pending, err := outboxRepo.FindPending(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxWorker_FailedEventStaysPending(t *testing.T) {
	db := testdb.Open(t)
	outboxRepo := repository.NewOutboxRepository(db)
	ctx := context.Background()

	insert := func(eventType string) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, outboxRepo.InsertTx(ctx, tx, &repository.OutboxEvent{
			AggregateType: "order",
			AggregateID:   1,
			EventType:     eventType,
			Payload:       []byte(`{}`),
		}))
		require.NoError(t, tx.Commit())
	}

	insert("order.placed.v1")
	insert("order.canceled.v1")

	publisher := &fakePublisher{failOn: map[string]bool{"order.placed.v1": true}}
	w := worker.NewOutboxWorker(outboxRepo, publisher, logger.NewTestLogger(), time.Second)

	require.NoError(t, w.Process(ctx))

	// 실패한 이벤트는 PENDING 으로 남아 다음 배치에서 재시도된다
	pending, err := outboxRepo.FindPending(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "order.placed.v1", pending[0].EventType)

	require.Len(t, publisher.calls, 1)
	assert.Equal(t, "order.canceled.v1", publisher.calls[0].topic)
}
