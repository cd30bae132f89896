package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/common/events"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"go.uber.org/zap"
)

// OrderLineCommand 주문 상품 한 줄 요청
type OrderLineCommand struct {
	ItemID int64
	Count  int
}

// OrderService 주문 서비스 인터페이스
type OrderService interface {
	PlaceOrder(ctx context.Context, memberID int64, lines ...OrderLineCommand) (int64, error)
	CancelOrder(ctx context.Context, orderID int64) error
	FindOne(ctx context.Context, orderID int64) (*domain.Order, error)
	FindOrders(ctx context.Context, search domain.OrderSearch) ([]*domain.Order, error)
}

type orderService struct {
	db         *sql.DB
	memberRepo repository.MemberRepository
	itemRepo   repository.ItemRepository
	orderRepo  repository.OrderRepository
	outboxRepo repository.OutboxRepository
	logger     *zap.Logger
}

// NewOrderService 주문 서비스 생성
func NewOrderService(
	db *sql.DB,
	memberRepo repository.MemberRepository,
	itemRepo repository.ItemRepository,
	orderRepo repository.OrderRepository,
	outboxRepo repository.OutboxRepository,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		db:         db,
		memberRepo: memberRepo,
		itemRepo:   itemRepo,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// PlaceOrder 주문 생성 (Outbox 패턴 적용)
//
// 재고 차감은 도메인(NewOrderItem)에서 일어나고, 영속화는 버전 조건부
// UPDATE 로 수행된다. 동시 주문이 같은 상품을 차감하면 한쪽은 CONFLICT 로
// 실패하고 트랜잭션이 롤백되므로 재고가 음수로 내려가지 않는다.
func (s *orderService) PlaceOrder(ctx context.Context, memberID int64, lines ...OrderLineCommand) (int64, error) {
	if len(lines) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidOrder, "order requires at least one line")
	}

	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return 0, err
	}

	// 같은 상품을 여러 줄로 주문해도 한 번만 로드해 같은 객체에 차감한다.
	itemCache := make(map[int64]*domain.Item)
	orderItems := make([]*domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, ok := itemCache[line.ItemID]
		if !ok {
			item, err = s.itemRepo.FindByID(ctx, line.ItemID)
			if err != nil {
				return 0, err
			}
			itemCache[line.ItemID] = item
		}

		orderItem, err := domain.NewOrderItem(item, item.Price, line.Count)
		if err != nil {
			return 0, err
		}
		orderItems = append(orderItems, orderItem)
	}

	delivery := domain.NewDelivery(member.Address)
	order, err := domain.CreateOrder(member, delivery, orderItems...)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.orderRepo.SaveTx(ctx, tx, order); err != nil {
		return 0, err
	}
	for _, item := range itemCache {
		if err := s.itemRepo.UpdateStockTx(ctx, tx, item); err != nil {
			return 0, err
		}
	}

	if err := s.insertOrderPlacedEvent(ctx, tx, order); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	s.logger.Info("order placed",
		zap.Int64("orderId", order.ID),
		zap.Int64("memberId", memberID),
		zap.Int("totalPrice", order.TotalPrice()))

	return order.ID, nil
}

// CancelOrder 주문 취소. 상태를 CANCEL 로 전이하고 차감했던 재고를 되돌린다.
// 주문/상품 모두 버전 조건부 UPDATE 이므로 동시 취소는 한쪽만 성공한다.
func (s *orderService) CancelOrder(ctx context.Context, orderID int64) error {
	order, err := s.orderRepo.FindOne(ctx, orderID)
	if err != nil {
		return err
	}

	if err := order.Cancel(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order); err != nil {
		return err
	}

	// 같은 상품이 여러 줄에 걸쳐 있으면 도메인에서 누적 원복된 상태이므로
	// 상품 당 한 번만 저장한다.
	saved := make(map[int64]bool)
	for _, orderItem := range order.OrderItems {
		if saved[orderItem.ItemID] {
			continue
		}
		saved[orderItem.ItemID] = true
		if err := s.itemRepo.UpdateStockTx(ctx, tx, orderItem.Item); err != nil {
			return err
		}
	}

	if err := s.insertOrderCanceledEvent(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	s.logger.Info("order canceled",
		zap.Int64("orderId", order.ID),
		zap.Int("restoredLines", len(order.OrderItems)))

	return nil
}

// FindOne 주문 단건 조회 (애그리거트 전체 로드)
func (s *orderService) FindOne(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.orderRepo.FindOne(ctx, orderID)
}

// FindOrders 검색 조건으로 주문 루트 조회
func (s *orderService) FindOrders(ctx context.Context, search domain.OrderSearch) ([]*domain.Order, error) {
	return s.orderRepo.FindAllByCriteria(ctx, search)
}

func (s *orderService) insertOrderPlacedEvent(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	event := events.OrderPlacedEvent{
		BaseEvent:  newBaseEvent(events.EventOrderPlaced),
		OrderID:    order.ID,
		MemberID:   order.MemberID,
		TotalPrice: order.TotalPrice(),
		Lines:      orderLines(order),
	}
	return s.insertOutbox(ctx, tx, order.ID, events.EventOrderPlaced, event)
}

func (s *orderService) insertOrderCanceledEvent(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	event := events.OrderCanceledEvent{
		BaseEvent: newBaseEvent(events.EventOrderCanceled),
		OrderID:   order.ID,
		MemberID:  order.MemberID,
		Restored:  orderLines(order),
	}
	return s.insertOutbox(ctx, tx, order.ID, events.EventOrderCanceled, event)
}

func (s *orderService) insertOutbox(ctx context.Context, tx *sql.Tx, aggregateID int64, eventType events.EventType, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal event", err)
	}
	return s.outboxRepo.InsertTx(ctx, tx, &repository.OutboxEvent{
		AggregateType: "order",
		AggregateID:   aggregateID,
		EventType:     string(eventType),
		Payload:       payload,
	})
}

func newBaseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		SchemaVersion: 1,
		OccurredAt:    time.Now(),
		CorrelationID: uuid.New().String(),
	}
}

func orderLines(order *domain.Order) []events.OrderLine {
	lines := make([]events.OrderLine, 0, len(order.OrderItems))
	for _, orderItem := range order.OrderItems {
		lines = append(lines, events.OrderLine{
			ItemID:     orderItem.ItemID,
			OrderPrice: orderItem.OrderPrice,
			Count:      orderItem.Count,
		})
	}
	return lines
}
