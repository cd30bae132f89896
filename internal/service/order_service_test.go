package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/common/events"
	"github.com/kyungseok/order-shop-go/common/logger"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"github.com/kyungseok/order-shop-go/internal/service"
	"github.com/kyungseok/order-shop-go/internal/testdb"
)

type serviceFixture struct {
	db         *sql.DB
	memberRepo repository.MemberRepository
	itemRepo   repository.ItemRepository
	orderRepo  repository.OrderRepository
	outboxRepo repository.OutboxRepository

	members service.MemberService
	items   service.ItemService
	orders  service.OrderService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	db := testdb.Open(t)
	log := logger.NewTestLogger()

	f := &serviceFixture{
		db:         db,
		memberRepo: repository.NewMemberRepository(db),
		itemRepo:   repository.NewItemRepository(db),
		orderRepo:  repository.NewOrderRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
	}
	f.members = service.NewMemberService(db, f.memberRepo, f.outboxRepo, log)
	f.items = service.NewItemService(db, f.itemRepo, log)
	f.orders = service.NewOrderService(db, f.memberRepo, f.itemRepo, f.orderRepo, f.outboxRepo, log)
	return f
}

func (f *serviceFixture) registerMember(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.members.Register(context.Background(), name,
		domain.NewAddress("서울", "광명사거리", "20315"))
	require.NoError(t, err)
	return id
}

func (f *serviceFixture) saveBook(t *testing.T, name string, price, stock int) int64 {
	t.Helper()
	id, err := f.items.SaveItem(context.Background(),
		domain.NewBook(name, price, stock, "김영한", "isbn"))
	require.NoError(t, err)
	return id
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	memberID := f.registerMember(t, "userA")
	bookID := f.saveBook(t, "JPA BOOK", 10000, 10)

	orderID, err := f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: bookID, Count: 2})
	require.NoError(t, err)
	require.NotZero(t, orderID)

	order, err := f.orders.FindOne(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOrder, order.Status)
	assert.Equal(t, 20000, order.TotalPrice())
	require.Len(t, order.OrderItems, 1)
	// 주문 가격은 주문 당시 상품 가격으로 고정된다
	assert.Equal(t, 10000, order.OrderItems[0].OrderPrice)

	item, err := f.items.FindOne(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 8, item.StockQuantity)
}

func TestOrderService_PlaceOrder_MultipleLines(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	memberID := f.registerMember(t, "userA")
	book1 := f.saveBook(t, "JPA1 BOOK", 10000, 100)
	book2 := f.saveBook(t, "JPA2 BOOK", 20000, 100)

	orderID, err := f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: book1, Count: 1},
		service.OrderLineCommand{ItemID: book2, Count: 2})
	require.NoError(t, err)

	order, err := f.orders.FindOne(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, 50000, order.TotalPrice())
}

func TestOrderService_PlaceOrder_OutOfStock(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	memberID := f.registerMember(t, "userA")
	bookID := f.saveBook(t, "JPA BOOK", 10000, 5)

	_, err := f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: bookID, Count: 6})
	assert.True(t, errors.HasCode(err, errors.ErrCodeOutOfStock))

	// 실패한 주문은 아무 것도 남기지 않는다
	item, err := f.items.FindOne(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 5, item.StockQuantity)

	all, err := f.orders.FindOrders(ctx, domain.OrderSearch{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOrderService_PlaceOrder_Validation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	memberID := f.registerMember(t, "userA")
	bookID := f.saveBook(t, "JPA BOOK", 10000, 5)

	_, err := f.orders.PlaceOrder(ctx, memberID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))

	_, err = f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: bookID, Count: 0})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))

	_, err = f.orders.PlaceOrder(ctx, 9999,
		service.OrderLineCommand{ItemID: bookID, Count: 1})
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	_, err = f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: 9999, Count: 1})
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestOrderService_CancelOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	memberID := f.registerMember(t, "userA")
	bookID := f.saveBook(t, "JPA BOOK", 10000, 10)

	orderID, err := f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: bookID, Count: 3})
	require.NoError(t, err)

	require.NoError(t, f.orders.CancelOrder(ctx, orderID))

	order, err := f.orders.FindOne(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancel, order.Status)

	item, err := f.items.FindOne(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 10, item.StockQuantity)
}

func TestOrderService_CancelOrder_Twice(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	memberID := f.registerMember(t, "userA")
	bookID := f.saveBook(t, "JPA BOOK", 10000, 10)

	orderID, err := f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: bookID, Count: 3})
	require.NoError(t, err)

	require.NoError(t, f.orders.CancelOrder(ctx, orderID))
	err = f.orders.CancelOrder(ctx, orderID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAlreadyCanceled))

	// 재고가 두 번 원복되면 안 된다
	item, err := f.items.FindOne(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 10, item.StockQuantity)
}

func TestOrderService_OutboxEvents(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	memberID := f.registerMember(t, "userA")
	bookID := f.saveBook(t, "JPA BOOK", 10000, 10)

	orderID, err := f.orders.PlaceOrder(ctx, memberID,
		service.OrderLineCommand{ItemID: bookID, Count: 2})
	require.NoError(t, err)
	require.NoError(t, f.orders.CancelOrder(ctx, orderID))

	pending, err := f.outboxRepo.FindPending(ctx, 100)
	require.NoError(t, err)
	// member.registered, order.placed, order.canceled
	require.Len(t, pending, 3)

	assert.Equal(t, string(events.EventMemberRegistered), pending[0].EventType)
	assert.Equal(t, string(events.EventOrderPlaced), pending[1].EventType)
	assert.Equal(t, string(events.EventOrderCanceled), pending[2].EventType)

	var placed events.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(pending[1].Payload, &placed))
	assert.Equal(t, orderID, placed.OrderID)
	assert.Equal(t, memberID, placed.MemberID)
	assert.Equal(t, 20000, placed.TotalPrice)
	require.Len(t, placed.Lines, 1)
	assert.Equal(t, bookID, placed.Lines[0].ItemID)
	assert.NotEmpty(t, placed.EventID)
	assert.NotEmpty(t, placed.CorrelationID)
}

func TestMemberService_Register_Duplicate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.registerMember(t, "userA")

	_, err := f.members.Register(ctx, "userA", domain.Address{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDuplicateMember))

	_, err = f.members.Register(ctx, "", domain.Address{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func TestMemberService_Update(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	id := f.registerMember(t, "userA")
	require.NoError(t, f.members.Update(ctx, id, "userA2",
		domain.NewAddress("인천", "센트럴로", "30595")))

	member, err := f.members.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "userA2", member.Name)
	assert.Equal(t, "인천", member.Address.City)
}

func TestItemService_UpdateBook(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	id := f.saveBook(t, "JPA BOOK", 10000, 10)
	require.NoError(t, f.items.UpdateBook(ctx, id, "JPA BOOK 2판", 12000, 20, "김영한", "isbn-2"))

	item, err := f.items.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "JPA BOOK 2판", item.Name)
	assert.Equal(t, 12000, item.Price)
	assert.Equal(t, 20, item.StockQuantity)
	assert.Equal(t, "isbn-2", item.ISBN)

	err = f.items.UpdateBook(ctx, id, "x", 1, -1, "", "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))
}
