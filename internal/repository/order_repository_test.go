package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"github.com/kyungseok/order-shop-go/internal/testdb"
)

type fixture struct {
	db         *sql.DB
	memberRepo repository.MemberRepository
	itemRepo   repository.ItemRepository
	orderRepo  repository.OrderRepository
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t)
	return &fixture{
		db:         db,
		memberRepo: repository.NewMemberRepository(db),
		itemRepo:   repository.NewItemRepository(db),
		orderRepo:  repository.NewOrderRepository(db),
	}
}

func (f *fixture) inTx(t *testing.T, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := f.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, fn(tx))
	require.NoError(t, tx.Commit())
}

// placeOrder 회원/상품 저장부터 주문 저장까지 한 번에 수행하는 테스트 헬퍼
func (f *fixture) placeOrder(t *testing.T, memberName string, lines ...int) *domain.Order {
	t.Helper()
	ctx := context.Background()

	member := domain.NewMember(memberName, domain.NewAddress("서울", "광명사거리", "20315"))
	f.inTx(t, func(tx *sql.Tx) error {
		return f.memberRepo.SaveTx(ctx, tx, member)
	})

	orderItems := make([]*domain.OrderItem, 0, len(lines))
	for i, count := range lines {
		book := domain.NewBook("BOOK", 10000*(i+1), 100, "김영한", "isbn")
		f.inTx(t, func(tx *sql.Tx) error {
			return f.itemRepo.SaveTx(ctx, tx, book)
		})

		orderItem, err := domain.NewOrderItem(book, book.Price, count)
		require.NoError(t, err)
		orderItems = append(orderItems, orderItem)
	}

	order, err := domain.CreateOrder(member, domain.NewDelivery(member.Address), orderItems...)
	require.NoError(t, err)

	f.inTx(t, func(tx *sql.Tx) error {
		return f.orderRepo.SaveTx(ctx, tx, order)
	})
	return order
}

func TestOrderRepository_SaveAndFindOne(t *testing.T) {
	f := newFixture(t)
	saved := f.placeOrder(t, "userA", 1, 2)

	require.NotZero(t, saved.ID)
	require.NotZero(t, saved.DeliveryID)

	found, err := f.orderRepo.FindOne(context.Background(), saved.ID)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, found.ID)
	assert.Equal(t, domain.OrderStatusOrder, found.Status)
	require.NotNil(t, found.Member)
	assert.Equal(t, "userA", found.Member.Name)
	require.NotNil(t, found.Delivery)
	assert.Equal(t, domain.DeliveryStatusReady, found.Delivery.Status)
	require.Len(t, found.OrderItems, 2)
	assert.Equal(t, 10000*1+20000*2, found.TotalPrice())
	for _, orderItem := range found.OrderItems {
		require.NotNil(t, orderItem.Item)
	}
}

func TestOrderRepository_FindOne_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.orderRepo.FindOne(context.Background(), 9999)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestOrderRepository_FindAllByCriteria(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orderA := f.placeOrder(t, "userA", 1)
	orderB := f.placeOrder(t, "userB", 2)

	// 취소된 주문 하나 준비
	found, err := f.orderRepo.FindOne(ctx, orderB.ID)
	require.NoError(t, err)
	require.NoError(t, found.Cancel())
	f.inTx(t, func(tx *sql.Tx) error {
		return f.orderRepo.UpdateStatusTx(ctx, tx, found)
	})

	all, err := f.orderRepo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byName, err := f.orderRepo.FindAllByCriteria(ctx, domain.OrderSearch{MemberName: "userA"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, orderA.ID, byName[0].ID)

	// 부분 일치
	partial, err := f.orderRepo.FindAllByCriteria(ctx, domain.OrderSearch{MemberName: "user"})
	require.NoError(t, err)
	assert.Len(t, partial, 2)

	canceled, err := f.orderRepo.FindAllByCriteria(ctx, domain.OrderSearch{Status: domain.OrderStatusCancel})
	require.NoError(t, err)
	require.Len(t, canceled, 1)
	assert.Equal(t, orderB.ID, canceled[0].ID)

	both, err := f.orderRepo.FindAllByCriteria(ctx, domain.OrderSearch{
		MemberName: "userA",
		Status:     domain.OrderStatusCancel,
	})
	require.NoError(t, err)
	assert.Empty(t, both)
}

func TestOrderRepository_UpdateStatusTx_VersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saved := f.placeOrder(t, "userA", 1)

	// 같은 버전으로 두 번 로드 (동시 취소 상황)
	first, err := f.orderRepo.FindOne(ctx, saved.ID)
	require.NoError(t, err)
	second, err := f.orderRepo.FindOne(ctx, saved.ID)
	require.NoError(t, err)

	require.NoError(t, first.Cancel())
	f.inTx(t, func(tx *sql.Tx) error {
		return f.orderRepo.UpdateStatusTx(ctx, tx, first)
	})

	require.NoError(t, second.Cancel())
	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = f.orderRepo.UpdateStatusTx(ctx, tx, second)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict))
}

func TestItemRepository_UpdateStockTx_VersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := domain.NewBook("BOOK", 10000, 10, "김영한", "isbn")
	f.inTx(t, func(tx *sql.Tx) error {
		return f.itemRepo.SaveTx(ctx, tx, book)
	})

	first, err := f.itemRepo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	second, err := f.itemRepo.FindByID(ctx, book.ID)
	require.NoError(t, err)

	require.NoError(t, first.RemoveStock(3))
	f.inTx(t, func(tx *sql.Tx) error {
		return f.itemRepo.UpdateStockTx(ctx, tx, first)
	})

	require.NoError(t, second.RemoveStock(5))
	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)

	err = f.itemRepo.UpdateStockTx(ctx, tx, second)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict))
	// 단일 커넥션 테스트 DB 이므로 조회 전에 트랜잭션을 닫아 커넥션을 돌려준다
	require.NoError(t, tx.Rollback())

	// 성공한 쪽만 반영되어야 한다
	current, err := f.itemRepo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, current.StockQuantity)
}
