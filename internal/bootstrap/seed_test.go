package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/order-shop-go/common/logger"
	"github.com/kyungseok/order-shop-go/internal/bootstrap"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"github.com/kyungseok/order-shop-go/internal/testdb"
)

func TestSeeder_Seed(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	memberRepo := repository.NewMemberRepository(db)
	itemRepo := repository.NewItemRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	seeder := bootstrap.NewSeeder(db, memberRepo, itemRepo, orderRepo, logger.NewTestLogger())

	require.NoError(t, seeder.Seed(ctx))

	members, err := memberRepo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "userA", members[0].Name)
	assert.Equal(t, "userB", members[1].Name)

	items, err := itemRepo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	// 주문 수량만큼 재고가 차감된 상태여야 한다
	assert.Equal(t, 99, items[0].StockQuantity)
	assert.Equal(t, 98, items[1].StockQuantity)
	assert.Equal(t, 197, items[2].StockQuantity)
	assert.Equal(t, 296, items[3].StockQuantity)

	orders, err := orderRepo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first, err := orderRepo.FindOne(ctx, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10000*1+20000*2, first.TotalPrice())

	// 멱등: 다시 실행해도 데이터가 늘지 않는다
	require.NoError(t, seeder.Seed(ctx))
	members, err = memberRepo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
