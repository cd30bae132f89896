// Package bootstrap 는 로컬/데모 환경용 초기 데이터 적재를 제공한다.
package bootstrap

import (
	"context"
	"database/sql"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"go.uber.org/zap"
)

// Seeder 데모 데이터 적재기
type Seeder struct {
	db         *sql.DB
	memberRepo repository.MemberRepository
	itemRepo   repository.ItemRepository
	orderRepo  repository.OrderRepository
	logger     *zap.Logger
}

// NewSeeder 데모 데이터 적재기 생성
func NewSeeder(
	db *sql.DB,
	memberRepo repository.MemberRepository,
	itemRepo repository.ItemRepository,
	orderRepo repository.OrderRepository,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		db:         db,
		memberRepo: memberRepo,
		itemRepo:   itemRepo,
		orderRepo:  orderRepo,
		logger:     logger,
	}
}

// Seed 데모 회원 2명과 각 2권의 도서, 2건의 주문을 적재한다.
// 이미 회원이 있으면 아무 것도 하지 않는다. (멱등)
func (s *Seeder) Seed(ctx context.Context) error {
	existing, err := s.memberRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.logger.Info("seed skipped, members already exist", zap.Int("count", len(existing)))
		return nil
	}

	if err := s.seedOrder(ctx,
		"userA", domain.NewAddress("서울", "광명사거리", "20315"),
		domain.NewBook("JPA1 BOOK", 10000, 100, "김영한", "jpa-1"), 1,
		domain.NewBook("JPA2 BOOK", 20000, 100, "김영한", "jpa-2"), 2,
	); err != nil {
		return err
	}

	if err := s.seedOrder(ctx,
		"userB", domain.NewAddress("인천", "센트럴로", "30595"),
		domain.NewBook("SPRING1 BOOK", 20000, 200, "김영한", "spring-1"), 3,
		domain.NewBook("SPRING2 BOOK", 40000, 300, "김영한", "spring-2"), 4,
	); err != nil {
		return err
	}

	s.logger.Info("seed data loaded")
	return nil
}

func (s *Seeder) seedOrder(
	ctx context.Context,
	memberName string, address domain.Address,
	book1 *domain.Item, count1 int,
	book2 *domain.Item, count2 int,
) error {
	member := domain.NewMember(memberName, address)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.memberRepo.SaveTx(ctx, tx, member); err != nil {
		return err
	}
	if err := s.itemRepo.SaveTx(ctx, tx, book1); err != nil {
		return err
	}
	if err := s.itemRepo.SaveTx(ctx, tx, book2); err != nil {
		return err
	}

	orderItem1, err := domain.NewOrderItem(book1, book1.Price, count1)
	if err != nil {
		return err
	}
	orderItem2, err := domain.NewOrderItem(book2, book2.Price, count2)
	if err != nil {
		return err
	}

	order, err := domain.CreateOrder(member, domain.NewDelivery(member.Address), orderItem1, orderItem2)
	if err != nil {
		return err
	}

	if err := s.orderRepo.SaveTx(ctx, tx, order); err != nil {
		return err
	}
	if err := s.itemRepo.UpdateStockTx(ctx, tx, book1); err != nil {
		return err
	}
	if err := s.itemRepo.UpdateStockTx(ctx, tx, book2); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}
	return nil
}
