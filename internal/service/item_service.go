package service

import (
	"context"
	"database/sql"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"go.uber.org/zap"
)

// ItemService 상품 서비스 인터페이스
type ItemService interface {
	SaveItem(ctx context.Context, item *domain.Item) (int64, error)
	UpdateBook(ctx context.Context, id int64, name string, price, stockQuantity int, author, isbn string) error
	FindItems(ctx context.Context) ([]*domain.Item, error)
	FindOne(ctx context.Context, id int64) (*domain.Item, error)
}

type itemService struct {
	db       *sql.DB
	itemRepo repository.ItemRepository
	logger   *zap.Logger
}

// NewItemService 상품 서비스 생성
func NewItemService(db *sql.DB, itemRepo repository.ItemRepository, logger *zap.Logger) ItemService {
	return &itemService{db: db, itemRepo: itemRepo, logger: logger}
}

// SaveItem 상품 등록
func (s *itemService) SaveItem(ctx context.Context, item *domain.Item) (int64, error) {
	if item.StockQuantity < 0 {
		return 0, errors.New(errors.ErrCodeInvalidOrder, "stock quantity must not be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.itemRepo.SaveTx(ctx, tx, item); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	s.logger.Info("item saved",
		zap.Int64("itemId", item.ID),
		zap.String("name", item.Name))

	return item.ID, nil
}

// UpdateBook 도서 정보 수정. 변경 감지 대신 명시적 갱신이다.
func (s *itemService) UpdateBook(ctx context.Context, id int64, name string, price, stockQuantity int, author, isbn string) error {
	if stockQuantity < 0 {
		return errors.New(errors.ErrCodeInvalidOrder, "stock quantity must not be negative")
	}

	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	item.ChangeBook(name, price, stockQuantity, author, isbn)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.itemRepo.UpdateTx(ctx, tx, item); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	return nil
}

// FindItems 전체 상품 조회
func (s *itemService) FindItems(ctx context.Context) ([]*domain.Item, error) {
	return s.itemRepo.FindAll(ctx)
}

// FindOne 상품 단건 조회
func (s *itemService) FindOne(ctx context.Context, id int64) (*domain.Item, error) {
	return s.itemRepo.FindByID(ctx, id)
}
