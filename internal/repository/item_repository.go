package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
)

// ItemRepository 상품 레포지토리 인터페이스
type ItemRepository interface {
	SaveTx(ctx context.Context, tx *sql.Tx, item *domain.Item) error
	UpdateTx(ctx context.Context, tx *sql.Tx, item *domain.Item) error
	UpdateStockTx(ctx context.Context, tx *sql.Tx, item *domain.Item) error
	FindByID(ctx context.Context, id int64) (*domain.Item, error)
	FindAll(ctx context.Context) ([]*domain.Item, error)
}

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository 상품 레포지토리 생성
func NewItemRepository(db *sql.DB) ItemRepository {
	return &itemRepository{db: db}
}

// SaveTx 상품 저장
func (r *itemRepository) SaveTx(ctx context.Context, tx *sql.Tx, item *domain.Item) error {
	query := `
		INSERT INTO items (kind, name, price, stock_quantity, author, isbn, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := toMillis(time.Now())
	err := tx.QueryRowContext(
		ctx,
		query,
		string(item.Kind),
		item.Name,
		item.Price,
		item.StockQuantity,
		item.Author,
		item.ISBN,
		now,
		now,
	).Scan(&item.ID)

	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to save item", err)
	}

	return nil
}

// UpdateTx 상품 전체 필드 수정 (카탈로그 수정 경로)
func (r *itemRepository) UpdateTx(ctx context.Context, tx *sql.Tx, item *domain.Item) error {
	query := `
		UPDATE items
		SET name = $1, price = $2, stock_quantity = $3, author = $4, isbn = $5,
			version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		item.Name,
		item.Price,
		item.StockQuantity,
		item.Author,
		item.ISBN,
		toMillis(time.Now()),
		item.ID,
		item.Version,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to update item", err)
	}

	return r.checkVersionConflict(result, item)
}

// UpdateStockTx 재고 수량만 반영 (낙관적 락).
// 동시 수정으로 버전이 어긋나면 CONFLICT 로 실패한다.
func (r *itemRepository) UpdateStockTx(ctx context.Context, tx *sql.Tx, item *domain.Item) error {
	query := `
		UPDATE items
		SET stock_quantity = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		item.StockQuantity,
		toMillis(time.Now()),
		item.ID,
		item.Version,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to update item stock", err)
	}

	return r.checkVersionConflict(result, item)
}

func (r *itemRepository) checkVersionConflict(result sql.Result, item *domain.Item) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to get rows affected", err)
	}
	if affected == 0 {
		return errors.Newf(errors.ErrCodeConflict,
			"item %d was modified concurrently (version %d)", item.ID, item.Version)
	}
	item.Version++
	return nil
}

// FindByID ID로 상품 조회
func (r *itemRepository) FindByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `
		SELECT id, kind, name, price, stock_quantity, author, isbn, version
		FROM items
		WHERE id = $1
	`

	item := &domain.Item{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Kind,
		&item.Name,
		&item.Price,
		&item.StockQuantity,
		&item.Author,
		&item.ISBN,
		&item.Version,
	)

	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeNotFound, "item not found: %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find item", err)
	}

	return item, nil
}

// FindAll 상품 전체 조회
func (r *itemRepository) FindAll(ctx context.Context) ([]*domain.Item, error) {
	query := `
		SELECT id, kind, name, price, stock_quantity, author, isbn, version
		FROM items
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find items", err)
	}
	defer rows.Close()

	items := make([]*domain.Item, 0)
	for rows.Next() {
		item := &domain.Item{}
		if err := rows.Scan(
			&item.ID,
			&item.Kind,
			&item.Name,
			&item.Price,
			&item.StockQuantity,
			&item.Author,
			&item.ISBN,
			&item.Version,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate items", err)
	}

	return items, nil
}
