package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
)

// OrderRepository 주문 레포지토리 인터페이스.
// SaveTx 는 주문이 소유한 Delivery, OrderItem 을 하나의 작업 단위로 함께 저장한다.
type OrderRepository interface {
	SaveTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindOne(ctx context.Context, id int64) (*domain.Order, error)
	FindAll(ctx context.Context) ([]*domain.Order, error)
	FindAllByCriteria(ctx context.Context, search domain.OrderSearch) ([]*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository 주문 레포지토리 생성
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// SaveTx 주문 저장. 소유 객체(Delivery, OrderItem)를 먼저/함께 저장하고
// 생성된 식별자를 애그리거트에 반영한다.
func (r *orderRepository) SaveTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	delivery := order.Delivery
	err := tx.QueryRowContext(ctx, `
		INSERT INTO deliveries (city, street, zipcode, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		delivery.Address.City,
		delivery.Address.Street,
		delivery.Address.Zipcode,
		string(delivery.Status),
	).Scan(&delivery.ID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to save delivery", err)
	}
	order.DeliveryID = delivery.ID

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (member_id, delivery_id, order_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version
	`,
		order.MemberID,
		order.DeliveryID,
		toMillis(order.OrderDate),
		string(order.Status),
	).Scan(&order.ID, &order.Version)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to save order", err)
	}

	for _, orderItem := range order.OrderItems {
		orderItem.OrderID = order.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, item_id, order_price, count)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`,
			orderItem.OrderID,
			orderItem.ItemID,
			orderItem.OrderPrice,
			orderItem.Count,
		).Scan(&orderItem.ID)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDatabaseError, "failed to save order item", err)
		}
	}

	return nil
}

// UpdateStatusTx 주문 상태 반영 (낙관적 락).
// 같은 주문에 대한 동시 취소는 한쪽만 성공하고 다른 쪽은 CONFLICT 로 실패한다.
// 배송 상태도 함께 반영한다.
func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`,
		string(order.Status),
		order.ID,
		order.Version,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to update order status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to get rows affected", err)
	}
	if affected == 0 {
		return errors.Newf(errors.ErrCodeConflict,
			"order %d was modified concurrently (version %d)", order.ID, order.Version)
	}
	order.Version++

	if order.Delivery != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE deliveries SET status = $1 WHERE id = $2
		`,
			string(order.Delivery.Status),
			order.DeliveryID,
		)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDatabaseError, "failed to update delivery status", err)
		}
	}

	return nil
}

// FindOne 주문 단건 조회. 쓰기 경로에서 사용하므로 소유 객체(Delivery, OrderItem)와
// 참조 객체(Member, Item)까지 모두 복원한 완결된 애그리거트를 반환한다.
func (r *orderRepository) FindOne(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}
	var orderDate int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, member_id, delivery_id, order_date, status, version
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID,
		&order.MemberID,
		&order.DeliveryID,
		&orderDate,
		&order.Status,
		&order.Version,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeNotFound, "order not found: %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find order", err)
	}
	order.OrderDate = fromMillis(orderDate)

	if err := r.loadMember(ctx, order); err != nil {
		return nil, err
	}
	if err := r.loadDelivery(ctx, order); err != nil {
		return nil, err
	}
	if err := r.loadOrderItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) loadMember(ctx context.Context, order *domain.Order) error {
	member := &domain.Member{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, city, street, zipcode
		FROM members
		WHERE id = $1
	`, order.MemberID).Scan(
		&member.ID,
		&member.Name,
		&member.Address.City,
		&member.Address.Street,
		&member.Address.Zipcode,
	)
	if err == sql.ErrNoRows {
		return errors.Newf(errors.ErrCodeDataIntegrity,
			"order %d references missing member %d", order.ID, order.MemberID)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to load order member", err)
	}

	order.SetMember(member)
	return nil
}

func (r *orderRepository) loadDelivery(ctx context.Context, order *domain.Order) error {
	delivery := &domain.Delivery{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, city, street, zipcode, status
		FROM deliveries
		WHERE id = $1
	`, order.DeliveryID).Scan(
		&delivery.ID,
		&delivery.Address.City,
		&delivery.Address.Street,
		&delivery.Address.Zipcode,
		&delivery.Status,
	)
	if err == sql.ErrNoRows {
		return errors.Newf(errors.ErrCodeDataIntegrity,
			"order %d references missing delivery %d", order.ID, order.DeliveryID)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to load order delivery", err)
	}

	order.SetDelivery(delivery)
	return nil
}

func (r *orderRepository) loadOrderItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, order_price, count
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, order.ID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to load order items", err)
	}
	defer rows.Close()

	orderItems := make([]*domain.OrderItem, 0)
	itemIDs := make([]int64, 0)
	for rows.Next() {
		orderItem := &domain.OrderItem{}
		if err := rows.Scan(
			&orderItem.ID,
			&orderItem.ItemID,
			&orderItem.OrderPrice,
			&orderItem.Count,
		); err != nil {
			return errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order item", err)
		}
		orderItems = append(orderItems, orderItem)
		itemIDs = append(itemIDs, orderItem.ItemID)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate order items", err)
	}

	items, err := r.findItemsByIDs(ctx, itemIDs)
	if err != nil {
		return err
	}

	for _, orderItem := range orderItems {
		item, ok := items[orderItem.ItemID]
		if !ok {
			return errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references missing item %d", order.ID, orderItem.ItemID)
		}
		orderItem.Item = item
		order.AddOrderItem(orderItem)
	}

	return nil
}

func (r *orderRepository) findItemsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Item, error) {
	items := make(map[int64]*domain.Item)
	if len(ids) == 0 {
		return items, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, kind, name, price, stock_quantity, author, isbn, version
		FROM items
		WHERE id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to load items", err)
	}
	defer rows.Close()

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
		items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate items", err)
	}

	return items, nil
}

// FindAll 주문 전체 조회. 루트만 복원하며 참조 객체는 지연 해소 대상으로 남긴다.
func (r *orderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	return r.FindAllByCriteria(ctx, domain.OrderSearch{})
}

// FindAllByCriteria 검색 조건으로 주문 루트 조회.
// 회원 이름 조건은 참조(member_id) 조인만 사용하고 컬렉션은 조인하지 않는다.
func (r *orderRepository) FindAllByCriteria(ctx context.Context, search domain.OrderSearch) ([]*domain.Order, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o.id, o.member_id, o.delivery_id, o.order_date, o.status, o.version
		FROM orders o
	`)

	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)

	if search.MemberName != "" {
		sb.WriteString(" JOIN members m ON m.id = o.member_id")
		args = append(args, search.MemberName)
		conds = append(conds, fmt.Sprintf("m.name LIKE '%%' || $%d || '%%'", len(args)))
	}
	if search.Status != "" {
		args = append(args, string(search.Status))
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY o.id")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find orders", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order := &domain.Order{}
		var orderDate int64
		if err := rows.Scan(
			&order.ID,
			&order.MemberID,
			&order.DeliveryID,
			&orderDate,
			&order.Status,
			&order.Version,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order", err)
		}
		order.OrderDate = fromMillis(orderDate)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate orders", err)
	}

	return orders, nil
}
