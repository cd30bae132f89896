package query

import (
	"context"
	"database/sql"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
)

// Session 한 작업 단위 안에서의 지연 해소 세션.
// 엔티티 키 -> 해소된 객체의 식별자 캐시를 유지하므로,
// 같은 참조를 다시 해소해도 추가 쿼리가 발생하지 않고 같은 객체가 반환된다.
type Session struct {
	db         *sql.DB
	members    map[int64]*domain.Member
	deliveries map[int64]*domain.Delivery
	items      map[int64]*domain.Item
}

// NewSession 지연 해소 세션 생성
func NewSession(db *sql.DB) *Session {
	return &Session{
		db:         db,
		members:    make(map[int64]*domain.Member),
		deliveries: make(map[int64]*domain.Delivery),
		items:      make(map[int64]*domain.Item),
	}
}

// Member 회원 참조 해소 (캐시 우선)
func (s *Session) Member(ctx context.Context, id int64) (*domain.Member, error) {
	if member, ok := s.members[id]; ok {
		return member, nil
	}

	member := &domain.Member{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, city, street, zipcode
		FROM members
		WHERE id = $1
	`, id).Scan(
		&member.ID,
		&member.Name,
		&member.Address.City,
		&member.Address.Street,
		&member.Address.Zipcode,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeDataIntegrity, "missing member %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to resolve member", err)
	}

	s.members[id] = member
	return member, nil
}

// Delivery 배송 참조 해소 (캐시 우선)
func (s *Session) Delivery(ctx context.Context, id int64) (*domain.Delivery, error) {
	if delivery, ok := s.deliveries[id]; ok {
		return delivery, nil
	}

	delivery := &domain.Delivery{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, city, street, zipcode, status
		FROM deliveries
		WHERE id = $1
	`, id).Scan(
		&delivery.ID,
		&delivery.Address.City,
		&delivery.Address.Street,
		&delivery.Address.Zipcode,
		&delivery.Status,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeDataIntegrity, "missing delivery %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to resolve delivery", err)
	}

	s.deliveries[id] = delivery
	return delivery, nil
}

// Item 상품 참조 해소 (캐시 우선)
func (s *Session) Item(ctx context.Context, id int64) (*domain.Item, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}

	item := &domain.Item{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, price, stock_quantity, author, isbn, version
		FROM items
		WHERE id = $1
	`, id).Scan(
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
		return nil, errors.Newf(errors.ErrCodeDataIntegrity, "missing item %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to resolve item", err)
	}

	s.items[id] = item
	return item, nil
}

// ResolveOrder 주문 루트의 to-one 참조(회원, 배송)를 강제 해소한다.
func (s *Session) ResolveOrder(ctx context.Context, order *domain.Order) error {
	member, err := s.Member(ctx, order.MemberID)
	if err != nil {
		return err
	}
	order.SetMember(member)

	delivery, err := s.Delivery(ctx, order.DeliveryID)
	if err != nil {
		return err
	}
	order.SetDelivery(delivery)

	return nil
}

// ResolveOrderItems 주문 상품 컬렉션과 각 상품 참조를 강제 해소한다.
func (s *Session) ResolveOrderItems(ctx context.Context, order *domain.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, order_price, count
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, order.ID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to resolve order items", err)
	}
	defer rows.Close()

	orderItems := make([]*domain.OrderItem, 0)
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
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate order items", err)
	}

	order.OrderItems = make([]*domain.OrderItem, 0, len(orderItems))
	for _, orderItem := range orderItems {
		item, err := s.Item(ctx, orderItem.ItemID)
		if err != nil {
			return err
		}
		orderItem.Item = item
		order.AddOrderItem(orderItem)
	}

	return nil
}
