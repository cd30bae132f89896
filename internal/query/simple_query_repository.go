package query

import (
	"context"
	"database/sql"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
)

// SimpleQueryRepository 주문의 to-one 참조(회원, 배송)만 다루는 축소판 프로젝션.
// 컬렉션이 없어 모든 전략이 페이징 가능하고 팬아웃 문제도 없다.
type SimpleQueryRepository struct {
	db        *sql.DB
	orderRepo repository.OrderRepository
}

// NewSimpleQueryRepository 축소판 프로젝션 생성
func NewSimpleQueryRepository(db *sql.DB, orderRepo repository.OrderRepository) *SimpleQueryRepository {
	return &SimpleQueryRepository{db: db, orderRepo: orderRepo}
}

// FindAllEntities (V1) 루트를 조회한 뒤 회원/배송 참조만 지연 해소한다.
func (r *SimpleQueryRepository) FindAllEntities(ctx context.Context, search domain.OrderSearch) ([]*domain.Order, error) {
	orders, err := r.orderRepo.FindAllByCriteria(ctx, search)
	if err != nil {
		return nil, err
	}

	session := NewSession(r.db)
	for _, order := range orders {
		if err := session.ResolveOrder(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// FindAllDTO (V2) V1 과 같은 순회 후 전송용 형태로 변환한다.
func (r *SimpleQueryRepository) FindAllDTO(ctx context.Context, search domain.OrderSearch) ([]SimpleOrderProjection, error) {
	orders, err := r.FindAllEntities(ctx, search)
	if err != nil {
		return nil, err
	}

	result := make([]SimpleOrderProjection, 0, len(orders))
	for _, order := range orders {
		projection, err := SimpleProjectionFromOrder(order)
		if err != nil {
			return nil, err
		}
		result = append(result, projection)
	}
	return result, nil
}

// FindAllWithMemberDelivery (V3) 회원/배송을 조인해 엔티티를 한 번에 조회한다.
func (r *SimpleQueryRepository) FindAllWithMemberDelivery(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.order_date, o.status, o.version,
		       m.id, m.name, m.city, m.street, m.zipcode,
		       d.id, d.city, d.street, d.zipcode, d.status
		FROM orders o
		LEFT JOIN members m ON m.id = o.member_id
		LEFT JOIN deliveries d ON d.id = o.delivery_id
		ORDER BY o.id
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query orders with member and delivery", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	members := make(map[int64]*domain.Member)

	for rows.Next() {
		var (
			orderID, orderDate, orderVersion     int64
			orderStatus                          string
			memberID                             sql.NullInt64
			memberName, mCity, mStreet, mZipcode sql.NullString
			deliveryID                           sql.NullInt64
			dCity, dStreet, dZipcode, dStatus    sql.NullString
		)

		if err := rows.Scan(
			&orderID, &orderDate, &orderStatus, &orderVersion,
			&memberID, &memberName, &mCity, &mStreet, &mZipcode,
			&deliveryID, &dCity, &dStreet, &dZipcode, &dStatus,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order row", err)
		}

		if !memberID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing member", orderID)
		}
		if !deliveryID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing delivery", orderID)
		}

		order := &domain.Order{
			ID:        orderID,
			OrderDate: fromMillis(orderDate),
			Status:    domain.OrderStatus(orderStatus),
			Version:   orderVersion,
		}

		member, cached := members[memberID.Int64]
		if !cached {
			member = &domain.Member{
				ID:      memberID.Int64,
				Name:    memberName.String,
				Address: domain.NewAddress(mCity.String, mStreet.String, mZipcode.String),
			}
			members[member.ID] = member
		}
		order.SetMember(member)

		order.SetDelivery(&domain.Delivery{
			ID:      deliveryID.Int64,
			Address: domain.NewAddress(dCity.String, dStreet.String, dZipcode.String),
			Status:  domain.DeliveryStatus(dStatus.String),
		})

		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate order rows", err)
	}

	return orders, nil
}

// FindProjections (V4) 필요한 필드만 전송용 형태로 직접 조회한다.
func (r *SimpleQueryRepository) FindProjections(ctx context.Context) ([]SimpleOrderProjection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, m.id, m.name, o.order_date, o.status,
		       d.id, d.city, d.street, d.zipcode
		FROM orders o
		LEFT JOIN members m ON m.id = o.member_id
		LEFT JOIN deliveries d ON d.id = o.delivery_id
		ORDER BY o.id
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query simple order projections", err)
	}
	defer rows.Close()

	result := make([]SimpleOrderProjection, 0)
	for rows.Next() {
		var (
			orderID, orderDate    int64
			orderStatus           string
			memberID, deliveryID  sql.NullInt64
			memberName            sql.NullString
			city, street, zipcode sql.NullString
		)

		if err := rows.Scan(
			&orderID, &memberID, &memberName, &orderDate, &orderStatus,
			&deliveryID, &city, &street, &zipcode,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan simple order projection", err)
		}

		if !memberID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing member", orderID)
		}
		if !deliveryID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing delivery", orderID)
		}

		result = append(result, SimpleOrderProjection{
			OrderID:    orderID,
			MemberName: memberName.String,
			OrderDate:  fromMillis(orderDate),
			Status:     domain.OrderStatus(orderStatus),
			Address:    domain.NewAddress(city.String, street.String, zipcode.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate simple order projections", err)
	}

	return result, nil
}
