package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
)

// DefaultBatchSize 컬렉션 일괄 조회(IN)의 기본 배치 크기.
// 크게 잡을수록 쿼리 수는 줄지만 순간 결과 셋이 커진다. (권장 100~1000)
const DefaultBatchSize = 100

// OrderQueryRepository 주문 프로젝션 엔진.
// 모든 전략은 같은 논리적 질문에 답하지만 쿼리 형태와 비용이 다르다.
//
//	V1/V2  루트 조회 후 참조 지연 해소 (주문 N건이면 쿼리 1+N+N+ΣM, 세션 캐시로 중복 해소는 무료)
//	V3     단일 조인 + 루트 중복 제거 (쿼리 1, 페이징 불가)
//	V3.1   to-one 만 조인 + 컬렉션 IN 배치 (쿼리 1+ceil(N/K), 페이징 가능)
//	V4     루트 직접 프로젝션 + 루트별 컬렉션 조회 (쿼리 1+N, 페이징 가능)
//	V5     루트 직접 프로젝션 + 컬렉션 IN 일괄 조회 (쿼리 2, 페이징 가능)
//	V6     완전 평면 조인 + 애플리케이션 그룹핑 (쿼리 1, 페이징 불가)
type OrderQueryRepository struct {
	db        *sql.DB
	orderRepo repository.OrderRepository
	batchSize int
}

// NewOrderQueryRepository 주문 프로젝션 엔진 생성
func NewOrderQueryRepository(db *sql.DB, orderRepo repository.OrderRepository, batchSize int) *OrderQueryRepository {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OrderQueryRepository{
		db:        db,
		orderRepo: orderRepo,
		batchSize: batchSize,
	}
}

//=== V1 / V2 : 루트 조회 + 지연 해소 ===//

// FindAllEntities (V1) 저장소에서 루트를 조회한 뒤 회원/배송/주문상품/상품 참조를
// 모두 강제 해소한 엔티티를 반환한다. 해소는 세션의 식별자 캐시를 거치므로
// 같은 작업 단위 안에서 중복 해소는 추가 쿼리를 내지 않는다.
func (r *OrderQueryRepository) FindAllEntities(ctx context.Context, search domain.OrderSearch) ([]*domain.Order, error) {
	orders, err := r.orderRepo.FindAllByCriteria(ctx, search)
	if err != nil {
		return nil, err
	}

	session := NewSession(r.db)
	for _, order := range orders {
		if err := session.ResolveOrder(ctx, order); err != nil {
			return nil, err
		}
		if err := session.ResolveOrderItems(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// FindAllDTO (V2) V1 과 같은 순회를 수행한 뒤 전송용 형태로 변환만 한다.
// 결합만 끊을 뿐 쿼리 비용은 V1 과 동일하다.
func (r *OrderQueryRepository) FindAllDTO(ctx context.Context, search domain.OrderSearch) ([]OrderProjection, error) {
	orders, err := r.FindAllEntities(ctx, search)
	if err != nil {
		return nil, err
	}
	return projectOrders(orders)
}

//=== V3 : 단일 조인 ===//

// FindAllWithItems (V3) 루트 + to-one + 컬렉션을 한 번의 조인으로 조회한다.
// 컬렉션 조인의 팬아웃으로 늘어난 루트 행은 식별자로 중복 제거한다.
// 조인 후 행 수가 루트 수와 무관하므로 페이징은 지원하지 않는다. (파라미터 없음)
func (r *OrderQueryRepository) FindAllWithItems(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.order_date, o.status, o.version,
		       m.id, m.name, m.city, m.street, m.zipcode,
		       d.id, d.city, d.street, d.zipcode, d.status,
		       oi.id, oi.item_id, oi.order_price, oi.count,
		       i.id, i.kind, i.name, i.price, i.stock_quantity, i.author, i.isbn, i.version
		FROM orders o
		LEFT JOIN members m ON m.id = o.member_id
		LEFT JOIN deliveries d ON d.id = o.delivery_id
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN items i ON i.id = oi.item_id
		ORDER BY o.id, oi.id
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query orders with items", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	seen := make(map[int64]*domain.Order)
	members := make(map[int64]*domain.Member)

	for rows.Next() {
		var (
			orderID, orderDate, orderVersion         int64
			orderStatus                              string
			memberID                                 sql.NullInt64
			memberName, mCity, mStreet, mZipcode     sql.NullString
			deliveryID                               sql.NullInt64
			dCity, dStreet, dZipcode, dStatus        sql.NullString
			orderItemID, itemRefID                   sql.NullInt64
			orderPrice, count                        sql.NullInt64
			itemID, itemPrice, itemStock, itemVer    sql.NullInt64
			itemKind, itemName, itemAuthor, itemISBN sql.NullString
		)

		if err := rows.Scan(
			&orderID, &orderDate, &orderStatus, &orderVersion,
			&memberID, &memberName, &mCity, &mStreet, &mZipcode,
			&deliveryID, &dCity, &dStreet, &dZipcode, &dStatus,
			&orderItemID, &itemRefID, &orderPrice, &count,
			&itemID, &itemKind, &itemName, &itemPrice, &itemStock, &itemAuthor, &itemISBN, &itemVer,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan joined order row", err)
		}

		order, ok := seen[orderID]
		if !ok {
			if !memberID.Valid {
				return nil, errors.Newf(errors.ErrCodeDataIntegrity,
					"order %d references a missing member", orderID)
			}
			if !deliveryID.Valid {
				return nil, errors.Newf(errors.ErrCodeDataIntegrity,
					"order %d references a missing delivery", orderID)
			}

			order = &domain.Order{
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
			order.OrderItems = make([]*domain.OrderItem, 0)

			seen[orderID] = order
			orders = append(orders, order)
		}

		if !orderItemID.Valid {
			continue // 주문 상품이 없는 주문
		}
		if !itemID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing item %d", orderID, itemRefID.Int64)
		}

		orderItem := &domain.OrderItem{
			ID:         orderItemID.Int64,
			ItemID:     itemRefID.Int64,
			OrderPrice: int(orderPrice.Int64),
			Count:      int(count.Int64),
			Item: &domain.Item{
				ID:            itemID.Int64,
				Kind:          domain.ItemKind(itemKind.String),
				Name:          itemName.String,
				Price:         int(itemPrice.Int64),
				StockQuantity: int(itemStock.Int64),
				Author:        itemAuthor.String,
				ISBN:          itemISBN.String,
				Version:       itemVer.Int64,
			},
		}
		order.AddOrderItem(orderItem)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate joined order rows", err)
	}

	return orders, nil
}

//=== V3.1 : to-one 조인 + 컬렉션 배치 조회 ===//

// FindAllWithMemberDelivery (V3.1) to-one 참조만 조인해 루트를 페이징 조회하고,
// 컬렉션은 대기 중인 루트 식별자를 배치 크기만큼 모아 IN 쿼리로 일괄 해소한다.
func (r *OrderQueryRepository) FindAllWithMemberDelivery(ctx context.Context, offset, limit int) ([]*domain.Order, error) {
	orders, err := r.findRootsWithMemberDelivery(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		order.OrderItems = make([]*domain.OrderItem, 0)
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}

	for start := 0; start < len(ids); start += r.batchSize {
		end := start + r.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := r.attachOrderItemsBatch(ctx, byID, ids[start:end]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *OrderQueryRepository) findRootsWithMemberDelivery(ctx context.Context, offset, limit int) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.order_date, o.status, o.version,
		       m.id, m.name, m.city, m.street, m.zipcode,
		       d.id, d.city, d.street, d.zipcode, d.status
		FROM orders o
		LEFT JOIN members m ON m.id = o.member_id
		LEFT JOIN deliveries d ON d.id = o.delivery_id
		ORDER BY o.id
		LIMIT $1 OFFSET $2
	`, limit, offset)
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
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order root row", err)
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
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate order root rows", err)
	}

	return orders, nil
}

func (r *OrderQueryRepository) attachOrderItemsBatch(ctx context.Context, byID map[int64]*domain.Order, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	queryText := fmt.Sprintf(`
		SELECT oi.order_id, oi.id, oi.item_id, oi.order_price, oi.count,
		       i.id, i.kind, i.name, i.price, i.stock_quantity, i.author, i.isbn, i.version
		FROM order_items oi
		LEFT JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id IN (%s)
		ORDER BY oi.id
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, queryText, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to batch load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID, orderItemID, itemRefID          int64
			orderPrice, count                        int
			itemID, itemPrice, itemStock, itemVer    sql.NullInt64
			itemKind, itemName, itemAuthor, itemISBN sql.NullString
		)

		if err := rows.Scan(
			&orderID, &orderItemID, &itemRefID, &orderPrice, &count,
			&itemID, &itemKind, &itemName, &itemPrice, &itemStock, &itemAuthor, &itemISBN, &itemVer,
		); err != nil {
			return errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan batched order item", err)
		}

		if !itemID.Valid {
			return errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing item %d", orderID, itemRefID)
		}

		order, ok := byID[orderID]
		if !ok {
			continue
		}
		order.AddOrderItem(&domain.OrderItem{
			ID:         orderItemID,
			ItemID:     itemRefID,
			OrderPrice: orderPrice,
			Count:      count,
			Item: &domain.Item{
				ID:            itemID.Int64,
				Kind:          domain.ItemKind(itemKind.String),
				Name:          itemName.String,
				Price:         int(itemPrice.Int64),
				StockQuantity: int(itemStock.Int64),
				Author:        itemAuthor.String,
				ISBN:          itemISBN.String,
				Version:       itemVer.Int64,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate batched order items", err)
	}

	return nil
}

//=== V4 / V5 : 전송용 형태 직접 조회 ===//

// FindOrderProjections (V4) 루트 필드를 전송용 형태로 직접 조회하고,
// 루트마다 주문 상품을 별도 쿼리로 조회한다. (쿼리 1+N)
func (r *OrderQueryRepository) FindOrderProjections(ctx context.Context, offset, limit int) ([]OrderProjection, error) {
	result, err := r.findOrderProjectionRoots(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	for i := range result {
		orderItems, err := r.findOrderItemProjections(ctx, result[i].OrderID)
		if err != nil {
			return nil, err
		}
		result[i].OrderItems = orderItems
	}

	return result, nil
}

// FindOrderProjectionsOptimized (V5) 루트를 조회해 식별자를 모은 뒤,
// 모든 주문 상품을 IN 쿼리 한 번으로 조회하고 식별자 맵으로 묶어 붙인다. (쿼리 2)
func (r *OrderQueryRepository) FindOrderProjectionsOptimized(ctx context.Context, offset, limit int) ([]OrderProjection, error) {
	result, err := r.findOrderProjectionRoots(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	orderIDs := make([]int64, 0, len(result))
	for _, projection := range result {
		orderIDs = append(orderIDs, projection.OrderID)
	}

	itemMap, err := r.findOrderItemProjectionMap(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	for i := range result {
		orderItems, ok := itemMap[result[i].OrderID]
		if !ok {
			orderItems = make([]OrderItemProjection, 0)
		}
		result[i].OrderItems = orderItems
	}

	return result, nil
}

func (r *OrderQueryRepository) findOrderProjectionRoots(ctx context.Context, offset, limit int) ([]OrderProjection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, m.id, m.name, o.order_date, o.status,
		       d.id, d.city, d.street, d.zipcode
		FROM orders o
		LEFT JOIN members m ON m.id = o.member_id
		LEFT JOIN deliveries d ON d.id = o.delivery_id
		ORDER BY o.id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query order projections", err)
	}
	defer rows.Close()

	result := make([]OrderProjection, 0)
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
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order projection", err)
		}

		if !memberID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing member", orderID)
		}
		if !deliveryID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing delivery", orderID)
		}

		result = append(result, OrderProjection{
			OrderID:    orderID,
			MemberName: memberName.String,
			OrderDate:  fromMillis(orderDate),
			Status:     domain.OrderStatus(orderStatus),
			Address:    domain.NewAddress(city.String, street.String, zipcode.String),
			OrderItems: make([]OrderItemProjection, 0),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate order projections", err)
	}

	return result, nil
}

func (r *OrderQueryRepository) findOrderItemProjections(ctx context.Context, orderID int64) ([]OrderItemProjection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.item_id, i.id, i.name, oi.order_price, oi.count
		FROM order_items oi
		LEFT JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query order item projections", err)
	}
	defer rows.Close()

	return scanOrderItemProjections(rows)
}

func (r *OrderQueryRepository) findOrderItemProjectionMap(ctx context.Context, orderIDs []int64) (map[int64][]OrderItemProjection, error) {
	itemMap := make(map[int64][]OrderItemProjection)
	if len(orderIDs) == 0 {
		return itemMap, nil
	}

	placeholders := make([]string, len(orderIDs))
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	queryText := fmt.Sprintf(`
		SELECT oi.order_id, oi.item_id, i.id, i.name, oi.order_price, oi.count
		FROM order_items oi
		LEFT JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id IN (%s)
		ORDER BY oi.id
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, queryText, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query order item projections", err)
	}
	defer rows.Close()

	projections, err := scanOrderItemProjections(rows)
	if err != nil {
		return nil, err
	}

	for _, projection := range projections {
		itemMap[projection.OrderID] = append(itemMap[projection.OrderID], projection)
	}
	return itemMap, nil
}

func scanOrderItemProjections(rows *sql.Rows) ([]OrderItemProjection, error) {
	projections := make([]OrderItemProjection, 0)
	for rows.Next() {
		var (
			orderID, itemRefID int64
			itemID             sql.NullInt64
			itemName           sql.NullString
			orderPrice, count  int
		)
		if err := rows.Scan(&orderID, &itemRefID, &itemID, &itemName, &orderPrice, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order item projection", err)
		}
		if !itemID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing item %d", orderID, itemRefID)
		}
		projections = append(projections, OrderItemProjection{
			OrderID:    orderID,
			ItemName:   itemName.String,
			OrderPrice: orderPrice,
			Count:      count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate order item projections", err)
	}
	return projections, nil
}

//=== V6 : 평면 조인 + 그룹핑 ===//

// flatOrderRow 주문/주문상품 쌍 당 한 행으로 평면화된 조회 결과
type flatOrderRow struct {
	orderID    int64
	memberName string
	orderDate  int64
	status     domain.OrderStatus
	address    domain.Address

	hasItem    bool
	itemName   string
	orderPrice int
	count      int
}

// flatGroupKey 그룹핑 키. 비정규화된 루트 필드 전체에 대한 구조적 동등성으로 묶는다.
type flatGroupKey struct {
	orderID    int64
	memberName string
	orderDate  int64
	status     domain.OrderStatus
	address    domain.Address
}

// FindOrderProjectionsFlat (V6) 루트와 컬렉션을 한 번에 평면 조인으로 조회하고
// 애플리케이션에서 루트 필드 튜플로 그룹핑해 중첩 형태로 복원한다.
// 평면 행 수가 루트 수와 일치하지 않으므로 페이징은 지원하지 않는다.
// 그룹 순서는 첫 등장 순서, 그룹 내 주문 상품은 행 스트림 순서를 따른다.
func (r *OrderQueryRepository) FindOrderProjectionsFlat(ctx context.Context) ([]OrderProjection, error) {
	flats, err := r.findAllFlat(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]OrderProjection, 0)
	index := make(map[flatGroupKey]int)

	for _, flat := range flats {
		key := flatGroupKey{
			orderID:    flat.orderID,
			memberName: flat.memberName,
			orderDate:  flat.orderDate,
			status:     flat.status,
			address:    flat.address,
		}

		pos, ok := index[key]
		if !ok {
			pos = len(result)
			index[key] = pos
			result = append(result, OrderProjection{
				OrderID:    flat.orderID,
				MemberName: flat.memberName,
				OrderDate:  fromMillis(flat.orderDate),
				Status:     flat.status,
				Address:    flat.address,
				OrderItems: make([]OrderItemProjection, 0),
			})
		}

		if !flat.hasItem {
			continue
		}
		result[pos].OrderItems = append(result[pos].OrderItems, OrderItemProjection{
			OrderID:    flat.orderID,
			ItemName:   flat.itemName,
			OrderPrice: flat.orderPrice,
			Count:      flat.count,
		})
	}

	return result, nil
}

func (r *OrderQueryRepository) findAllFlat(ctx context.Context) ([]flatOrderRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, m.id, m.name, o.order_date, o.status,
		       d.id, d.city, d.street, d.zipcode,
		       oi.id, oi.item_id, i.id, i.name, oi.order_price, oi.count
		FROM orders o
		LEFT JOIN members m ON m.id = o.member_id
		LEFT JOIN deliveries d ON d.id = o.delivery_id
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN items i ON i.id = oi.item_id
		ORDER BY o.id, oi.id
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query flat order rows", err)
	}
	defer rows.Close()

	flats := make([]flatOrderRow, 0)
	for rows.Next() {
		var (
			orderID, orderDate    int64
			orderStatus           string
			memberID, deliveryID  sql.NullInt64
			memberName            sql.NullString
			city, street, zipcode sql.NullString
			orderItemID, itemRef  sql.NullInt64
			itemID                sql.NullInt64
			itemName              sql.NullString
			orderPrice, count     sql.NullInt64
		)

		if err := rows.Scan(
			&orderID, &memberID, &memberName, &orderDate, &orderStatus,
			&deliveryID, &city, &street, &zipcode,
			&orderItemID, &itemRef, &itemID, &itemName, &orderPrice, &count,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan flat order row", err)
		}

		if !memberID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing member", orderID)
		}
		if !deliveryID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing delivery", orderID)
		}
		if orderItemID.Valid && !itemID.Valid {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d references a missing item %d", orderID, itemRef.Int64)
		}

		flats = append(flats, flatOrderRow{
			orderID:    orderID,
			memberName: memberName.String,
			orderDate:  orderDate,
			status:     domain.OrderStatus(orderStatus),
			address:    domain.NewAddress(city.String, street.String, zipcode.String),
			hasItem:    orderItemID.Valid,
			itemName:   itemName.String,
			orderPrice: int(orderPrice.Int64),
			count:      int(count.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate flat order rows", err)
	}

	return flats, nil
}

func projectOrders(orders []*domain.Order) ([]OrderProjection, error) {
	result := make([]OrderProjection, 0, len(orders))
	for _, order := range orders {
		projection, err := ProjectionFromOrder(order)
		if err != nil {
			return nil, err
		}
		result = append(result, projection)
	}
	return result, nil
}
