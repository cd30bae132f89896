package domain

import (
	"time"

	"github.com/kyungseok/order-shop-go/common/errors"
)

// OrderStatus 주문 상태
type OrderStatus string

const (
	OrderStatusOrder  OrderStatus = "ORDER"
	OrderStatusCancel OrderStatus = "CANCEL"
)

// Order 주문 애그리거트 루트.
// Delivery 와 OrderItems 는 Order 가 단독 소유하며, Order 와 함께 저장/삭제된다.
// 유효한 주문은 CreateOrder 를 통해서만 생성한다.
type Order struct {
	ID int64 `json:"id"`

	MemberID int64   `json:"memberId"`
	Member   *Member `json:"member,omitempty"`

	DeliveryID int64     `json:"deliveryId"`
	Delivery   *Delivery `json:"delivery,omitempty"`

	OrderItems []*OrderItem `json:"orderItems"`

	OrderDate time.Time   `json:"orderDate"`
	Status    OrderStatus `json:"status"`

	// Version 낙관적 락 버전 (저장소에서 관리)
	Version int64 `json:"-"`
}

//=== 연관관계 편의 메소드 ===//

// SetMember 회원 참조를 설정하면서 회원의 역참조 컬렉션도 함께 갱신한다.
func (o *Order) SetMember(member *Member) {
	o.Member = member
	o.MemberID = member.ID
	member.Orders = append(member.Orders, o)
}

// SetDelivery 배송 참조를 양방향으로 설정한다.
func (o *Order) SetDelivery(delivery *Delivery) {
	o.Delivery = delivery
	o.DeliveryID = delivery.ID
	delivery.Order = o
}

// AddOrderItem 주문 상품을 추가하면서 역참조를 함께 설정한다.
func (o *Order) AddOrderItem(orderItem *OrderItem) {
	orderItem.Order = o
	orderItem.OrderID = o.ID
	o.OrderItems = append(o.OrderItems, orderItem)
}

//=== 생성 메소드 ===//

// CreateOrder 주문 생성. 연관 객체의 양방향 참조를 모두 연결하고
// 상태 ORDER, 주문 시각을 설정한 완결된 애그리거트를 반환한다.
func CreateOrder(member *Member, delivery *Delivery, orderItems ...*OrderItem) (*Order, error) {
	if member == nil {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "order requires a member")
	}
	if delivery == nil {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "order requires a delivery")
	}
	if len(orderItems) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "order requires at least one order item")
	}

	order := &Order{}
	order.SetMember(member)
	order.SetDelivery(delivery)
	for _, orderItem := range orderItems {
		order.AddOrderItem(orderItem)
	}
	order.Status = OrderStatusOrder
	order.OrderDate = time.Now()

	return order, nil
}

//=== 비지니스 로직 ===//

// Cancel 주문 취소.
// 배송 완료(COMP) 상태이거나 이미 취소된 주문은 아무 것도 변경하지 않고 실패한다.
// 가드를 통과하면 상태를 CANCEL 로 바꾸고 모든 주문 상품의 재고를 원복한다.
func (o *Order) Cancel() error {
	if o.Delivery == nil {
		return errors.Newf(errors.ErrCodeDataIntegrity, "order %d has no delivery loaded", o.ID)
	}
	if o.Delivery.Status == DeliveryStatusComp {
		return errors.Newf(errors.ErrCodeAlreadyDelivered,
			"cannot cancel order %d: already delivered", o.ID)
	}
	if o.Status == OrderStatusCancel {
		return errors.Newf(errors.ErrCodeAlreadyCanceled,
			"order %d is already canceled", o.ID)
	}
	for _, orderItem := range o.OrderItems {
		if orderItem.Item == nil {
			return errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d has an order item without its item loaded", o.ID)
		}
	}

	o.Status = OrderStatusCancel
	for _, orderItem := range o.OrderItems {
		orderItem.cancel()
	}
	return nil
}

//=== 조회 로직 ===//

// TotalPrice 전체 주문 가격. 항상 주문 상품 합계에서 유도하며 별도 저장하지 않는다.
func (o *Order) TotalPrice() int {
	totalPrice := 0
	for _, orderItem := range o.OrderItems {
		totalPrice += orderItem.TotalPrice()
	}
	return totalPrice
}
