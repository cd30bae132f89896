package domain

import (
	"github.com/kyungseok/order-shop-go/common/errors"
)

// OrderItem 주문 상품 도메인 모델. Order 가 단독 소유한다.
// OrderPrice 와 Count 는 생성 시점에 고정된다.
type OrderItem struct {
	ID         int64 `json:"id"`
	ItemID     int64 `json:"itemId"`
	Item       *Item `json:"item,omitempty"`
	OrderPrice int   `json:"orderPrice"`
	Count      int   `json:"count"`

	// Order 역참조. Order.AddOrderItem 을 통해서만 설정된다.
	OrderID int64  `json:"-"`
	Order   *Order `json:"-"`
}

// NewOrderItem 주문 상품 생성. 상품 재고를 즉시 차감하며, 재고가 부족하면
// 아무 것도 변경하지 않고 실패한다.
func NewOrderItem(item *Item, orderPrice, count int) (*OrderItem, error) {
	if item == nil {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "order item requires an item")
	}
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidOrder, "count must be positive: %d", count)
	}

	if err := item.RemoveStock(count); err != nil {
		return nil, err
	}

	return &OrderItem{
		ItemID:     item.ID,
		Item:       item,
		OrderPrice: orderPrice,
		Count:      count,
	}, nil
}

// cancel 주문 상품 취소. 차감했던 재고를 Count 만큼 되돌린다.
// 멱등하지 않으므로 Order.Cancel 의 상태 머신을 통해 정확히 한 번만 호출된다.
func (oi *OrderItem) cancel() {
	oi.Item.AddStock(oi.Count)
}

// TotalPrice 주문 상품 합계 (주문 가격 x 수량)
func (oi *OrderItem) TotalPrice() int {
	return oi.OrderPrice * oi.Count
}
