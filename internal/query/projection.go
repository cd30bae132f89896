// Package query 는 주문 읽기 경로(프로젝션 엔진)를 제공한다.
// 같은 질문("주문 + 회원 이름 + 배송 주소 + 주문 상품")에 대해
// 쿼리 형태/비용/페이징 가능 여부가 다른 전략들을 나눠 구현한다.
package query

import (
	"time"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
)

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// OrderItemProjection 주문 상품 전송용 형태
type OrderItemProjection struct {
	OrderID    int64  `json:"orderId"`
	ItemName   string `json:"itemName"`
	OrderPrice int    `json:"orderPrice"`
	Count      int    `json:"count"`
}

// OrderProjection 주문 전송용 형태 (컬렉션 포함)
type OrderProjection struct {
	OrderID    int64                 `json:"orderId"`
	MemberName string                `json:"name"`
	OrderDate  time.Time             `json:"orderDate"`
	Status     domain.OrderStatus    `json:"status"`
	Address    domain.Address        `json:"address"`
	OrderItems []OrderItemProjection `json:"orderItems"`
}

// SimpleOrderProjection 주문 전송용 형태 (to-one 참조만)
type SimpleOrderProjection struct {
	OrderID    int64              `json:"orderId"`
	MemberName string             `json:"name"`
	OrderDate  time.Time          `json:"orderDate"`
	Status     domain.OrderStatus `json:"status"`
	Address    domain.Address     `json:"address"`
}

// ProjectionFromOrder 해소가 끝난 주문 엔티티를 전송용 형태로 변환한다.
// 참조가 해소되지 않은 주문은 DATA_INTEGRITY 로 실패한다.
func ProjectionFromOrder(order *domain.Order) (OrderProjection, error) {
	simple, err := SimpleProjectionFromOrder(order)
	if err != nil {
		return OrderProjection{}, err
	}

	orderItems := make([]OrderItemProjection, 0, len(order.OrderItems))
	for _, orderItem := range order.OrderItems {
		if orderItem.Item == nil {
			return OrderProjection{}, errors.Newf(errors.ErrCodeDataIntegrity,
				"order %d has an unresolved item reference", order.ID)
		}
		orderItems = append(orderItems, OrderItemProjection{
			OrderID:    order.ID,
			ItemName:   orderItem.Item.Name,
			OrderPrice: orderItem.OrderPrice,
			Count:      orderItem.Count,
		})
	}

	return OrderProjection{
		OrderID:    simple.OrderID,
		MemberName: simple.MemberName,
		OrderDate:  simple.OrderDate,
		Status:     simple.Status,
		Address:    simple.Address,
		OrderItems: orderItems,
	}, nil
}

// SimpleProjectionFromOrder to-one 참조만 갖는 전송용 형태로 변환한다.
func SimpleProjectionFromOrder(order *domain.Order) (SimpleOrderProjection, error) {
	if order.Member == nil {
		return SimpleOrderProjection{}, errors.Newf(errors.ErrCodeDataIntegrity,
			"order %d has an unresolved member reference", order.ID)
	}
	if order.Delivery == nil {
		return SimpleOrderProjection{}, errors.Newf(errors.ErrCodeDataIntegrity,
			"order %d has an unresolved delivery reference", order.ID)
	}

	return SimpleOrderProjection{
		OrderID:    order.ID,
		MemberName: order.Member.Name,
		OrderDate:  order.OrderDate,
		Status:     order.Status,
		Address:    order.Delivery.Address,
	}, nil
}
