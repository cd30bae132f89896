package events

import "time"

// EventType 이벤트 타입 정의
type EventType string

const (
	// Order Events
	EventOrderPlaced   EventType = "order.placed.v1"
	EventOrderCanceled EventType = "order.canceled.v1"

	// Member Events
	EventMemberRegistered EventType = "member.registered.v1"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"`
}

// OrderLine 주문 상품 한 줄
type OrderLine struct {
	ItemID     int64 `json:"itemId"`
	OrderPrice int   `json:"orderPrice"`
	Count      int   `json:"count"`
}

// OrderPlacedEvent 주문 생성 이벤트
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    int64       `json:"orderId"`
	MemberID   int64       `json:"memberId"`
	TotalPrice int         `json:"totalPrice"`
	Lines      []OrderLine `json:"lines"`
}

// OrderCanceledEvent 주문 취소 이벤트 (재고 원복 포함)
type OrderCanceledEvent struct {
	BaseEvent
	OrderID  int64       `json:"orderId"`
	MemberID int64       `json:"memberId"`
	Restored []OrderLine `json:"restored"`
}

// MemberRegisteredEvent 회원 가입 이벤트
type MemberRegisteredEvent struct {
	BaseEvent
	MemberID int64  `json:"memberId"`
	Name     string `json:"name"`
}
