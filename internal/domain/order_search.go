package domain

// OrderSearch 주문 검색 조건. 비어 있는 필드는 조건에서 제외된다.
type OrderSearch struct {
	MemberName string
	Status     OrderStatus
}
