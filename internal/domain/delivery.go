package domain

// DeliveryStatus 배송 상태
type DeliveryStatus string

const (
	DeliveryStatusReady DeliveryStatus = "READY"
	DeliveryStatusComp  DeliveryStatus = "COMP"
)

// Delivery 배송 도메인 모델. Order 가 단독 소유하며 Order 와 함께 생성/삭제된다.
type Delivery struct {
	ID      int64          `json:"id"`
	Address Address        `json:"address"`
	Status  DeliveryStatus `json:"status"`

	// Order 역참조. Order.SetDelivery 를 통해서만 설정된다.
	Order *Order `json:"-"`
}

// NewDelivery 배송 생성 (초기 상태 READY)
func NewDelivery(address Address) *Delivery {
	return &Delivery{
		Address: address,
		Status:  DeliveryStatusReady,
	}
}

// Complete 배송 완료 처리 (READY -> COMP)
func (d *Delivery) Complete() {
	d.Status = DeliveryStatusComp
}
