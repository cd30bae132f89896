package domain

// Address 주소 값 타입. 생성 후 변경 불가(필드 교체는 새 Address 생성으로만 한다).
type Address struct {
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

// NewAddress 주소 값 타입 생성
func NewAddress(city, street, zipcode string) Address {
	return Address{
		City:    city,
		Street:  street,
		Zipcode: zipcode,
	}
}
