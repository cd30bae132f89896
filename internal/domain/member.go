package domain

// Member 회원 도메인 모델
type Member struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`

	// Orders 읽기 전용 역참조. Order.SetMember 를 통해서만 유지된다.
	Orders []*Order `json:"-"`
}

// NewMember 회원 생성
func NewMember(name string, address Address) *Member {
	return &Member{
		Name:    name,
		Address: address,
	}
}

// Change 회원 정보 수정
func (m *Member) Change(name string, address Address) {
	m.Name = name
	m.Address = address
}
