package domain

import (
	"github.com/kyungseok/order-shop-go/common/errors"
)

// ItemKind 상품 구분자 (closed set)
type ItemKind string

const (
	ItemKindBook ItemKind = "B"
)

// Item 카탈로그 상품 도메인 모델.
// 단일 타입에 구분자(Kind)를 두고, Kind 별 필드(Author, ISBN)를 함께 가진다.
type Item struct {
	ID            int64    `json:"id"`
	Kind          ItemKind `json:"kind"`
	Name          string   `json:"name"`
	Price         int      `json:"price"`
	StockQuantity int      `json:"stockQuantity"`

	// Book 전용 필드
	Author string `json:"author,omitempty"`
	ISBN   string `json:"isbn,omitempty"`

	// Version 낙관적 락 버전 (저장소에서 관리)
	Version int64 `json:"-"`
}

// NewBook 도서 상품 생성
func NewBook(name string, price, stockQuantity int, author, isbn string) *Item {
	return &Item{
		Kind:          ItemKindBook,
		Name:          name,
		Price:         price,
		StockQuantity: stockQuantity,
		Author:        author,
		ISBN:          isbn,
	}
}

// AddStock 재고 증가
func (i *Item) AddStock(quantity int) {
	i.StockQuantity += quantity
}

// RemoveStock 재고 감소. 재고가 부족하면 수량을 변경하지 않고 실패한다.
func (i *Item) RemoveStock(quantity int) error {
	restStock := i.StockQuantity - quantity
	if restStock < 0 {
		return errors.Newf(errors.ErrCodeOutOfStock,
			"need more stock: itemId=%d stock=%d requested=%d", i.ID, i.StockQuantity, quantity)
	}
	i.StockQuantity = restStock
	return nil
}

// Change 상품 공통 필드 수정 (카탈로그 수정 경로 전용)
func (i *Item) Change(name string, price, stockQuantity int) {
	i.Name = name
	i.Price = price
	i.StockQuantity = stockQuantity
}

// ChangeBook 도서 상품 필드 수정
func (i *Item) ChangeBook(name string, price, stockQuantity int, author, isbn string) {
	i.Change(name, price, stockQuantity)
	i.Author = author
	i.ISBN = isbn
}
