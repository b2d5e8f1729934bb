package entity

import "time"

// CartItem is hard-deleted: (cart, product) is unique and a removed line
// must not block the same product from being added again.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CartID uint `gorm:"not null;uniqueIndex:idx_cart_product" json:"cartId"`
	Cart   Cart `json:"-"`

	ProductID uint    `gorm:"not null;uniqueIndex:idx_cart_product" json:"productId"`
	Product   Product `json:"product"`

	Quantity int `gorm:"not null" json:"quantity"`
}
