package entity

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem keeps its own copy of the product name and unit price so order
// history survives product edits and deletes. ProductID is nulled on delete.
type OrderItem struct {
	gorm.Model
	OrderID uint `gorm:"index;not null" json:"orderId"`

	ProductID   *uint           `gorm:"index" json:"productId"`
	Product     *Product        `gorm:"constraint:OnDelete:SET NULL;" json:"-"`
	ProductName string          `gorm:"not null" json:"productName"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
