package entity

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	gorm.Model
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	Image       string          `json:"image"`
	OnSale      bool            `gorm:"not null;default:false" json:"onSale"`
	SalePrice   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"salePrice"`

	CategoryID uint      `gorm:"index;not null" json:"categoryId"`
	Category   *Category `json:"category,omitempty"`
}

// EffectivePrice is what a customer pays per unit right now.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.OnSale && p.SalePrice.IsPositive() {
		return p.SalePrice
	}
	return p.Price
}
