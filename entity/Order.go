package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	gorm.Model
	UserID uint `gorm:"index;not null" json:"userId"`
	User   User `json:"-"` // preload for notifications

	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:Pending;index" json:"status"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalPrice"`
	TrackingNumber  string          `json:"trackingNumber"`
	PaymentMethod   string          `json:"paymentMethod"`
	ProofOfPayment  string          `json:"proofOfPayment"`
	DeliveryAddress string          `json:"deliveryAddress"`

	RefundStatus RefundStatus `gorm:"type:varchar(20)" json:"refundStatus"`
	RefundProof  string       `json:"refundProof"`
	RefundDate   *time.Time   `json:"refundDate"`

	Items []OrderItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}
