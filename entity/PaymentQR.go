package entity

import "gorm.io/gorm"

type PaymentQR struct {
	gorm.Model
	Type   string `gorm:"not null;default:GCASH" json:"type"`
	QRCode string `json:"qrCode"` // object key in the upload bucket
}

func (PaymentQR) TableName() string { return "payment_qrs" }
