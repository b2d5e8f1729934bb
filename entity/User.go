package entity

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username        string `gorm:"uniqueIndex;not null" json:"username"`
	Email           string `gorm:"uniqueIndex;not null" json:"email"`
	Password        string `json:"-"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Role            Role   `gorm:"type:varchar(20);not null;default:customer" json:"role"`
	DeliveryAddress string `json:"deliveryAddress"`

	// password reset; cleared once the reset is confirmed or the attempts run out
	ResetCode          string     `json:"-"`
	ResetCodeExpiresAt *time.Time `json:"-"`
	ResetAttempts      int        `gorm:"not null;default:0" json:"-"`

	Orders []Order `json:"-"`
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
