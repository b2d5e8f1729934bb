package repository

import (
	"github.com/duckieducksrgood/winchpoint/entity"

	"gorm.io/gorm"
)

type PaymentQRRepository struct{ DB *gorm.DB }

func NewPaymentQRRepository(db *gorm.DB) *PaymentQRRepository {
	return &PaymentQRRepository{DB: db}
}

func (r *PaymentQRRepository) List() ([]entity.PaymentQR, error) {
	var out []entity.PaymentQR
	return out, r.DB.Order("id").Find(&out).Error
}

func (r *PaymentQRRepository) FindByID(id uint) (*entity.PaymentQR, error) {
	var q entity.PaymentQR
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PaymentQRRepository) Create(q *entity.PaymentQR) error {
	return r.DB.Create(q).Error
}

func (r *PaymentQRRepository) Save(q *entity.PaymentQR) error {
	return r.DB.Save(q).Error
}

func (r *PaymentQRRepository) Delete(id uint) (int64, error) {
	res := r.DB.Delete(&entity.PaymentQR{}, id)
	return res.RowsAffected, res.Error
}
