package repository

import (
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"

	"gorm.io/gorm"
)

type ProductRepository struct{ DB *gorm.DB }

func NewProductRepository(db *gorm.DB) *ProductRepository { return &ProductRepository{DB: db} }

type ProductFilter struct {
	CategoryID uint
	OnSale     *bool
	Search     string
}

func (r *ProductRepository) List(f ProductFilter) ([]entity.Product, error) {
	q := r.DB.Preload("Category").Order("id")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.OnSale != nil {
		q = q.Where("on_sale = ?", *f.OnSale)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var out []entity.Product
	return out, q.Find(&out).Error
}

func (r *ProductRepository) FindByID(id uint) (*entity.Product, error) {
	var p entity.Product
	if err := r.DB.Preload("Category").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) FindByName(tx *gorm.DB, name string) (*entity.Product, error) {
	var p entity.Product
	if err := tx.Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) Create(tx *gorm.DB, p *entity.Product) error {
	return tx.Create(p).Error
}

// Patch writes only the given columns; stock moves through the
// increment/decrement helpers unless an admin sets it outright.
func (r *ProductRepository) Patch(tx *gorm.DB, id uint, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return tx.Model(&entity.Product{}).Where("id = ?", id).Updates(cols).Error
}

// Delete removes the product for good. Cart lines go with it; order lines
// keep their snapshot and lose the reference.
func (r *ProductRepository) Delete(tx *gorm.DB, id uint) (int64, error) {
	if err := tx.Where("product_id = ?", id).Delete(&entity.CartItem{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&entity.OrderItem{}).Where("product_id = ?", id).
		Update("product_id", nil).Error; err != nil {
		return 0, err
	}
	res := tx.Unscoped().Delete(&entity.Product{}, id)
	return res.RowsAffected, res.Error
}

// DecrementStock takes qty units only if that many are on hand.
// Zero rows affected means the stock was not there.
func (r *ProductRepository) DecrementStock(tx *gorm.DB, id uint, qty int) (int64, error) {
	res := tx.Model(&entity.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected, res.Error
}

func (r *ProductRepository) IncrementStock(tx *gorm.DB, id uint, qty int) (int64, error) {
	res := tx.Model(&entity.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty))
	return res.RowsAffected, res.Error
}

func (r *ProductRepository) CountByCategory(categoryID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&entity.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}
