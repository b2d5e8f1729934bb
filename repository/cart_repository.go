package repository

import (
	"errors"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct{ DB *gorm.DB }

func NewCartRepository(db *gorm.DB) *CartRepository { return &CartRepository{DB: db} }

// FindCart returns gorm.ErrRecordNotFound when the user has no cart yet.
func (r *CartRepository) FindCart(tx *gorm.DB, userID uint) (*entity.Cart, error) {
	var c entity.Cart
	if err := tx.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CartRepository) GetCartWithItems(tx *gorm.DB, userID uint) (*entity.Cart, error) {
	var c entity.Cart
	err := tx.Where("user_id = ?", userID).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		Preload("Items.Product").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreateCart keeps one cart per user; user_id is unique. A racing
// first add loses the insert quietly and reads the winner's cart.
func (r *CartRepository) GetOrCreateCart(tx *gorm.DB, userID uint) (*entity.Cart, error) {
	c, err := r.FindCart(tx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	nc := entity.Cart{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&nc).Error; err != nil {
		return nil, err
	}
	return r.FindCart(tx, userID)
}

func (r *CartRepository) FindItem(tx *gorm.DB, cartID, productID uint) (*entity.CartItem, error) {
	var it entity.CartItem
	if err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// UpsertItem adds qty to the (cart, product) line, creating it if needed.
// The add happens in the insert itself so concurrent adds both land.
func (r *CartRepository) UpsertItem(tx *gorm.DB, cartID, productID uint, qty int) (*entity.CartItem, error) {
	row := &entity.CartItem{CartID: cartID, ProductID: productID, Quantity: qty}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
			"updated_at": time.Now(),
		}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.FindItem(tx, cartID, productID)
}

func (r *CartRepository) SetQuantity(tx *gorm.DB, cartID, productID uint, qty int) (int64, error) {
	res := tx.Model(&entity.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", qty)
	return res.RowsAffected, res.Error
}

func (r *CartRepository) RemoveItem(tx *gorm.DB, cartID, productID uint) (int64, error) {
	res := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&entity.CartItem{})
	return res.RowsAffected, res.Error
}

// ItemsByIDs returns only the ids that belong to cartID.
func (r *CartRepository) ItemsByIDs(tx *gorm.DB, cartID uint, ids []uint) ([]entity.CartItem, error) {
	var out []entity.CartItem
	if len(ids) == 0 {
		return out, nil
	}
	err := tx.Preload("Product").
		Where("cart_id = ? AND id IN ?", cartID, ids).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r *CartRepository) DeleteItem(tx *gorm.DB, itemID uint) error {
	return tx.Delete(&entity.CartItem{}, itemID).Error
}

func (r *CartRepository) ClearCart(tx *gorm.DB, userID uint) error {
	c, err := r.FindCart(tx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Where("cart_id = ?", c.ID).Delete(&entity.CartItem{}).Error
}
