package services

import (
	"errors"
	"fmt"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartService struct {
	DB          *gorm.DB
	CartRepo    *repository.CartRepository
	ProductRepo *repository.ProductRepository
}

func NewCartService(db *gorm.DB, cr *repository.CartRepository, pr *repository.ProductRepository) *CartService {
	return &CartService{DB: db, CartRepo: cr, ProductRepo: pr}
}

type AddToCartIn struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type CartView struct {
	Cart     *entity.Cart    `json:"cart"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Get returns the cart, creating an empty one on first use.
func (s *CartService) Get(userID uint) (*CartView, error) {
	var out *CartView
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.CartRepo.GetOrCreateCart(tx, userID); err != nil {
			return err
		}
		c, err := s.CartRepo.GetCartWithItems(tx, userID)
		if err != nil {
			return err
		}
		out = &CartView{Cart: c, Subtotal: c.Subtotal()}
		return nil
	})
	return out, err
}

// Add checks stock against the accumulated line quantity but reserves nothing.
// A rejected add leaves cart and lines untouched.
func (s *CartService) Add(userID uint, in *AddToCartIn) (*entity.CartItem, error) {
	if in.Quantity <= 0 {
		return nil, Validation("quantity must be greater than zero", "quantity")
	}

	var line *entity.CartItem
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var p entity.Product
		if err := tx.First(&p, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("product")
			}
			return err
		}

		already := 0
		if c, err := s.CartRepo.FindCart(tx, userID); err == nil {
			if it, err := s.CartRepo.FindItem(tx, c.ID, p.ID); err == nil {
				already = it.Quantity
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if p.Stock < already+in.Quantity {
			return Conflict(fmt.Sprintf("only %d of %s in stock", p.Stock, p.Name))
		}

		c, err := s.CartRepo.GetOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		line, err = s.CartRepo.UpsertItem(tx, c.ID, p.ID, in.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateQty sets the quantity of an existing (cart, product) line.
func (s *CartService) UpdateQty(userID, productID uint, qty int) error {
	if qty <= 0 {
		return Validation("quantity must be greater than zero", "quantity")
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := s.CartRepo.FindCart(tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("cart item")
		}
		if err != nil {
			return err
		}
		n, err := s.CartRepo.SetQuantity(tx, c.ID, productID, qty)
		if err != nil {
			return err
		}
		if n == 0 {
			return NotFound("cart item")
		}
		return nil
	})
}

func (s *CartService) RemoveItem(userID, productID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := s.CartRepo.FindCart(tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("cart item")
		}
		if err != nil {
			return err
		}
		n, err := s.CartRepo.RemoveItem(tx, c.ID, productID)
		if err != nil {
			return err
		}
		if n == 0 {
			return NotFound("cart item")
		}
		return nil
	})
}

func (s *CartService) Clear(userID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.CartRepo.ClearCart(tx, userID)
	})
}
