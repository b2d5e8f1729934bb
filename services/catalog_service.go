package services

import (
	"errors"
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CatalogService struct {
	DB           *gorm.DB
	ProductRepo  *repository.ProductRepository
	CategoryRepo *repository.CategoryRepository
}

func NewCatalogService(db *gorm.DB, pr *repository.ProductRepository, cr *repository.CategoryRepository) *CatalogService {
	return &CatalogService{DB: db, ProductRepo: pr, CategoryRepo: cr}
}

// ----- Products -----

type ProductIn struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	CategoryID  uint            `json:"categoryId"`
	OnSale      bool            `json:"onSale"`
	SalePrice   decimal.Decimal `json:"salePrice"`
}

// ProductPatch: nil fields keep their value.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Image       *string          `json:"image"`
	CategoryID  *uint            `json:"categoryId"`
	OnSale      *bool            `json:"onSale"`
	SalePrice   *decimal.Decimal `json:"salePrice"`
}

func (s *CatalogService) ListProducts(f repository.ProductFilter) ([]entity.Product, error) {
	return s.ProductRepo.List(f)
}

func (s *CatalogService) GetProduct(id uint) (*entity.Product, error) {
	p, err := s.ProductRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("product")
	}
	return p, err
}

func (s *CatalogService) CreateProduct(in *ProductIn) (*entity.Product, error) {
	p := &entity.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       strings.TrimSpace(in.Image),
		CategoryID:  in.CategoryID,
		OnSale:      in.OnSale,
		SalePrice:   in.SalePrice,
	}
	if err := s.validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.ProductRepo.Create(s.DB, p); err != nil {
		return nil, err
	}
	return s.ProductRepo.FindByID(p.ID)
}

func (s *CatalogService) UpdateProduct(id uint, in *ProductPatch) (*entity.Product, error) {
	p, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}
	cols := map[string]any{}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
		cols["name"] = p.Name
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
		cols["description"] = p.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
		cols["price"] = p.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
		cols["stock"] = p.Stock
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
		cols["image"] = p.Image
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
		p.Category = nil
		cols["category_id"] = p.CategoryID
	}
	if in.OnSale != nil {
		p.OnSale = *in.OnSale
		cols["on_sale"] = p.OnSale
	}
	if in.SalePrice != nil {
		p.SalePrice = *in.SalePrice
		cols["sale_price"] = p.SalePrice
	}
	// validated against the read snapshot; stock is only written when the
	// patch carries it, so concurrent checkouts keep their decrements
	if err := s.validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.ProductRepo.Patch(s.DB, p.ID, cols); err != nil {
		return nil, err
	}
	return s.ProductRepo.FindByID(p.ID)
}

func (s *CatalogService) DeleteProduct(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		n, err := s.ProductRepo.Delete(tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return NotFound("product")
		}
		return nil
	})
}

func (s *CatalogService) validateProduct(p *entity.Product) error {
	var bad []string
	if p.Name == "" {
		bad = append(bad, "name")
	}
	if p.Price.IsNegative() || p.Price.IsZero() {
		bad = append(bad, "price")
	}
	if p.Stock < 0 {
		bad = append(bad, "stock")
	}
	if p.SalePrice.IsNegative() || (p.OnSale && (!p.SalePrice.IsPositive() || p.SalePrice.GreaterThan(p.Price))) {
		bad = append(bad, "salePrice")
	}
	if p.CategoryID == 0 {
		bad = append(bad, "categoryId")
	}
	if len(bad) > 0 {
		return Validation("invalid product fields", bad...)
	}
	ok, err := s.CategoryRepo.Exists(p.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return Validation("category does not exist", "categoryId")
	}
	return nil
}

// ----- Categories -----

type CategoryIn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *CatalogService) ListCategories() ([]entity.Category, error) {
	return s.CategoryRepo.List()
}

func (s *CatalogService) GetCategory(id uint) (*entity.Category, error) {
	c, err := s.CategoryRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("category")
	}
	return c, err
}

func (s *CatalogService) CreateCategory(in *CategoryIn) (*entity.Category, error) {
	c := &entity.Category{Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description)}
	if c.Name == "" {
		return nil, Validation("category name is required", "name")
	}
	if err := s.CategoryRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *CatalogService) UpdateCategory(id uint, in *CategoryPatch) (*entity.Category, error) {
	c, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if c.Name = strings.TrimSpace(*in.Name); c.Name == "" {
			return nil, Validation("category name is required", "name")
		}
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.CategoryRepo.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory refuses while products still point at the category.
func (s *CatalogService) DeleteCategory(id uint) error {
	n, err := s.ProductRepo.CountByCategory(id)
	if err != nil {
		return err
	}
	if n > 0 {
		return Validation("category still has products")
	}
	deleted, err := s.CategoryRepo.Delete(id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return NotFound("category")
	}
	return nil
}
