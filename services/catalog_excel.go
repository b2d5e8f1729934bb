package services

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

var catalogHeaders = []string{"Name", "Description", "Price", "Stock", "Category", "On Sale", "Sale Price", "Image"}

// ExportProducts writes the whole catalog as a spreadsheet the import can read back.
func (s *CatalogService) ExportProducts(w io.Writer) error {
	products, err := s.ProductRepo.List(repository.ProductFilter{})
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	for _, h := range catalogHeaders {
		header.AddCell().SetString(h)
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		cat := ""
		if p.Category != nil {
			cat = p.Category.Name
		}
		row.AddCell().SetString(cat)
		row.AddCell().SetBool(p.OnSale)
		row.AddCell().SetString(p.SalePrice.StringFixed(2))
		row.AddCell().SetString(p.Image)
	}
	return file.Write(w)
}

type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped"`
}

// ImportProducts upserts products by name. Unknown categories are created.
// Bad rows are skipped and reported; good rows commit together.
func (s *CatalogService) ImportProducts(data []byte) (*ImportResult, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, Validation("not a readable xlsx file")
	}
	if len(file.Sheets) == 0 {
		return nil, Validation("spreadsheet has no sheets")
	}
	sheet := file.Sheets[0]

	out := &ImportResult{Skipped: []string{}}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		categories := map[string]uint{}
		for i, row := range sheet.Rows {
			if i == 0 || row == nil {
				continue
			}
			cell := func(idx int) string {
				if idx < len(row.Cells) {
					return strings.TrimSpace(row.Cells[idx].String())
				}
				return ""
			}
			if cell(0) == "" {
				continue
			}

			in, catName, perr := parseProductRow(cell)
			if perr != nil {
				out.Skipped = append(out.Skipped, fmt.Sprintf("row %d: %v", i+1, perr))
				continue
			}
			catID, err := categoryIDByName(tx, categories, catName)
			if err != nil {
				return err
			}
			in.CategoryID = catID

			existing, err := s.ProductRepo.FindByName(tx, in.Name)
			switch {
			case err == nil:
				// the sheet is a stock count, so stock is set outright here
				cols := map[string]any{
					"description": in.Description, "price": in.Price, "stock": in.Stock,
					"category_id": in.CategoryID, "on_sale": in.OnSale, "sale_price": in.SalePrice,
				}
				if in.Image != "" {
					cols["image"] = in.Image
				}
				if err := s.ProductRepo.Patch(tx, existing.ID, cols); err != nil {
					return err
				}
				out.Updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := s.ProductRepo.Create(tx, in); err != nil {
					return err
				}
				out.Created++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseProductRow(cell func(int) string) (*entity.Product, string, error) {
	price, err := decimal.NewFromString(cell(2))
	if err != nil || !price.IsPositive() {
		return nil, "", fmt.Errorf("invalid price %q", cell(2))
	}
	stock, err := strconv.Atoi(cell(3))
	if err != nil || stock < 0 {
		return nil, "", fmt.Errorf("invalid stock %q", cell(3))
	}
	catName := cell(4)
	if catName == "" {
		return nil, "", errors.New("missing category")
	}
	onSale := parseBoolCell(cell(5))
	sale := decimal.Zero
	if v := cell(6); v != "" {
		if sale, err = decimal.NewFromString(v); err != nil {
			return nil, "", fmt.Errorf("invalid sale price %q", v)
		}
	}
	if onSale && (!sale.IsPositive() || sale.GreaterThan(price)) {
		return nil, "", fmt.Errorf("sale price %q out of range", cell(6))
	}
	return &entity.Product{
		Name:        cell(0),
		Description: cell(1),
		Price:       price,
		Stock:       stock,
		OnSale:      onSale,
		SalePrice:   sale,
		Image:       cell(7),
	}, catName, nil
}

func parseBoolCell(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func categoryIDByName(tx *gorm.DB, cache map[string]uint, name string) (uint, error) {
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}
	var c entity.Category
	if err := tx.Where("LOWER(name) = ?", key).Attrs(entity.Category{Name: name}).FirstOrCreate(&c).Error; err != nil {
		return 0, err
	}
	cache[key] = c.ID
	return c.ID, nil
}
