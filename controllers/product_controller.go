package controllers

import (
	"bytes"
	"io"
	"strconv"

	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/repository"
	"github.com/duckieducksrgood/winchpoint/services"

	"github.com/gin-gonic/gin"
)

const maxImportBytes = 10 << 20

type ProductController struct{ Svc *services.CatalogService }

func NewProductController(s *services.CatalogService) *ProductController {
	return &ProductController{Svc: s}
}

// GET /products?category=&onSale=&q=
func (h *ProductController) List(c *gin.Context) {
	var f repository.ProductFilter
	if v := c.Query("category"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			resp.BadRequest(c, "invalid category")
			return
		}
		f.CategoryID = uint(id)
	}
	if v := c.Query("onSale"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			resp.BadRequest(c, "invalid onSale")
			return
		}
		f.OnSale = &b
	}
	f.Search = c.Query("q")

	items, err := h.Svc.ListProducts(f)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, items)
}

// GET /products/:id
func (h *ProductController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.Svc.GetProduct(id)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, p)
}

// POST /products
func (h *ProductController) Create(c *gin.Context) {
	var in services.ProductIn
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.Svc.CreateProduct(&in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, p)
}

// PATCH /products/:id
func (h *ProductController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.ProductPatch
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.Svc.UpdateProduct(id, &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, p)
}

// DELETE /products/:id
func (h *ProductController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteProduct(id); err != nil {
		fail(c, err)
		return
	}
	resp.NoContent(c)
}

// GET /products/export
func (h *ProductController) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Svc.ExportProducts(&buf); err != nil {
		fail(c, err)
		return
	}
	resp.File(c, "products.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// POST /products/import (multipart field "file")
func (h *ProductController) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		resp.BadRequest(c, "file is required")
		return
	}
	if fh.Size > maxImportBytes {
		resp.BadRequest(c, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
	if err != nil {
		fail(c, err)
		return
	}

	res, err := h.Svc.ImportProducts(data)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, res)
}
