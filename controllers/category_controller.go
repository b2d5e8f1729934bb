package controllers

import (
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"

	"github.com/gin-gonic/gin"
)

type CategoryController struct{ Svc *services.CatalogService }

func NewCategoryController(s *services.CatalogService) *CategoryController {
	return &CategoryController{Svc: s}
}

// GET /categories
func (h *CategoryController) List(c *gin.Context) {
	items, err := h.Svc.ListCategories()
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, items)
}

// GET /categories/:id
func (h *CategoryController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cat, err := h.Svc.GetCategory(id)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, cat)
}

// POST /categories
func (h *CategoryController) Create(c *gin.Context) {
	var in services.CategoryIn
	if !bindJSON(c, &in) {
		return
	}
	cat, err := h.Svc.CreateCategory(&in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, cat)
}

// PATCH /categories/:id
func (h *CategoryController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.CategoryPatch
	if !bindJSON(c, &in) {
		return
	}
	cat, err := h.Svc.UpdateCategory(id, &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, cat)
}

// DELETE /categories/:id
func (h *CategoryController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteCategory(id); err != nil {
		fail(c, err)
		return
	}
	resp.NoContent(c)
}
