package controllers

import (
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"
	"github.com/duckieducksrgood/winchpoint/utils"

	"github.com/gin-gonic/gin"
)

type CartController struct{ Svc *services.CartService }

func NewCartController(s *services.CartService) *CartController { return &CartController{Svc: s} }

// GET /cart
func (h *CartController) Get(c *gin.Context) {
	v, err := h.Svc.Get(utils.CurrentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, v)
}

// POST /cart/items
func (h *CartController) Add(c *gin.Context) {
	var req services.AddToCartIn
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.Svc.Add(utils.CurrentUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, item)
}

// PATCH /cart/items/:productId
func (h *CartController) UpdateQty(c *gin.Context) {
	pid, ok := paramID(c, "productId")
	if !ok {
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := h.Svc.UpdateQty(utils.CurrentUserID(c), pid, body.Quantity); err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, gin.H{"productId": pid, "quantity": body.Quantity})
}

// DELETE /cart/items/:productId
func (h *CartController) RemoveItem(c *gin.Context) {
	pid, ok := paramID(c, "productId")
	if !ok {
		return
	}
	if err := h.Svc.RemoveItem(utils.CurrentUserID(c), pid); err != nil {
		fail(c, err)
		return
	}
	resp.NoContent(c)
}

// DELETE /cart
func (h *CartController) Clear(c *gin.Context) {
	if err := h.Svc.Clear(utils.CurrentUserID(c)); err != nil {
		fail(c, err)
		return
	}
	resp.NoContent(c)
}
