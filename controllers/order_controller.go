package controllers

import (
	"strconv"

	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"
	"github.com/duckieducksrgood/winchpoint/utils"

	"github.com/gin-gonic/gin"
)

type OrderController struct{ Svc *services.OrderService }

func NewOrderController(s *services.OrderService) *OrderController { return &OrderController{Svc: s} }

// POST /orders
func (h *OrderController) Checkout(c *gin.Context) {
	var in services.CheckoutIn
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Svc.Checkout(c.Request.Context(), utils.CurrentUserID(c), &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, res)
}

// GET /orders?status=&page=&limit=
func (h *OrderController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.Svc.List(actorOf(c), c.Query("status"), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, out)
}

// GET /orders/:id
func (h *OrderController) Detail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.Svc.Detail(actorOf(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, o)
}

// PATCH /orders/:id
func (h *OrderController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.OrderUpdateIn
	if !bindJSON(c, &in) {
		return
	}
	o, err := h.Svc.Update(c.Request.Context(), actorOf(c), id, &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, o)
}

// DELETE /orders/:id cancels; orders are never removed.
func (h *OrderController) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.Svc.Cancel(c.Request.Context(), actorOf(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, o)
}
