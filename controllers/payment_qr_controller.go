package controllers

import (
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"

	"github.com/gin-gonic/gin"
)

type PaymentQRController struct{ Svc *services.PaymentQRService }

func NewPaymentQRController(s *services.PaymentQRService) *PaymentQRController {
	return &PaymentQRController{Svc: s}
}

func (h *PaymentQRController) List(c *gin.Context) {
	items, err := h.Svc.List()
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, items)
}

func (h *PaymentQRController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.Svc.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, q)
}

func (h *PaymentQRController) Create(c *gin.Context) {
	var in services.PaymentQRIn
	if !bindJSON(c, &in) {
		return
	}
	q, err := h.Svc.Create(&in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, q)
}

func (h *PaymentQRController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.PaymentQRIn
	if !bindJSON(c, &in) {
		return
	}
	q, err := h.Svc.Update(id, &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, q)
}

func (h *PaymentQRController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		fail(c, err)
		return
	}
	resp.NoContent(c)
}
