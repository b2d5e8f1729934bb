package controllers

import (
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"

	"github.com/gin-gonic/gin"
)

type PasswordResetController struct {
	Svc *services.PasswordResetService
}

func NewPasswordResetController(s *services.PasswordResetService) *PasswordResetController {
	return &PasswordResetController{Svc: s}
}

type resetRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// POST /auth/password-reset/request
func (h *PasswordResetController) Request(c *gin.Context) {
	var req resetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.Request(c.Request.Context(), req.Email); err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, gin.H{"message": "reset code sent"})
}

// POST /auth/password-reset/verify
func (h *PasswordResetController) Verify(c *gin.Context) {
	var req resetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.Verify(req.Email, req.Code); err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, gin.H{"message": "code verified"})
}

// POST /auth/password-reset/confirm
func (h *PasswordResetController) Confirm(c *gin.Context) {
	var req resetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.Confirm(req.Email, req.Code, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, gin.H{"message": "password updated"})
}
