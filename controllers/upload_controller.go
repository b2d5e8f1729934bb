package controllers

import (
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"

	"github.com/gin-gonic/gin"
)

type UploadController struct{ Svc *services.UploadService }

func NewUploadController(s *services.UploadService) *UploadController {
	return &UploadController{Svc: s}
}

// POST /uploads/presign
func (h *UploadController) Presign(c *gin.Context) {
	var in services.UploadIn
	if !bindJSON(c, &in) {
		return
	}
	out, err := h.Svc.Presign(c.Request.Context(), actorOf(c), &in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, out)
}
