package controllers

import (
	"strconv"
	"time"

	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"

	"github.com/gin-gonic/gin"
)

type ReportController struct{ Svc *services.ReportService }

func NewReportController(s *services.ReportService) *ReportController {
	return &ReportController{Svc: s}
}

func yearParam(c *gin.Context) (int, bool) {
	v := c.Query("year")
	if v == "" {
		return time.Now().Year(), true
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		resp.ValidationFailed(c, "invalid year", []string{"year"})
		return 0, false
	}
	return y, true
}

// GET /reports/revenue?year=
func (h *ReportController) Revenue(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	rep, err := h.Svc.Revenue(c.Request.Context(), year)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, rep)
}

// GET /reports/revenue/export?year=&type=excel|pdf
func (h *ReportController) Export(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	f, err := h.Svc.Export(c.Request.Context(), year, c.DefaultQuery("type", "excel"))
	if err != nil {
		fail(c, err)
		return
	}
	resp.File(c, f.Filename, f.ContentType, f.Body)
}

// GET /reports/dashboard
func (h *ReportController) Dashboard(c *gin.Context) {
	st, err := h.Svc.Dashboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, st)
}
