package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edubridge/edubridge-api/internal/service"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
	"github.com/edubridge/edubridge-api/pkg/response"
)

// ReportHandler exposes per-student report downloads.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func reportFormat(c *gin.Context) (service.ReportFormat, bool) {
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		return service.FormatCSV, true
	case "pdf":
		return service.FormatPDF, true
	default:
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return "", false
	}
}

func writeReport(c *gin.Context, report *service.Report) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}

// Grades godoc
// @Summary Download a student's grade report
// @Tags Reports
// @Produce text/csv
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /reports/students/{id}/grades [get]
func (h *ReportHandler) Grades(c *gin.Context) {
	format, ok := reportFormat(c)
	if !ok {
		return
	}
	report, err := h.reports.GradeReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, report)
}

// Attendance godoc
// @Summary Download a student's attendance report
// @Tags Reports
// @Produce text/csv
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /reports/students/{id}/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	format, ok := reportFormat(c)
	if !ok {
		return
	}
	report, err := h.reports.AttendanceReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, report)
}
