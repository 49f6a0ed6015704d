package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/registrar-api/internal/service"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
	"github.com/campus-hq/registrar-api/pkg/response"
)

// ReportHandler exposes read-only aggregation endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GPADistribution godoc
// @Summary GPA distribution across standing bands
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/gpa-distribution [get]
func (h *ReportHandler) GPADistribution(c *gin.Context) {
	distribution, err := h.reports.GPADistribution(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, distribution, nil)
}

// TopStudents godoc
// @Summary Highest GPA students
// @Tags Reports
// @Produce json
// @Param limit query int false "Result size (default 10)"
// @Success 200 {object} response.Envelope
// @Router /reports/top-students [get]
func (h *ReportHandler) TopStudents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
		return
	}
	students, err := h.reports.TopStudents(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// CourseStats godoc
// @Summary Per-course enrollment statistics
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/course-stats [get]
func (h *ReportHandler) CourseStats(c *gin.Context) {
	stats, err := h.reports.CourseStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// DepartmentStats godoc
// @Summary Courses per department
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/department-stats [get]
func (h *ReportHandler) DepartmentStats(c *gin.Context) {
	stats, err := h.reports.DepartmentStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// GradeDistribution godoc
// @Summary Grade counts across graded enrollments
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/grade-distribution [get]
func (h *ReportHandler) GradeDistribution(c *gin.Context) {
	distribution, err := h.reports.GradeDistribution(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, distribution, nil)
}
