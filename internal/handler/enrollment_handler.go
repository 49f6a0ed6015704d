package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/service"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
	"github.com/campus-hq/registrar-api/pkg/response"
)

// EnrollRequest identifies the student/course pair to enroll.
type EnrollRequest struct {
	StudentID  int64  `json:"student_id"`
	CourseCode string `json:"course_code"`
}

// GradeRequest assigns or corrects a grade on an enrollment pair.
type GradeRequest struct {
	StudentID  int64  `json:"student_id"`
	CourseCode string `json:"course_code"`
	Grade      string `json:"grade"`
}

// EnrollmentHandler exposes registry endpoints.
type EnrollmentHandler struct {
	registry *service.RegistryService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(registry *service.RegistryService) *EnrollmentHandler {
	return &EnrollmentHandler{registry: registry}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query int false "Filter by student"
// @Param courseCode query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Param semester query string false "Filter by semester"
// @Param graded query bool false "Filter by grade presence"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	if id, err := strconv.ParseInt(c.Query("studentId"), 10, 64); err == nil {
		filter.StudentID = id
	}
	filter.CourseCode = strings.TrimSpace(c.Query("courseCode"))
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	filter.Semester = models.Semester(strings.ToUpper(c.Query("semester")))
	if graded := c.Query("graded"); graded != "" {
		if parsed, err := strconv.ParseBool(graded); err == nil {
			filter.Graded = &parsed
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.registry.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Create godoc
// @Summary Enroll student in course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := validatePair(req.StudentID, req.CourseCode); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.registry.Enroll(c.Request.Context(), req.StudentID, req.CourseCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Unenroll student from course
// @Tags Enrollments
// @Produce json
// @Param studentId query int true "Student ID"
// @Param courseCode query string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /enrollments [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	studentID, err := strconv.ParseInt(c.Query("studentId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId is required"))
		return
	}
	courseCode := strings.TrimSpace(c.Query("courseCode"))
	if err := validatePair(studentID, courseCode); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.registry.Unenroll(c.Request.Context(), studentID, courseCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	// A withdrawn record comes back for graded seats; ungraded seats vanish.
	if enrollment == nil {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// RecordGrade godoc
// @Summary Record a grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/grade [post]
func (h *EnrollmentHandler) RecordGrade(c *gin.Context) {
	h.applyGrade(c, h.registry.RecordGrade)
}

// UpdateGrade godoc
// @Summary Correct a recorded grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/grade [put]
func (h *EnrollmentHandler) UpdateGrade(c *gin.Context) {
	h.applyGrade(c, h.registry.UpdateGrade)
}

// StudentEnrollments godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) StudentEnrollments(c *gin.Context) {
	id, err := studentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollments := h.registry.StudentEnrollments(c.Request.Context(), id)
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// CourseEnrollments godoc
// @Summary List a course's enrollments
// @Tags Enrollments
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/enrollments [get]
func (h *EnrollmentHandler) CourseEnrollments(c *gin.Context) {
	enrollments, err := h.registry.CourseEnrollments(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

func (h *EnrollmentHandler) applyGrade(c *gin.Context, apply func(ctx context.Context, studentID int64, courseCode string, grade models.Grade) (*models.Enrollment, error)) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := validatePair(req.StudentID, req.CourseCode); err != nil {
		response.Error(c, err)
		return
	}
	grade, err := models.ParseGrade(req.Grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := apply(c.Request.Context(), req.StudentID, req.CourseCode, grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

func validatePair(studentID int64, courseCode string) error {
	if studentID <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if strings.TrimSpace(courseCode) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "course_code is required")
	}
	return nil
}
