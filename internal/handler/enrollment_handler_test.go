package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/registrar-api/internal/models"
)

func TestEnrollmentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)

	payload, _ := json.Marshal(EnrollRequest{StudentID: 1, CourseCode: "cs101"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "CS101", envelope.Data["course_code"])
	assert.Equal(t, string(models.EnrollmentEnrolled), envelope.Data["status"])
}

func TestEnrollmentHandlerCreateDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)

	payload, _ := json.Marshal(EnrollRequest{StudentID: 1, CourseCode: "CS101"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodPost, "/enrollments", payload)
	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestEnrollmentHandlerCreateMissingPair(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)

	payload, _ := json.Marshal(EnrollRequest{StudentID: 1})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "course_code is required", decodeError(t, w.Body.Bytes()).Error.Message)
}

func TestEnrollmentHandlerDeleteUngraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)

	c, w := newGinContext(http.MethodDelete, "/enrollments?studentId=1&courseCode=CS101", nil)
	handler.Delete(c)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, fx.registry.StudentEnrollments(ctx, 1))
}

func TestEnrollmentHandlerDeleteGraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)
	_, err = fx.registry.RecordGrade(ctx, 1, "CS101", models.GradeB)
	require.NoError(t, err)

	c, w := newGinContext(http.MethodDelete, "/enrollments?studentId=1&courseCode=CS101", nil)
	handler.Delete(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, string(models.EnrollmentWithdrawn), envelope.Data["status"])
	assert.Equal(t, string(models.GradeW), envelope.Data["grade"])
}

func TestEnrollmentHandlerDeleteRequiresStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)

	c, w := newGinContext(http.MethodDelete, "/enrollments?courseCode=CS101", nil)
	handler.Delete(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerRecordGrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)

	payload, _ := json.Marshal(GradeRequest{StudentID: 1, CourseCode: "CS101", Grade: "a"})
	c, w := newGinContext(http.MethodPost, "/enrollments/grade", payload)
	handler.RecordGrade(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, string(models.GradeA), envelope.Data["grade"])
	assert.Equal(t, string(models.EnrollmentCompleted), envelope.Data["status"])
}

func TestEnrollmentHandlerRecordGradeUnknownGrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)

	payload, _ := json.Marshal(GradeRequest{StudentID: 1, CourseCode: "CS101", Grade: "Z"})
	c, w := newGinContext(http.MethodPost, "/enrollments/grade", payload)
	handler.RecordGrade(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerUpdateGrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)
	_, err = fx.registry.RecordGrade(ctx, 1, "CS101", models.GradeC)
	require.NoError(t, err)

	payload, _ := json.Marshal(GradeRequest{StudentID: 1, CourseCode: "CS101", Grade: "B"})
	c, w := newGinContext(http.MethodPut, "/enrollments/grade", payload)
	handler.UpdateGrade(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, string(models.GradeB), envelope.Data["grade"])
	// Correction path never touches the lifecycle state.
	assert.Equal(t, string(models.EnrollmentCompleted), envelope.Data["status"])
}

func TestEnrollmentHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)
	_, err = fx.registry.Enroll(ctx, 1, "MA201")
	require.NoError(t, err)
	_, err = fx.registry.Enroll(ctx, 2, "CS101")
	require.NoError(t, err)
	_, err = fx.registry.RecordGrade(ctx, 1, "CS101", models.GradeA)
	require.NoError(t, err)

	c, w := newGinContext(http.MethodGet, "/enrollments?studentId=1&graded=true", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "CS101", envelope.Data[0]["course_code"])
	assert.EqualValues(t, 1, envelope.Pagination["total_count"])
}

func TestEnrollmentHandlerStudentEnrollments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)
	_, err = fx.registry.Enroll(ctx, 1, "PH301")
	require.NoError(t, err)

	c, w := newGinContext(http.MethodGet, "/students/1/enrollments", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.StudentEnrollments(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
}

func TestEnrollmentHandlerCourseEnrollments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewEnrollmentHandler(fx.registry)
	ctx := context.Background()

	_, err := fx.registry.Enroll(ctx, 1, "CS101")
	require.NoError(t, err)
	_, err = fx.registry.Enroll(ctx, 2, "CS101")
	require.NoError(t, err)

	c, w := newGinContext(http.MethodGet, "/courses/CS101/enrollments", nil)
	c.Params = gin.Params{{Key: "code", Value: "CS101"}}
	handler.CourseEnrollments(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)

	c, w = newGinContext(http.MethodGet, "/courses/not-a-code/enrollments", nil)
	c.Params = gin.Params{{Key: "code", Value: "not-a-code"}}
	handler.CourseEnrollments(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
