package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/repository"
	"github.com/campus-hq/registrar-api/internal/service"
)

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

type listEnvelope struct {
	Data       []map[string]interface{} `json:"data"`
	Pagination map[string]interface{}   `json:"pagination"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type handlerFixture struct {
	studentRepo *repository.MemoryStudentRepository
	courseRepo  *repository.MemoryCourseRepository
	students    *service.StudentService
	courses     *service.CourseService
	registry    *service.RegistryService
	transcripts *service.TranscriptService
	reports     *service.ReportService
}

// newHandlerFixture wires the full service stack on the memory stores with
// three students and four courses seeded.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	ctx := context.Background()
	studentRepo := repository.NewMemoryStudentRepository(nil)
	courseRepo := repository.NewMemoryCourseRepository()

	for _, s := range []*models.Student{
		{RegNo: "REG001", FullName: "Alice Carter", Email: "alice@campus.edu", Status: models.StudentStatusActive},
		{RegNo: "REG002", FullName: "Ben Okafor", Email: "ben@campus.edu", Status: models.StudentStatusActive},
		{RegNo: "REG003", FullName: "Carol Diaz", Email: "carol@campus.edu", Status: models.StudentStatusSuspended},
	} {
		require.NoError(t, studentRepo.Create(ctx, s))
	}

	for _, c := range []*models.Course{
		{Code: "CS101", Title: "Intro to Computer Science", Credits: 3, Instructor: "Dr. Hall", Semester: models.SemesterFall, Department: "Computer Science", Active: true},
		{Code: "MA201", Title: "Calculus II", Credits: 4, Instructor: "Dr. Pell", Semester: models.SemesterFall, Department: "Mathematics", Active: true},
		{Code: "PH301", Title: "Waves and Optics", Credits: 2, Instructor: "Dr. Novak", Semester: models.SemesterSpring, Department: "Physics", Active: true},
		{Code: "HS110", Title: "Ancient History", Credits: 3, Instructor: "Dr. Unwin", Semester: models.SemesterFall, Department: "History", Active: false},
	} {
		require.NoError(t, courseRepo.Create(ctx, c))
	}

	registry := service.NewRegistryService(studentRepo, courseRepo, nil, 0, nil, nil, nil)
	return &handlerFixture{
		studentRepo: studentRepo,
		courseRepo:  courseRepo,
		students:    service.NewStudentService(studentRepo, nil, nil),
		courses:     service.NewCourseService(courseRepo, nil, nil),
		registry:    registry,
		transcripts: service.NewTranscriptService(studentRepo, registry, nil, 0, nil),
		reports:     service.NewReportService(studentRepo, courseRepo, registry, nil),
	}
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func TestStudentHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	c, w := newGinContext(http.MethodGet, "/students?status=active&sort=reg_no&order=asc", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "REG001", envelope.Data[0]["reg_no"])
	assert.EqualValues(t, 2, envelope.Pagination["total_count"])
}

func TestStudentHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	c, w := newGinContext(http.MethodGet, "/students/1", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Alice Carter", envelope.Data["full_name"])
}

func TestStudentHandlerGetInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	c, w := newGinContext(http.MethodGet, "/students/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Get(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w.Body.Bytes()).Error.Code)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	c, w := newGinContext(http.MethodGet, "/students/99", nil)
	c.Params = gin.Params{{Key: "id", Value: "99"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	payload, _ := json.Marshal(service.CreateStudentRequest{
		RegNo:    "REG004",
		FullName: "Dan Field",
		Email:    "dan@campus.edu",
	})
	c, w := newGinContext(http.MethodPost, "/students", payload)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.EqualValues(t, 4, envelope.Data["id"])
	assert.Equal(t, string(models.StudentStatusActive), envelope.Data["status"])
}

func TestStudentHandlerCreateDuplicateRegNo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	payload, _ := json.Marshal(service.CreateStudentRequest{
		RegNo:    "REG001",
		FullName: "Imposter",
		Email:    "imposter@campus.edu",
	})
	c, w := newGinContext(http.MethodPost, "/students", payload)
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestStudentHandlerCreateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	c, w := newGinContext(http.MethodPost, "/students", []byte("{not json"))
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	payload, _ := json.Marshal(service.UpdateStudentRequest{
		RegNo:    "REG001",
		FullName: "Alice B. Carter",
		Email:    "alice@campus.edu",
	})
	c, w := newGinContext(http.MethodPut, "/students/1", payload)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Alice B. Carter", envelope.Data["full_name"])
}

func TestStudentHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	payload, _ := json.Marshal(UpdateStudentStatusRequest{Status: "graduated"})
	c, w := newGinContext(http.MethodPatch, "/students/2/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, string(models.StudentStatusGraduated), envelope.Data["status"])
}

func TestStudentHandlerUpdateStatusRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	payload, _ := json.Marshal(UpdateStudentStatusRequest{Status: "  "})
	c, w := newGinContext(http.MethodPatch, "/students/2/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status is required", decodeError(t, w.Body.Bytes()).Error.Message)
}

func TestStudentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewStudentHandler(fx.students)

	c, w := newGinContext(http.MethodDelete, "/students/1", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Delete(c)

	require.Equal(t, http.StatusNoContent, w.Code)
	student, err := fx.studentRepo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInactive, student.Status)
}
