package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/registrar-api/internal/repository"
	"github.com/campus-hq/registrar-api/internal/service"
	"github.com/campus-hq/registrar-api/pkg/jobs"
	"github.com/campus-hq/registrar-api/pkg/storage"
)

func buildTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	metrics := service.NewMetricsService()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("router-test-secret", time.Hour)
	exporter := service.NewExportService(fx.studentRepo, fx.courseRepo, fx.registry, fx.reports, store, signer, service.ExportConfig{}, nil, nil, nil)
	queue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error { return nil }, jobs.QueueConfig{})
	exportJobs := service.NewExportJobService(repository.NewExportJobRepository(), queue, exporter, metrics, nil, service.ExportJobConfig{})

	backups, err := service.NewBackupService(fx.studentRepo, fx.courseRepo, fx.registry, t.TempDir(), nil)
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(r, "/api/v1", Handlers{
		Students:    NewStudentHandler(fx.students),
		Courses:     NewCourseHandler(fx.courses),
		Enrollments: NewEnrollmentHandler(fx.registry),
		Transcripts: NewTranscriptHandler(fx.transcripts),
		Reports:     NewReportHandler(fx.reports),
		Exports:     NewExportHandler(exportJobs),
		Imports:     NewImportHandler(service.NewImportService(fx.students, fx.courses, nil), 0),
		Backups:     NewBackupHandler(backups),
		Metrics:     NewMetricsHandler(metrics),
	})
	return r
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterIntegration(t *testing.T) {
	router := buildTestRouter(t)

	t.Run("health endpoints", func(t *testing.T) {
		for _, path := range []string{"/health", "/ready", "/metrics"} {
			req, _ := http.NewRequest(http.MethodGet, path, nil)
			resp := performRequest(router, req)
			require.Equal(t, http.StatusOK, resp.Code, path)
		}
	})

	t.Run("enrollment flow", func(t *testing.T) {
		body := bytes.NewBufferString(`{"reg_no":"REG020","full_name":"Gil Tran","email":"gil@campus.edu"}`)
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/students", body)
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)

		body = bytes.NewBufferString(`{"student_id":4,"course_code":"CS101"}`)
		req, _ = http.NewRequest(http.MethodPost, "/api/v1/enrollments", body)
		req.Header.Set("Content-Type", "application/json")
		resp = performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)

		body = bytes.NewBufferString(`{"student_id":4,"course_code":"CS101","grade":"A"}`)
		req, _ = http.NewRequest(http.MethodPost, "/api/v1/enrollments/grade", body)
		req.Header.Set("Content-Type", "application/json")
		resp = performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)

		req, _ = http.NewRequest(http.MethodGet, "/api/v1/students/4/transcript", nil)
		resp = performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"gpa":4`)

		req, _ = http.NewRequest(http.MethodGet, "/api/v1/reports/top-students", nil)
		resp = performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), "REG020")
	})

	t.Run("export routes resolve", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/exports/no-such-job", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)

		req, _ = http.NewRequest(http.MethodGet, "/api/v1/exports/download/garbage-token", nil)
		resp = performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("import route", func(t *testing.T) {
		c, w := newMultipartContext(t, "/api/v1/imports/courses", "courses.csv",
			"code,title,credits,instructor,semester,department,active\nCH210,Organic Chemistry,4,Dr. Wu,SPRING,Chemistry,true\n")
		router.ServeHTTP(w, c.Request)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("backup route", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/backups", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("system metrics", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/system/metrics", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), "requests_total")
	})
}
