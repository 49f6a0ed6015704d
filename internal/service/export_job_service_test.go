package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/repository"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
	"github.com/campus-hq/registrar-api/pkg/jobs"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *queueStub) Depth() int {
	return len(q.jobs)
}

type generatorStub struct {
	result *ExportResult
	err    error
}

func (g generatorStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func newExportJobServiceForTest(t *testing.T) (*ExportJobService, *repository.ExportJobRepository, *queueStub, *ExportService) {
	t.Helper()
	repo := repository.NewExportJobRepository()
	queue := &queueStub{}
	exporter, _ := newExportServiceForTest(t)
	svc := NewExportJobService(repo, queue, exporter, nil, zap.NewNop(), ExportJobConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return svc, repo, queue, exporter
}

func TestExportJobServiceCreate(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)

	job, err := svc.CreateJob(context.Background(), CreateExportRequest{
		Type:      "transcript",
		Format:    "pdf",
		StudentID: int64Ptr(1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, models.ExportFormatPDF, job.Params.Format)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, job.ID, queue.jobs[0].ID)

	stored, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportTypeTranscript, stored.Type)

	// Format defaults to CSV when omitted.
	job, err = svc.CreateJob(context.Background(), CreateExportRequest{Type: "students"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, job.Params.Format)
}

func TestExportJobServiceCreateValidation(t *testing.T) {
	svc, _, queue, _ := newExportJobServiceForTest(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateExportRequest
	}{
		{"unknown type", CreateExportRequest{Type: "timetable"}},
		{"unsupported format", CreateExportRequest{Type: "students", Format: "xlsx"}},
		{"transcript without student", CreateExportRequest{Type: "transcript"}},
		{"bad semester", CreateExportRequest{Type: "enrollments", Semester: "WINTER"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateJob(ctx, tc.req)
			require.Error(t, err)
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
	assert.Empty(t, queue.jobs)
}

func TestExportJobServiceEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	queue.err = errors.New("queue stopped")

	_, err := svc.CreateJob(context.Background(), CreateExportRequest{Type: "courses"})
	require.Error(t, err)

	// The persisted job is marked failed so status polling does not hang.
	queued, err := repo.ListQueued(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestExportJobServiceGetStatus(t *testing.T) {
	svc, repo, _, _ := newExportJobServiceForTest(t)
	ctx := context.Background()

	job := &models.ExportJob{Type: models.ExportTypeStudents, Params: models.ExportParams{Format: models.ExportFormatCSV}}
	require.NoError(t, repo.Create(ctx, job))

	got, err := svc.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, got.Status)

	_, err = svc.GetStatus(ctx, "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportJobServiceResolveDownload(t *testing.T) {
	svc, repo, _, exporter := newExportJobServiceForTest(t)
	ctx := context.Background()

	job := &models.ExportJob{
		Type:   models.ExportTypeStudents,
		Params: models.ExportParams{Format: models.ExportFormatCSV},
	}
	require.NoError(t, repo.Create(ctx, job))
	result, err := exporter.Generate(ctx, job)
	require.NoError(t, err)

	finished := models.ExportStatusFinished
	require.NoError(t, repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:    &finished,
		ResultURL: &result.URL,
	}))

	download, err := svc.ResolveDownload(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	download.File.Close()
}

func TestExportJobServiceResolveDownloadForbidden(t *testing.T) {
	svc, repo, _, exporter := newExportJobServiceForTest(t)
	ctx := context.Background()

	_, err := svc.ResolveDownload(ctx, "garbage")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	// A valid token for a job that never stored its result URL is rejected.
	job := &models.ExportJob{Type: models.ExportTypeCourses, Params: models.ExportParams{Format: models.ExportFormatCSV}}
	require.NoError(t, repo.Create(ctx, job))
	result, err := exporter.Generate(ctx, job)
	require.NoError(t, err)

	_, err = svc.ResolveDownload(ctx, result.Token)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "token mismatch", appErr.Message)

	// Stored but still processing: the token resolves yet the file is not ready.
	processing := models.ExportStatusProcessing
	require.NoError(t, repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:    &processing,
		ResultURL: &result.URL,
	}))
	_, err = svc.ResolveDownload(ctx, result.Token)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "export not ready", appErr.Message)
}

func TestExportJobServiceRecoverPending(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		job := &models.ExportJob{Type: models.ExportTypeStudents, Params: models.ExportParams{Format: models.ExportFormatCSV}}
		require.NoError(t, repo.Create(ctx, job))
	}
	done := &models.ExportJob{Type: models.ExportTypeCourses, Status: models.ExportStatusFinished, Params: models.ExportParams{Format: models.ExportFormatCSV}}
	require.NoError(t, repo.Create(ctx, done))

	svc.RecoverPendingJobs(ctx)
	assert.Len(t, queue.jobs, 2)
}

func TestExportJobServiceCleanup(t *testing.T) {
	svc, repo, _, exporter := newExportJobServiceForTest(t)
	ctx := context.Background()

	job := &models.ExportJob{Type: models.ExportTypeStudents, Params: models.ExportParams{Format: models.ExportFormatCSV}}
	require.NoError(t, repo.Create(ctx, job))
	result, err := exporter.Generate(ctx, job)
	require.NoError(t, err)

	finished := models.ExportStatusFinished
	expired := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:     &finished,
		ResultURL:  &result.URL,
		FinishedAt: &expired,
	}))

	svc.cleanupExpired(ctx)

	_, err = exporter.Open(result.RelativePath)
	require.Error(t, err)
	_, err = repo.GetByID(ctx, job.ID)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	repo := repository.NewExportJobRepository()
	ctx := context.Background()
	job := &models.ExportJob{Type: models.ExportTypeGPASummary, Params: models.ExportParams{Format: models.ExportFormatCSV}}
	require.NoError(t, repo.Create(ctx, job))

	url := "/api/v1/exports/download/token"
	worker := NewExportWorker(repo, generatorStub{result: &ExportResult{URL: url}}, nil, nil, 3, zap.NewNop())

	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: job.ID}))

	stored, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
	assert.Equal(t, url, *stored.ResultURL)
	require.NotNil(t, stored.FinishedAt)
}

func TestExportWorkerHandleFailureRetries(t *testing.T) {
	repo := repository.NewExportJobRepository()
	ctx := context.Background()
	job := &models.ExportJob{Type: models.ExportTypeStudents, Params: models.ExportParams{Format: models.ExportFormatCSV}}
	require.NoError(t, repo.Create(ctx, job))

	worker := NewExportWorker(repo, generatorStub{err: errors.New("boom")}, nil, nil, 2, zap.NewNop())

	// First attempt fails but leaves the job queued for a retry.
	require.Error(t, worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 0}))
	stored, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, stored.Status)
	assert.Equal(t, 0, stored.Progress)
	require.NotNil(t, stored.ErrorMessage)

	// The final attempt marks it failed for good.
	require.Error(t, worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 2}))
	stored, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.FinishedAt)
}
