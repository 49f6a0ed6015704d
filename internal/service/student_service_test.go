package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/repository"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

func newStudentService(t *testing.T) (*StudentService, *repository.MemoryStudentRepository) {
	t.Helper()
	repo := repository.NewMemoryStudentRepository(nil)
	return NewStudentService(repo, validator.New(), zap.NewNop()), repo
}

func TestStudentServiceCreate(t *testing.T) {
	svc, _ := newStudentService(t)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		RegNo:    " reg001 ",
		FullName: "Alice Carter",
		Email:    "Alice@Campus.EDU",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), student.ID)
	assert.Equal(t, "REG001", student.RegNo)
	assert.Equal(t, "alice@campus.edu", student.Email)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.False(t, student.EnrolledAt.IsZero())
}

func TestStudentServiceCreateRejections(t *testing.T) {
	svc, _ := newStudentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateStudentRequest{RegNo: "REG001", FullName: "Alice Carter", Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, CreateStudentRequest{RegNo: "REG001", FullName: "Alice Carter", Email: "alice@campus.edu", Status: "ENROLLED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, CreateStudentRequest{RegNo: "REG001", FullName: "Alice Carter", Email: "alice@campus.edu"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateStudentRequest{RegNo: "reg001", FullName: "Impostor", Email: "other@campus.edu"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdate(t *testing.T) {
	svc, _ := newStudentService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, CreateStudentRequest{RegNo: "REG001", FullName: "Alice Carter", Email: "alice@campus.edu"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateStudentRequest{RegNo: "REG002", FullName: "Ben Okafor", Email: "ben@campus.edu"})
	require.NoError(t, err)

	// Keeping your own reg_no is not a conflict.
	updated, err := svc.Update(ctx, alice.ID, UpdateStudentRequest{RegNo: "REG001", FullName: "Alice B. Carter", Email: "alice.b@campus.edu"})
	require.NoError(t, err)
	assert.Equal(t, "Alice B. Carter", updated.FullName)
	assert.Equal(t, "alice.b@campus.edu", updated.Email)

	_, err = svc.Update(ctx, alice.ID, UpdateStudentRequest{RegNo: "REG002", FullName: "Alice", Email: "alice@campus.edu"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, 99, UpdateStudentRequest{RegNo: "REG099", FullName: "Ghost", Email: "ghost@campus.edu"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceSetStatus(t *testing.T) {
	svc, _ := newStudentService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, CreateStudentRequest{RegNo: "REG001", FullName: "Alice Carter", Email: "alice@campus.edu"})
	require.NoError(t, err)

	suspended, err := svc.SetStatus(ctx, alice.ID, "suspended")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusSuspended, suspended.Status)

	_, err = svc.SetStatus(ctx, alice.ID, "EXPELLED")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.SetStatus(ctx, 99, "ACTIVE")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListAndLookup(t *testing.T) {
	svc, _ := newStudentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateStudentRequest{RegNo: "REG001", FullName: "Alice Carter", Email: "alice@campus.edu"})
	require.NoError(t, err)
	ben, err := svc.Create(ctx, CreateStudentRequest{RegNo: "REG002", FullName: "Ben Okafor", Email: "ben@campus.edu"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, ben.ID, "GRADUATED")
	require.NoError(t, err)

	list, pagination, err := svc.List(ctx, models.StudentFilter{Status: models.StudentStatusGraduated})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "REG002", list[0].RegNo)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)

	found, err := svc.GetByRegNo(ctx, "reg002")
	require.NoError(t, err)
	assert.Equal(t, ben.ID, found.ID)

	_, err = svc.GetByRegNo(ctx, "REG404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
