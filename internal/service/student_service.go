package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByRegNo(ctx context.Context, regNo string) (*models.Student, error)
	ExistsByRegNo(ctx context.Context, regNo string, excludeID int64) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetStatus(ctx context.Context, id int64, status models.StudentStatus) error
	CountByStatus(ctx context.Context) (map[models.StudentStatus]int, error)
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	RegNo      string     `json:"reg_no" validate:"required,min=3"`
	FullName   string     `json:"full_name" validate:"required,min=2"`
	Email      string     `json:"email" validate:"required,email"`
	Status     string     `json:"status"`
	EnrolledAt *time.Time `json:"enrolled_at"`
}

// UpdateStudentRequest holds payload for updating student records.
type UpdateStudentRequest struct {
	RegNo    string `json:"reg_no" validate:"required,min=3"`
	FullName string `json:"full_name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
}

// StudentService handles student directory use-cases. Enrollment state lives
// in the registry; this service never touches course membership.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns a student by ID.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByRegNo returns a student by registration number.
func (s *StudentService) GetByRegNo(ctx context.Context, regNo string) (*models.Student, error) {
	student, err := s.repo.FindByRegNo(ctx, normalizeRegNo(regNo))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student. Status defaults to ACTIVE when the payload
// leaves it empty.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	status := models.StudentStatusActive
	if req.Status != "" {
		parsed, err := models.ParseStudentStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	regNo := normalizeRegNo(req.RegNo)
	exists, err := s.repo.ExistsByRegNo(ctx, regNo, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate reg_no")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reg_no already used")
	}
	student := &models.Student{
		RegNo:    regNo,
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Status:   status,
	}
	if req.EnrolledAt != nil {
		student.EnrolledAt = req.EnrolledAt.UTC()
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return s.Get(ctx, student.ID)
}

// Update modifies an existing student's identity fields. Status changes go
// through SetStatus.
func (s *StudentService) Update(ctx context.Context, id int64, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	regNo := normalizeRegNo(req.RegNo)
	exists, err := s.repo.ExistsByRegNo(ctx, regNo, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate reg_no")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reg_no already used")
	}
	student.RegNo = regNo
	student.FullName = strings.TrimSpace(req.FullName)
	student.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.repo.Update(ctx, student); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// SetStatus moves a student to a new administrative status. Any transition
// is allowed here; only ACTIVE students pass the registry's enrollment
// check.
func (s *StudentService) SetStatus(ctx context.Context, id int64, status string) (*models.Student, error) {
	parsed, err := models.ParseStudentStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, id, parsed); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}
	return s.Get(ctx, id)
}

// Deactivate retires a student record without touching their enrollment
// history.
func (s *StudentService) Deactivate(ctx context.Context, id int64) (*models.Student, error) {
	return s.SetStatus(ctx, id, string(models.StudentStatusInactive))
}

// CountsByStatus returns how many students sit in each status.
func (s *StudentService) CountsByStatus(ctx context.Context) (map[models.StudentStatus]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	return counts, nil
}

func normalizeRegNo(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
