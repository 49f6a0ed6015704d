package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, code string) error
}

// CreateCourseRequest holds payload for adding catalog entries.
type CreateCourseRequest struct {
	Code       string `json:"code" validate:"required"`
	Title      string `json:"title" validate:"required,min=3"`
	Credits    int    `json:"credits" validate:"required,min=1,max=6"`
	Instructor string `json:"instructor"`
	Semester   string `json:"semester" validate:"required"`
	Department string `json:"department"`
}

// UpdateCourseRequest holds payload for updating catalog entries. The course
// code is the identity and cannot change.
type UpdateCourseRequest struct {
	Title      string `json:"title" validate:"required,min=3"`
	Credits    int    `json:"credits" validate:"required,min=1,max=6"`
	Instructor string `json:"instructor"`
	Semester   string `json:"semester" validate:"required"`
	Department string `json:"department"`
	Active     bool   `json:"active"`
}

// CourseService handles catalog use-cases. Courses are deactivated, never
// deleted; enrollment records keep their snapshots either way.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns catalog entries and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
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
	return courses, pagination, nil
}

// Get returns a course by code.
func (s *CourseService) Get(ctx context.Context, code string) (*models.Course, error) {
	normalized, err := models.NormalizeCourseCode(code)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a catalog entry. New courses start active.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	code, err := models.NormalizeCourseCode(req.Code)
	if err != nil {
		return nil, err
	}
	semester, err := models.ParseSemester(req.Semester)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	course := &models.Course{
		Code:       code,
		Title:      strings.TrimSpace(req.Title),
		Credits:    req.Credits,
		Instructor: strings.TrimSpace(req.Instructor),
		Semester:   semester,
		Department: strings.TrimSpace(req.Department),
		Active:     true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return s.Get(ctx, code)
}

// Update modifies an existing catalog entry. Live enrollments keep the
// snapshot taken when they were created.
func (s *CourseService) Update(ctx context.Context, code string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	semester, err := models.ParseSemester(req.Semester)
	if err != nil {
		return nil, err
	}
	course, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	course.Title = strings.TrimSpace(req.Title)
	course.Credits = req.Credits
	course.Instructor = strings.TrimSpace(req.Instructor)
	course.Semester = semester
	course.Department = strings.TrimSpace(req.Department)
	course.Active = req.Active
	if err := s.repo.Update(ctx, course); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return s.Get(ctx, course.Code)
}

// Deactivate closes a course to new enrollments.
func (s *CourseService) Deactivate(ctx context.Context, code string) (*models.Course, error) {
	course, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Deactivate(ctx, course.Code); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	return s.Get(ctx, course.Code)
}
