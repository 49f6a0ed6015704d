package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campus-hq/registrar-api/internal/models"
)

// CourseRepository manages the course catalog in Postgres.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = "code, title, credits, instructor, semester, department, active, created_at, updated_at"

// List returns catalog entries matching the provided filters.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(department) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Department))
	}
	if filter.Instructor != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(instructor) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Instructor))
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.MinCredits > 0 {
		conditions = append(conditions, fmt.Sprintf("credits >= $%d", len(args)+1))
		args = append(args, filter.MinCredits)
	}
	if filter.MaxCredits > 0 {
		conditions = append(conditions, fmt.Sprintf("credits <= $%d", len(args)+1))
		args = append(args, filter.MaxCredits)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(title) LIKE $%d OR LOWER(instructor) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"code":       true,
		"title":      true,
		"credits":    true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", courseColumns, base, sortBy, order, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByCode fetches a catalog entry by course code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE code = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode checks whether a course code is already in the catalog.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM courses WHERE code = $1 LIMIT 1", code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a new catalog entry.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (code, title, credits, instructor, semester, department, active, created_at, updated_at)
        VALUES (:code, :title, :credits, :instructor, :semester, :department, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies an existing catalog entry. The course code is the
// identity and cannot change.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, credits = :credits, instructor = :instructor, semester = :semester, department = :department, active = :active, updated_at = :updated_at WHERE code = :code`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate retires a course from new enrollment without removing the
// record; historical enrollments keep referencing it.
func (r *CourseRepository) Deactivate(ctx context.Context, code string) error {
	const query = `UPDATE courses SET active = false, updated_at = $2 WHERE code = $1`
	res, err := r.db.ExecContext(ctx, query, code, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Snapshot returns the whole catalog ordered by code.
func (r *CourseRepository) Snapshot(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses ORDER BY code ASC", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("snapshot courses: %w", err)
	}
	return courses, nil
}

// ReplaceAll swaps the full catalog inside one transaction, used by restore.
func (r *CourseRepository) ReplaceAll(ctx context.Context, courses []models.Course) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace courses: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM courses"); err != nil {
		return fmt.Errorf("clear courses: %w", err)
	}
	const insert = `INSERT INTO courses (code, title, credits, instructor, semester, department, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	now := time.Now().UTC()
	for i := range courses {
		c := &courses[i]
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := tx.ExecContext(ctx, insert, c.Code, c.Title, c.Credits, c.Instructor, c.Semester,
			c.Department, c.Active, createdAt, now); err != nil {
			return fmt.Errorf("restore course %s: %w", c.Code, err)
		}
	}
	return tx.Commit()
}
