package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campus-hq/registrar-api/internal/models"
)

// StudentRepository manages student records in Postgres.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, reg_no, full_name, email, status, course_codes, enrolled_at, created_at, updated_at"

// studentRow keeps the pq array type out of the model package.
type studentRow struct {
	ID          int64          `db:"id"`
	RegNo       string         `db:"reg_no"`
	FullName    string         `db:"full_name"`
	Email       string         `db:"email"`
	Status      string         `db:"status"`
	CourseCodes pq.StringArray `db:"course_codes"`
	EnrolledAt  time.Time      `db:"enrolled_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row studentRow) toModel() models.Student {
	return models.Student{
		ID:          row.ID,
		RegNo:       row.RegNo,
		FullName:    row.FullName,
		Email:       row.Email,
		Status:      models.StudentStatus(row.Status),
		CourseCodes: append([]string(nil), row.CourseCodes...),
		EnrolledAt:  row.EnrolledAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(reg_no) LIKE $%d OR LOWER(email) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"reg_no":     "reg_no",
		"full_name":  "full_name",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)

	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toModel())
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var row studentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	student := row.toModel()
	return &student, nil
}

// FindByRegNo fetches a student by registration number.
func (r *StudentRepository) FindByRegNo(ctx context.Context, regNo string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE reg_no = $1", studentColumns)
	var row studentRow
	if err := r.db.GetContext(ctx, &row, query, regNo); err != nil {
		return nil, err
	}
	student := row.toModel()
	return &student, nil
}

// ExistsByRegNo checks if a registration number is taken, optionally excluding an ID.
func (r *StudentRepository) ExistsByRegNo(ctx context.Context, regNo string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM students WHERE reg_no = $1"
	args := []interface{}{regNo}
	if excludeID != 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check reg no: %w", err)
	}
	return true, nil
}

// Create inserts a new student record and assigns its database identity.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.EnrolledAt.IsZero() {
		student.EnrolledAt = now
	}
	student.UpdatedAt = now
	codes := pq.StringArray(student.CourseCodes)
	if codes == nil {
		codes = pq.StringArray{}
	}
	const query = `INSERT INTO students (reg_no, full_name, email, status, course_codes, enrolled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, student.RegNo, student.FullName, student.Email, student.Status,
		codes, student.EnrolledAt, student.CreatedAt, student.UpdatedAt).Scan(&student.ID); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. Course membership is owned by the
// enrollment registry and is not written here.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET reg_no = $2, full_name = $3, email = $4, status = $5, enrolled_at = $6, updated_at = $7 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, student.ID, student.RegNo, student.FullName, student.Email,
		student.Status, student.EnrolledAt, student.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetStatus changes a student's status.
func (r *StudentRepository) SetStatus(ctx context.Context, id int64, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set student status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddCourseMembership records a course code on the student's membership
// set. Remove-then-append keeps the operation idempotent.
func (r *StudentRepository) AddCourseMembership(ctx context.Context, studentID int64, code string) error {
	const query = `UPDATE students SET course_codes = array_append(array_remove(course_codes, $2), $2), updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, studentID, code, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add course membership: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RemoveCourseMembership drops a course code from the student's membership set.
func (r *StudentRepository) RemoveCourseMembership(ctx context.Context, studentID int64, code string) error {
	const query = `UPDATE students SET course_codes = array_remove(course_codes, $2), updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, studentID, code, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("remove course membership: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Snapshot returns every student ordered by ID, for backups and reports.
func (r *StudentRepository) Snapshot(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY id ASC", studentColumns)
	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("snapshot students: %w", err)
	}
	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toModel())
	}
	return students, nil
}

// ReplaceAll swaps the full student table inside one transaction, used by
// restore. The id sequence is advanced past the highest restored ID.
func (r *StudentRepository) ReplaceAll(ctx context.Context, students []models.Student) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace students: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM students"); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}
	const insert = `INSERT INTO students (id, reg_no, full_name, email, status, course_codes, enrolled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	now := time.Now().UTC()
	for i := range students {
		s := &students[i]
		codes := pq.StringArray(s.CourseCodes)
		if codes == nil {
			codes = pq.StringArray{}
		}
		createdAt := s.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := tx.ExecContext(ctx, insert, s.ID, s.RegNo, s.FullName, s.Email, s.Status,
			codes, s.EnrolledAt, createdAt, now); err != nil {
			return fmt.Errorf("restore student %s: %w", s.RegNo, err)
		}
	}
	const reseed = `SELECT setval(pg_get_serial_sequence('students', 'id'), COALESCE((SELECT MAX(id) FROM students), 0) + 1, false)`
	if _, err := tx.ExecContext(ctx, reseed); err != nil {
		return fmt.Errorf("reseed student ids: %w", err)
	}
	return tx.Commit()
}

// CountByStatus tallies students per status.
func (r *StudentRepository) CountByStatus(ctx context.Context) (map[models.StudentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM students GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.StudentStatus]int)
	for rows.Next() {
		var status string
		var total int
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[models.StudentStatus(status)] = total
	}
	return counts, rows.Err()
}
