package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/pkg/sequence"
)

// MemoryStudentRepository keeps the student directory in process memory.
// Every record crosses the boundary as a clone; mutations go through the
// repository so readers never observe a half-applied change.
type MemoryStudentRepository struct {
	mu       sync.RWMutex
	students map[int64]*models.Student
	byRegNo  map[string]int64
	seq      *sequence.Sequence
}

// NewMemoryStudentRepository constructs the store around an identity source.
func NewMemoryStudentRepository(seq *sequence.Sequence) *MemoryStudentRepository {
	if seq == nil {
		seq = sequence.New(0)
	}
	return &MemoryStudentRepository{
		students: make(map[int64]*models.Student),
		byRegNo:  make(map[string]int64),
		seq:      seq,
	}
}

// List returns students matching the provided filters.
func (r *MemoryStudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*models.Student, 0, len(r.students))
	for _, s := range r.students {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.FullName), search) &&
			!strings.Contains(strings.ToLower(s.RegNo), search) &&
			!strings.Contains(strings.ToLower(s.Email), search) {
			continue
		}
		matched = append(matched, s)
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if order == "DESC" {
			a, b = b, a
		}
		switch sortBy {
		case "reg_no":
			return a.RegNo < b.RegNo
		case "full_name":
			return a.FullName < b.FullName
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return []models.Student{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]models.Student, 0, end-start)
	for _, s := range matched[start:end] {
		out = append(out, *s.Clone())
	}
	return out, total, nil
}

// FindByID fetches a student by ID.
func (r *MemoryStudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s.Clone(), nil
}

// FindByRegNo fetches a student by registration number.
func (r *MemoryStudentRepository) FindByRegNo(ctx context.Context, regNo string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRegNo[regNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.students[id].Clone(), nil
}

// ExistsByRegNo checks if a registration number is taken, optionally
// excluding a student ID.
func (r *MemoryStudentRepository) ExistsByRegNo(ctx context.Context, regNo string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRegNo[regNo]
	if !ok {
		return false, nil
	}
	return id != excludeID, nil
}

// Create inserts a new student record, assigning its identity.
func (r *MemoryStudentRepository) Create(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byRegNo[student.RegNo]; taken {
		return fmt.Errorf("create student: reg no %s already registered", student.RegNo)
	}
	if student.ID == 0 {
		student.ID = r.seq.Next()
	} else {
		r.seq.Seed(student.ID)
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	r.students[student.ID] = student.Clone()
	r.byRegNo[student.RegNo] = student.ID
	return nil
}

// Update modifies an existing student. Course membership is owned by the
// enrollment registry and is left untouched here.
func (r *MemoryStudentRepository) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if current.RegNo != student.RegNo {
		if _, taken := r.byRegNo[student.RegNo]; taken {
			return fmt.Errorf("update student: reg no %s already registered", student.RegNo)
		}
		delete(r.byRegNo, current.RegNo)
		r.byRegNo[student.RegNo] = student.ID
	}
	student.UpdatedAt = time.Now().UTC()
	updated := student.Clone()
	updated.CreatedAt = current.CreatedAt
	updated.CourseCodes = current.CourseCodes
	r.students[student.ID] = updated
	return nil
}

// SetStatus changes a student's status.
func (r *MemoryStudentRepository) SetStatus(ctx context.Context, id int64, status models.StudentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AddCourseMembership records a course code on the student's membership
// set. Adding an already-present code is a no-op.
func (r *MemoryStudentRepository) AddCourseMembership(ctx context.Context, studentID int64, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, existing := range s.CourseCodes {
		if existing == code {
			return nil
		}
	}
	s.CourseCodes = append(s.CourseCodes, code)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveCourseMembership drops a course code from the student's
// membership set.
func (r *MemoryStudentRepository) RemoveCourseMembership(ctx context.Context, studentID int64, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	kept := s.CourseCodes[:0]
	for _, existing := range s.CourseCodes {
		if existing != code {
			kept = append(kept, existing)
		}
	}
	s.CourseCodes = kept
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Snapshot returns every student ordered by ID, for backups and reports.
func (r *MemoryStudentRepository) Snapshot(ctx context.Context) ([]models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, *s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ReplaceAll swaps the full working set, used by restore. The identity
// source is seeded past the highest restored ID so new students never
// collide with restored ones.
func (r *MemoryStudentRepository) ReplaceAll(ctx context.Context, students []models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fresh := make(map[int64]*models.Student, len(students))
	byRegNo := make(map[string]int64, len(students))
	var maxID int64
	for i := range students {
		s := students[i]
		if s.ID == 0 {
			s.ID = r.seq.Next()
		}
		if _, dup := fresh[s.ID]; dup {
			return fmt.Errorf("restore students: duplicate id %d", s.ID)
		}
		if _, dup := byRegNo[s.RegNo]; dup {
			return fmt.Errorf("restore students: duplicate reg no %s", s.RegNo)
		}
		fresh[s.ID] = s.Clone()
		byRegNo[s.RegNo] = s.ID
		if s.ID > maxID {
			maxID = s.ID
		}
	}
	r.students = fresh
	r.byRegNo = byRegNo
	r.seq.Seed(maxID)
	return nil
}

// CountByStatus tallies students per status.
func (r *MemoryStudentRepository) CountByStatus(ctx context.Context) (map[models.StudentStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[models.StudentStatus]int)
	for _, s := range r.students {
		counts[s.Status]++
	}
	return counts, nil
}
