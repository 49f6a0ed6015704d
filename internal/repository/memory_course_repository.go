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
)

// MemoryCourseRepository keeps the course catalog in process memory,
// keyed by course code.
type MemoryCourseRepository struct {
	mu      sync.RWMutex
	courses map[string]*models.Course
}

// NewMemoryCourseRepository constructs the store.
func NewMemoryCourseRepository() *MemoryCourseRepository {
	return &MemoryCourseRepository{courses: make(map[string]*models.Course)}
}

// List returns catalog entries matching the provided filters.
func (r *MemoryCourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*models.Course, 0, len(r.courses))
	for _, c := range r.courses {
		if filter.Department != "" && !strings.EqualFold(c.Department, filter.Department) {
			continue
		}
		if filter.Instructor != "" && !strings.EqualFold(c.Instructor, filter.Instructor) {
			continue
		}
		if filter.Semester != "" && c.Semester != filter.Semester {
			continue
		}
		if filter.MinCredits > 0 && c.Credits < filter.MinCredits {
			continue
		}
		if filter.MaxCredits > 0 && c.Credits > filter.MaxCredits {
			continue
		}
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Code), search) &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Instructor), search) {
			continue
		}
		matched = append(matched, c)
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if order == "DESC" {
			a, b = b, a
		}
		switch sortBy {
		case "title":
			return a.Title < b.Title
		case "credits":
			return a.Credits < b.Credits
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.Code < b.Code
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
		return []models.Course{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]models.Course, 0, end-start)
	for _, c := range matched[start:end] {
		out = append(out, *c.Clone())
	}
	return out, total, nil
}

// FindByCode fetches a catalog entry by course code.
func (r *MemoryCourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.courses[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c.Clone(), nil
}

// ExistsByCode checks whether a course code is already in the catalog.
func (r *MemoryCourseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.courses[code]
	return ok, nil
}

// Create inserts a new catalog entry.
func (r *MemoryCourseRepository) Create(ctx context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.courses[course.Code]; taken {
		return fmt.Errorf("create course: code %s already in catalog", course.Code)
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	r.courses[course.Code] = course.Clone()
	return nil
}

// Update modifies an existing catalog entry. The course code is the
// identity and cannot change.
func (r *MemoryCourseRepository) Update(ctx context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.courses[course.Code]
	if !ok {
		return sql.ErrNoRows
	}
	course.UpdatedAt = time.Now().UTC()
	updated := course.Clone()
	updated.CreatedAt = current.CreatedAt
	r.courses[course.Code] = updated
	return nil
}

// Deactivate retires a course from new enrollment without removing the
// record; historical enrollments keep referencing it.
func (r *MemoryCourseRepository) Deactivate(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[code]
	if !ok {
		return sql.ErrNoRows
	}
	c.Active = false
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Snapshot returns the whole catalog ordered by code.
func (r *MemoryCourseRepository) Snapshot(ctx context.Context) ([]models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, *c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ReplaceAll swaps the full catalog, used by restore.
func (r *MemoryCourseRepository) ReplaceAll(ctx context.Context, courses []models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fresh := make(map[string]*models.Course, len(courses))
	for i := range courses {
		c := courses[i]
		if _, dup := fresh[c.Code]; dup {
			return fmt.Errorf("restore courses: duplicate code %s", c.Code)
		}
		fresh[c.Code] = c.Clone()
	}
	r.courses = fresh
	return nil
}
