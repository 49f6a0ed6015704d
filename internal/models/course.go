package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

// Course credit bounds.
const (
	MinCourseCredits = 1
	MaxCourseCredits = 6
)

var courseCodePattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3}$`)

// NormalizeCourseCode uppercases and validates a course code.
func NormalizeCourseCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	if !courseCodePattern.MatchString(code) {
		return "", appErrors.Clone(appErrors.ErrValidation, "course code must match 2-4 letters followed by 3 digits")
	}
	return code, nil
}

// Course represents a catalog entry identified by its immutable code.
type Course struct {
	Code       string    `db:"code" json:"code"`
	Title      string    `db:"title" json:"title"`
	Credits    int       `db:"credits" json:"credits"`
	Instructor string    `db:"instructor" json:"instructor"`
	Semester   Semester  `db:"semester" json:"semester"`
	Department string    `db:"department" json:"department"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the course invariants.
func (c *Course) Validate() error {
	if _, err := NormalizeCourseCode(c.Code); err != nil {
		return err
	}
	if len(strings.TrimSpace(c.Title)) < 3 {
		return appErrors.Clone(appErrors.ErrValidation, "course title must be at least 3 characters")
	}
	if c.Credits < MinCourseCredits || c.Credits > MaxCourseCredits {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("credits must be between %d and %d", MinCourseCredits, MaxCourseCredits))
	}
	if !c.Semester.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown semester "+string(c.Semester))
	}
	return nil
}

// Clone returns a copy safe to hand to callers.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

// CourseFilter provides filters for listing catalog entries.
type CourseFilter struct {
	Search     string
	Department string
	Instructor string
	Semester   Semester
	MinCredits int
	MaxCredits int
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
