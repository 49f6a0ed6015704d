package models

import (
	"strings"
	"time"

	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

// StudentStatus represents the administrative state of a student record.
type StudentStatus string

// Possible student statuses. Only ACTIVE students may enroll.
const (
	StudentStatusActive      StudentStatus = "ACTIVE"
	StudentStatusInactive    StudentStatus = "INACTIVE"
	StudentStatusGraduated   StudentStatus = "GRADUATED"
	StudentStatusSuspended   StudentStatus = "SUSPENDED"
	StudentStatusTransferred StudentStatus = "TRANSFERRED"
)

var studentStatuses = map[StudentStatus]struct{}{
	StudentStatusActive:      {},
	StudentStatusInactive:    {},
	StudentStatusGraduated:   {},
	StudentStatusSuspended:   {},
	StudentStatusTransferred: {},
}

// ParseStudentStatus normalises raw input into a StudentStatus.
func ParseStudentStatus(raw string) (StudentStatus, error) {
	s := StudentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "student status is required")
	}
	if _, ok := studentStatuses[s]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown student status "+string(s))
	}
	return s, nil
}

// Valid reports whether the status is known.
func (s StudentStatus) Valid() bool {
	_, ok := studentStatuses[s]
	return ok
}

// Student represents a learner registered with the institution.
// CourseCodes mirrors the student's current course registrations and is
// maintained by the enrollment registry.
type Student struct {
	ID          int64         `db:"id" json:"id"`
	RegNo       string        `db:"reg_no" json:"reg_no"`
	FullName    string        `db:"full_name" json:"full_name"`
	Email       string        `db:"email" json:"email"`
	Status      StudentStatus `db:"status" json:"status"`
	CourseCodes []string      `json:"course_codes"`
	EnrolledAt  time.Time     `db:"enrolled_at" json:"enrolled_at"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Active reports whether the student may take new enrollments.
func (s *Student) Active() bool {
	return s.Status == StudentStatusActive
}

// Clone returns a deep copy safe to hand to callers.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	copied := *s
	if s.CourseCodes != nil {
		copied.CourseCodes = make([]string, len(s.CourseCodes))
		copy(copied.CourseCodes, s.CourseCodes)
	}
	return &copied
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
