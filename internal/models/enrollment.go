package models

import (
	"strings"
	"time"

	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

// EnrollmentStatus tracks the lifecycle of a single enrollment record.
type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
)

var enrollmentStatuses = map[EnrollmentStatus]struct{}{
	EnrollmentEnrolled:  {},
	EnrollmentCompleted: {},
	EnrollmentWithdrawn: {},
	EnrollmentDropped:   {},
}

// ParseEnrollmentStatus normalizes and validates a raw status value.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, error) {
	status := EnrollmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if status == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "enrollment status is required")
	}
	if _, ok := enrollmentStatuses[status]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status "+string(raw))
	}
	return status, nil
}

func (s EnrollmentStatus) Valid() bool {
	_, ok := enrollmentStatuses[s]
	return ok
}

// Terminal reports whether the record no longer occupies a seat. Terminal
// enrollments never block a fresh enrollment in the same course.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentCompleted || s == EnrollmentWithdrawn || s == EnrollmentDropped
}

// Enrollment links a student to a course. Course title, credits and semester
// are captured at enrollment time so the record stays meaningful even if the
// catalog entry changes later.
type Enrollment struct {
	ID          int64            `json:"id"`
	StudentID   int64            `json:"student_id"`
	CourseCode  string           `json:"course_code"`
	CourseTitle string           `json:"course_title"`
	Credits     int              `json:"credits"`
	Semester    Semester         `json:"semester"`
	Grade       Grade            `json:"grade,omitempty"`
	Status      EnrollmentStatus `json:"status"`
	EnrolledAt  time.Time        `json:"enrolled_at"`
	GradedAt    *time.Time       `json:"graded_at,omitempty"`
}

// Graded reports whether a grade has been recorded on this enrollment.
func (e *Enrollment) Graded() bool {
	return e.Grade != ""
}

// Active reports whether the enrollment currently occupies a seat.
func (e *Enrollment) Active() bool {
	return e.Status == EnrollmentEnrolled
}

// Clone returns a copy safe to hand to callers.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	copied := *e
	if e.GradedAt != nil {
		at := *e.GradedAt
		copied.GradedAt = &at
	}
	return &copied
}

// EnrollmentFilter narrows enrollment listings. Zero values mean "any".
type EnrollmentFilter struct {
	StudentID  int64
	CourseCode string
	Status     EnrollmentStatus
	Semester   Semester
	Graded     *bool
	Page       int
	PageSize   int
}

// CloneEnrollments deep-copies a slice of enrollment records.
func CloneEnrollments(list []*Enrollment) []*Enrollment {
	if list == nil {
		return nil
	}
	out := make([]*Enrollment, len(list))
	for i, e := range list {
		out[i] = e.Clone()
	}
	return out
}
