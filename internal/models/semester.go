package models

import (
	"strings"

	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

// Semester identifies the academic term a course runs in.
type Semester string

// Semesters in academic-year order.
const (
	SemesterSpring Semester = "SPRING"
	SemesterSummer Semester = "SUMMER"
	SemesterFall   Semester = "FALL"
)

var semesterOrder = map[Semester]int{
	SemesterSpring: 1,
	SemesterSummer: 2,
	SemesterFall:   3,
}

// ParseSemester normalises raw input into a Semester.
func ParseSemester(raw string) (Semester, error) {
	s := Semester(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}
	if _, ok := semesterOrder[s]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown semester "+string(s))
	}
	return s, nil
}

// Valid reports whether the semester is known.
func (s Semester) Valid() bool {
	_, ok := semesterOrder[s]
	return ok
}

// Order returns the semester position within the academic year, starting at 1.
func (s Semester) Order() int {
	return semesterOrder[s]
}

// Next returns the semester that follows, wrapping fall into spring.
func (s Semester) Next() Semester {
	switch s {
	case SemesterSpring:
		return SemesterSummer
	case SemesterSummer:
		return SemesterFall
	default:
		return SemesterSpring
	}
}

// Semesters lists all semesters in academic-year order.
func Semesters() []Semester {
	return []Semester{SemesterSpring, SemesterSummer, SemesterFall}
}
