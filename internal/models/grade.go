package models

import (
	"strings"

	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

// Grade is the letter grade assigned to an enrollment. The zero value
// means no grade has been recorded yet.
type Grade string

// Letter grades ordered best to worst.
const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
	GradeI Grade = "I"
	GradeW Grade = "W"
)

type gradeInfo struct {
	points      float64
	passing     bool
	description string
}

var gradeScale = map[Grade]gradeInfo{
	GradeS: {points: 4.0, passing: true, description: "S"},
	GradeA: {points: 4.0, passing: true, description: "A"},
	GradeB: {points: 3.0, passing: true, description: "B"},
	GradeC: {points: 2.0, passing: true, description: "C"},
	GradeD: {points: 1.0, passing: true, description: "D"},
	GradeF: {points: 0.0, passing: false, description: "F"},
	GradeI: {points: 0.0, passing: false, description: "Incomplete"},
	GradeW: {points: 0.0, passing: false, description: "Withdrawn"},
}

// Grades lists the scale best to worst.
func Grades() []Grade {
	return []Grade{GradeS, GradeA, GradeB, GradeC, GradeD, GradeF, GradeI, GradeW}
}

// ParseGrade normalises raw input into a Grade.
func ParseGrade(raw string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(raw)))
	if g == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "grade is required")
	}
	if _, ok := gradeScale[g]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown grade "+string(g))
	}
	return g, nil
}

// Valid reports whether the grade is a known letter grade.
func (g Grade) Valid() bool {
	_, ok := gradeScale[g]
	return ok
}

// Points returns the grade-point value on the 4.0 scale.
func (g Grade) Points() float64 {
	return gradeScale[g].points
}

// Passing reports whether the grade earns the enrolled credits.
func (g Grade) Passing() bool {
	return gradeScale[g].passing
}

// CountsTowardGPA reports whether this grade participates in GPA
// computation. Incomplete and withdrawn records carry no weight at all
// rather than dragging the average to zero.
func (g Grade) CountsTowardGPA() bool {
	if !g.Valid() {
		return false
	}
	return g != GradeI && g != GradeW
}

// Description returns a human readable label for the grade.
func (g Grade) Description() string {
	if info, ok := gradeScale[g]; ok {
		return info.description
	}
	return string(g)
}
