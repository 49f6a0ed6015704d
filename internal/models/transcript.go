package models

import (
	"sort"
	"time"
)

// AcademicStanding is a banded classification derived solely from GPA.
type AcademicStanding string

const (
	StandingDeanList     AcademicStanding = "DEAN_LIST"
	StandingGoodStanding AcademicStanding = "GOOD_STANDING"
	StandingSatisfactory AcademicStanding = "SATISFACTORY"
	StandingProbation    AcademicStanding = "PROBATION"
	StandingSuspension   AcademicStanding = "SUSPENSION"
)

// StandingForGPA maps a GPA to its standing band. Lower bounds are inclusive.
func StandingForGPA(gpa float64) AcademicStanding {
	switch {
	case gpa >= 3.5:
		return StandingDeanList
	case gpa >= 3.0:
		return StandingGoodStanding
	case gpa >= 2.0:
		return StandingSatisfactory
	case gpa >= 1.0:
		return StandingProbation
	default:
		return StandingSuspension
	}
}

// GPA computes the credit-weighted grade point average over graded
// enrollments whose grade counts toward GPA. An empty counting set yields
// exactly 0, never NaN.
func GPA(enrollments []*Enrollment) float64 {
	var points float64
	var credits int
	for _, e := range enrollments {
		if !e.Graded() || !e.Grade.CountsTowardGPA() {
			continue
		}
		points += e.Grade.Points() * float64(e.Credits)
		credits += e.Credits
	}
	if credits == 0 {
		return 0
	}
	return points / float64(credits)
}

// TotalCredits sums credits across every enrollment in the set, including
// ungraded and withdrawn records.
func TotalCredits(enrollments []*Enrollment) int {
	total := 0
	for _, e := range enrollments {
		total += e.Credits
	}
	return total
}

// CompletedCredits sums credits for graded enrollments with a passing grade.
func CompletedCredits(enrollments []*Enrollment) int {
	total := 0
	for _, e := range enrollments {
		if e.Graded() && e.Grade.Passing() {
			total += e.Credits
		}
	}
	return total
}

// GradeDistribution counts graded enrollments per letter grade.
func GradeDistribution(enrollments []*Enrollment) map[Grade]int {
	dist := make(map[Grade]int)
	for _, e := range enrollments {
		if e.Graded() {
			dist[e.Grade]++
		}
	}
	return dist
}

// GroupBySemester partitions enrollments by their semester.
func GroupBySemester(enrollments []*Enrollment) map[Semester][]*Enrollment {
	groups := make(map[Semester][]*Enrollment)
	for _, e := range enrollments {
		groups[e.Semester] = append(groups[e.Semester], e)
	}
	return groups
}

// TranscriptEntry is one course line on a transcript.
type TranscriptEntry struct {
	CourseCode  string           `json:"course_code"`
	CourseTitle string           `json:"course_title"`
	Credits     int              `json:"credits"`
	Grade       Grade            `json:"grade,omitempty"`
	GradePoints float64          `json:"grade_points"`
	Status      EnrollmentStatus `json:"status"`
}

// TranscriptSemester groups transcript entries for one semester with its
// own credit-weighted GPA.
type TranscriptSemester struct {
	Semester Semester          `json:"semester"`
	Entries  []TranscriptEntry `json:"entries"`
	GPA      float64           `json:"gpa"`
	Credits  int               `json:"credits"`
}

// Transcript is a point-in-time snapshot derived from a student and its
// enrollment set. It does not reflect mutations made after generation.
type Transcript struct {
	StudentID        int64                `json:"student_id"`
	RegNo            string               `json:"reg_no"`
	StudentName      string               `json:"student_name"`
	StudentStatus    StudentStatus        `json:"student_status"`
	Semesters        []TranscriptSemester `json:"semesters"`
	GPA              float64              `json:"gpa"`
	TotalCredits     int                  `json:"total_credits"`
	CompletedCredits int                  `json:"completed_credits"`
	Standing         AcademicStanding     `json:"standing"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// BuildTranscript assembles a transcript snapshot from a student and its
// enrollments. Semesters appear in academic order, entries sorted by course
// code within each semester.
func BuildTranscript(student *Student, enrollments []*Enrollment, now time.Time) *Transcript {
	transcript := &Transcript{
		StudentID:        student.ID,
		RegNo:            student.RegNo,
		StudentName:      student.FullName,
		StudentStatus:    student.Status,
		GPA:              GPA(enrollments),
		TotalCredits:     TotalCredits(enrollments),
		CompletedCredits: CompletedCredits(enrollments),
		GeneratedAt:      now,
	}
	transcript.Standing = StandingForGPA(transcript.GPA)

	groups := GroupBySemester(enrollments)
	for _, semester := range Semesters() {
		list, ok := groups[semester]
		if !ok {
			continue
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].CourseCode < list[j].CourseCode
		})
		section := TranscriptSemester{
			Semester: semester,
			GPA:      GPA(list),
			Credits:  TotalCredits(list),
		}
		for _, e := range list {
			entry := TranscriptEntry{
				CourseCode:  e.CourseCode,
				CourseTitle: e.CourseTitle,
				Credits:     e.Credits,
				Grade:       e.Grade,
				Status:      e.Status,
			}
			if e.Graded() && e.Grade.CountsTowardGPA() {
				entry.GradePoints = e.Grade.Points()
			}
			section.Entries = append(section.Entries, entry)
		}
		transcript.Semesters = append(transcript.Semesters, section)
	}
	return transcript
}
