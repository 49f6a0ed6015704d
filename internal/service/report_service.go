package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

const (
	defaultTopStudents = 10
	maxTopStudents     = 100
)

type reportStudents interface {
	Snapshot(ctx context.Context) ([]models.Student, error)
}

type reportCourses interface {
	Snapshot(ctx context.Context) ([]models.Course, error)
}

type reportRegistry interface {
	AllEnrollments(ctx context.Context) []*models.Enrollment
	StudentEnrollments(ctx context.Context, studentID int64) []*models.Enrollment
}

// ReportService produces read-only aggregations for the reporting endpoints.
// Everything is computed on demand from live state.
type ReportService struct {
	students reportStudents
	courses  reportCourses
	registry reportRegistry
	logger   *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(students reportStudents, courses reportCourses, registry reportRegistry, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{students: students, courses: courses, registry: registry, logger: logger}
}

type gradedStudent struct {
	student models.Student
	gpa     float64
	credits int
}

// gradedStudents returns every student holding at least one GPA-counted
// graded enrollment. Students without one have no GPA yet and stay out of
// the rankings entirely instead of polluting them with zeros.
func (s *ReportService) gradedStudents(ctx context.Context) ([]gradedStudent, error) {
	students, err := s.students.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	out := make([]gradedStudent, 0, len(students))
	for _, student := range students {
		enrollments := s.registry.StudentEnrollments(ctx, student.ID)
		counted := false
		for _, e := range enrollments {
			if e.Graded() && e.Grade.CountsTowardGPA() {
				counted = true
				break
			}
		}
		if !counted {
			continue
		}
		out = append(out, gradedStudent{
			student: student,
			gpa:     models.GPA(enrollments),
			credits: models.CompletedCredits(enrollments),
		})
	}
	return out, nil
}

// GPADistribution buckets graded students into the academic standing bands.
func (s *ReportService) GPADistribution(ctx context.Context) (*models.GPADistribution, error) {
	graded, err := s.gradedStudents(ctx)
	if err != nil {
		return nil, err
	}

	bands := []models.GPABand{
		{Standing: models.StandingDeanList, MinGPA: 3.5},
		{Standing: models.StandingGoodStanding, MinGPA: 3.0},
		{Standing: models.StandingSatisfactory, MinGPA: 2.0},
		{Standing: models.StandingProbation, MinGPA: 1.0},
		{Standing: models.StandingSuspension, MinGPA: 0.0},
	}
	index := make(map[models.AcademicStanding]int, len(bands))
	for i, band := range bands {
		index[band.Standing] = i
	}

	var sum float64
	for _, g := range graded {
		sum += g.gpa
		bands[index[models.StandingForGPA(g.gpa)]].Count++
	}

	dist := &models.GPADistribution{
		TotalStudents: len(graded),
		Bands:         bands,
		GeneratedAt:   time.Now().UTC(),
	}
	if len(graded) > 0 {
		dist.AverageGPA = sum / float64(len(graded))
	}
	return dist, nil
}

// TopStudents ranks graded students by GPA. Ties break on completed
// credits, then registration number for a stable order.
func (s *ReportService) TopStudents(ctx context.Context, limit int) ([]models.TopStudent, error) {
	if limit <= 0 {
		limit = defaultTopStudents
	}
	if limit > maxTopStudents {
		limit = maxTopStudents
	}
	graded, err := s.gradedStudents(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(graded, func(i, j int) bool {
		if graded[i].gpa != graded[j].gpa {
			return graded[i].gpa > graded[j].gpa
		}
		if graded[i].credits != graded[j].credits {
			return graded[i].credits > graded[j].credits
		}
		return graded[i].student.RegNo < graded[j].student.RegNo
	})
	if len(graded) > limit {
		graded = graded[:limit]
	}
	out := make([]models.TopStudent, 0, len(graded))
	for _, g := range graded {
		out = append(out, models.TopStudent{
			StudentID:        g.student.ID,
			RegNo:            g.student.RegNo,
			FullName:         g.student.FullName,
			GPA:              g.gpa,
			CompletedCredits: g.credits,
		})
	}
	return out, nil
}

// CourseStats aggregates enrollment outcomes per catalog entry, including
// courses nobody has touched yet.
func (s *ReportService) CourseStats(ctx context.Context) ([]models.CourseEnrollmentStat, error) {
	courses, err := s.courses.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	type tally struct {
		enrolled  int
		completed int
		withdrawn int
		points    float64
		counted   int
	}
	tallies := make(map[string]*tally)
	for _, e := range s.registry.AllEnrollments(ctx) {
		t := tallies[e.CourseCode]
		if t == nil {
			t = &tally{}
			tallies[e.CourseCode] = t
		}
		switch e.Status {
		case models.EnrollmentEnrolled:
			t.enrolled++
		case models.EnrollmentCompleted:
			t.completed++
		case models.EnrollmentWithdrawn:
			t.withdrawn++
		}
		if e.Graded() && e.Grade.CountsTowardGPA() {
			t.points += e.Grade.Points()
			t.counted++
		}
	}

	out := make([]models.CourseEnrollmentStat, 0, len(courses))
	for _, course := range courses {
		stat := models.CourseEnrollmentStat{
			CourseCode: course.Code,
			Title:      course.Title,
			Department: course.Department,
			Credits:    course.Credits,
		}
		if t := tallies[course.Code]; t != nil {
			stat.Enrolled = t.enrolled
			stat.Completed = t.completed
			stat.Withdrawn = t.withdrawn
			if t.counted > 0 {
				stat.AverageGradePoints = t.points / float64(t.counted)
			}
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

// DepartmentStats totals catalog entries per department, busiest first.
func (s *ReportService) DepartmentStats(ctx context.Context) ([]models.DepartmentCount, error) {
	courses, err := s.courses.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	byDepartment := make(map[string]*models.DepartmentCount)
	for _, course := range courses {
		dc := byDepartment[course.Department]
		if dc == nil {
			dc = &models.DepartmentCount{Department: course.Department}
			byDepartment[course.Department] = dc
		}
		dc.Courses++
		dc.Credits += course.Credits
		if course.Active {
			dc.ActiveCourses++
		}
	}
	out := make([]models.DepartmentCount, 0, len(byDepartment))
	for _, dc := range byDepartment {
		out = append(out, *dc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Courses != out[j].Courses {
			return out[i].Courses > out[j].Courses
		}
		return out[i].Department < out[j].Department
	})
	return out, nil
}

// GradeDistribution counts recorded grades across all enrollments and the
// share each takes of the graded total.
func (s *ReportService) GradeDistribution(ctx context.Context) ([]models.GradeCount, error) {
	counts := make(map[models.Grade]int)
	total := 0
	for _, e := range s.registry.AllEnrollments(ctx) {
		if !e.Graded() {
			continue
		}
		counts[e.Grade]++
		total++
	}
	out := make([]models.GradeCount, 0, len(counts))
	for _, grade := range models.Grades() {
		count, ok := counts[grade]
		if !ok {
			continue
		}
		gc := models.GradeCount{Grade: grade, Count: count}
		if total > 0 {
			gc.Percentage = float64(count) / float64(total) * 100
		}
		out = append(out, gc)
	}
	return out, nil
}
