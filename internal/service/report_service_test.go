package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/repository"
)

// seedReportRecords layers two more graded students on top of the canonical
// transcript set so rankings and tallies have something to chew on.
func seedReportRecords(t *testing.T, registry *RegistryService, students *repository.MemoryStudentRepository) {
	t.Helper()
	ctx := context.Background()
	seedTranscriptRecords(t, registry)

	require.NoError(t, students.Create(ctx, &models.Student{
		RegNo: "REG004", FullName: "Dan Field", Email: "dan@campus.edu", Status: models.StudentStatusActive,
	}))

	_, err := registry.Enroll(ctx, 2, "CS101")
	require.NoError(t, err)
	_, err = registry.RecordGrade(ctx, 2, "CS101", models.GradeC)
	require.NoError(t, err)
	_, err = registry.Enroll(ctx, 2, "EN101")
	require.NoError(t, err)

	_, err = registry.Enroll(ctx, 4, "CS101")
	require.NoError(t, err)
	_, err = registry.RecordGrade(ctx, 4, "CS101", models.GradeC)
	require.NoError(t, err)
}

func TestReportGPADistribution(t *testing.T) {
	registry, students, courses := newRegistryFixture(t)
	seedReportRecords(t, registry, students)
	svc := NewReportService(students, courses, registry, nil)

	dist, err := svc.GPADistribution(context.Background())
	require.NoError(t, err)

	// Ungraded students stay out of the distribution entirely.
	assert.Equal(t, 3, dist.TotalStudents)
	assert.InDelta(t, (25.0/7.0+2.0+2.0)/3.0, dist.AverageGPA, 0.0001)

	require.Len(t, dist.Bands, 5)
	byStanding := make(map[models.AcademicStanding]models.GPABand, len(dist.Bands))
	for _, band := range dist.Bands {
		byStanding[band.Standing] = band
	}
	assert.Equal(t, 1, byStanding[models.StandingDeanList].Count)
	assert.Equal(t, 0, byStanding[models.StandingGoodStanding].Count)
	assert.Equal(t, 2, byStanding[models.StandingSatisfactory].Count)
	assert.Equal(t, 0, byStanding[models.StandingProbation].Count)
	assert.Equal(t, 0, byStanding[models.StandingSuspension].Count)
	assert.InDelta(t, 3.5, byStanding[models.StandingDeanList].MinGPA, 0.0001)
}

func TestReportGPADistributionEmpty(t *testing.T) {
	registry, students, courses := newRegistryFixture(t)
	svc := NewReportService(students, courses, registry, nil)

	dist, err := svc.GPADistribution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, dist.TotalStudents)
	assert.Zero(t, dist.AverageGPA)
	require.Len(t, dist.Bands, 5)
	for _, band := range dist.Bands {
		assert.Zero(t, band.Count)
	}
}

func TestReportTopStudents(t *testing.T) {
	registry, students, courses := newRegistryFixture(t)
	seedReportRecords(t, registry, students)
	svc := NewReportService(students, courses, registry, nil)
	ctx := context.Background()

	top, err := svc.TopStudents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "REG001", top[0].RegNo)
	assert.Equal(t, "Alice Carter", top[0].FullName)
	assert.InDelta(t, 25.0/7.0, top[0].GPA, 0.0001)
	assert.Equal(t, 7, top[0].CompletedCredits)

	// REG002 and REG004 tie on GPA and completed credits; registration
	// number decides the order.
	assert.Equal(t, "REG002", top[1].RegNo)
	assert.Equal(t, "REG004", top[2].RegNo)

	top, err = svc.TopStudents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1), top[0].StudentID)
}

func TestReportCourseStats(t *testing.T) {
	registry, students, courses := newRegistryFixture(t)
	seedReportRecords(t, registry, students)
	svc := NewReportService(students, courses, registry, nil)

	stats, err := svc.CourseStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 6)

	byCode := make(map[string]models.CourseEnrollmentStat, len(stats))
	for _, stat := range stats {
		byCode[stat.CourseCode] = stat
	}

	cs := byCode["CS101"]
	assert.Equal(t, "Intro to Computer Science", cs.Title)
	assert.Equal(t, 0, cs.Enrolled)
	assert.Equal(t, 3, cs.Completed)
	assert.Equal(t, 0, cs.Withdrawn)
	assert.InDelta(t, 7.0/3.0, cs.AverageGradePoints, 0.0001)

	en := byCode["EN101"]
	assert.Equal(t, 1, en.Enrolled)
	assert.Zero(t, en.Completed)
	assert.Zero(t, en.AverageGradePoints)

	ph := byCode["PH301"]
	assert.Equal(t, 1, ph.Withdrawn)
	assert.Zero(t, ph.AverageGradePoints)

	// Untouched catalog entries still appear with zeroed tallies.
	hs := byCode["HS110"]
	assert.Zero(t, hs.Enrolled+hs.Completed+hs.Withdrawn)

	assert.Equal(t, "CS101", stats[0].CourseCode)
	assert.Equal(t, "PH301", stats[5].CourseCode)
}

func TestReportDepartmentStats(t *testing.T) {
	registry, students, courses := newRegistryFixture(t)
	svc := NewReportService(students, courses, registry, nil)

	stats, err := svc.DepartmentStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 5)

	assert.Equal(t, "Engineering", stats[0].Department)
	assert.Equal(t, 2, stats[0].Courses)
	assert.Equal(t, 2, stats[0].ActiveCourses)
	assert.Equal(t, 12, stats[0].Credits)

	// Single-course departments follow alphabetically.
	assert.Equal(t, "Computer Science", stats[1].Department)
	assert.Equal(t, "History", stats[2].Department)
	assert.Equal(t, 0, stats[2].ActiveCourses)
	assert.Equal(t, "Mathematics", stats[3].Department)
	assert.Equal(t, "Physics", stats[4].Department)
}

func TestReportGradeDistribution(t *testing.T) {
	registry, students, courses := newRegistryFixture(t)
	seedReportRecords(t, registry, students)
	svc := NewReportService(students, courses, registry, nil)

	counts, err := svc.GradeDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 4)

	assert.Equal(t, models.GradeA, counts[0].Grade)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, models.GradeB, counts[1].Grade)
	assert.Equal(t, models.GradeC, counts[2].Grade)
	assert.Equal(t, 2, counts[2].Count)
	assert.InDelta(t, 40.0, counts[2].Percentage, 0.0001)
	assert.Equal(t, models.GradeW, counts[3].Grade)
	assert.InDelta(t, 20.0, counts[3].Percentage, 0.0001)
}

func TestReportGradeDistributionEmpty(t *testing.T) {
	registry, students, courses := newRegistryFixture(t)
	svc := NewReportService(students, courses, registry, nil)

	counts, err := svc.GradeDistribution(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}
