package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/repository"
)

func newImportService(t *testing.T) (*ImportService, *repository.MemoryStudentRepository, *CourseService) {
	t.Helper()
	studentRepo := repository.NewMemoryStudentRepository(nil)
	students := NewStudentService(studentRepo, nil, nil)
	courses := NewCourseService(repository.NewMemoryCourseRepository(), nil, nil)
	return NewImportService(students, courses, nil), studentRepo, courses
}

func TestImportStudents(t *testing.T) {
	svc, repo, _ := newImportService(t)

	csv := strings.Join([]string{
		"reg_no,full_name,email,status",
		"reg010,Ed Nolan,ed@campus.edu,ACTIVE",
		"REG011,Fay Osei,fay@campus.edu,",
		"REG012,Gil Patel,gil@campus.edu,GRADUATED",
	}, "\n")

	summary, err := svc.ImportStudents(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Imported)
	assert.Zero(t, summary.Skipped)
	assert.Empty(t, summary.Errors)

	student, err := repo.FindByRegNo(context.Background(), "REG010")
	require.NoError(t, err)
	assert.Equal(t, "Ed Nolan", student.FullName)
	assert.Equal(t, models.StudentStatusActive, student.Status)

	student, err = repo.FindByRegNo(context.Background(), "REG011")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusActive, student.Status)

	student, err = repo.FindByRegNo(context.Background(), "REG012")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusGraduated, student.Status)
}

func TestImportStudentsCollectsRowErrors(t *testing.T) {
	svc, repo, _ := newImportService(t)

	csv := strings.Join([]string{
		"reg_no,full_name,email,status",
		"REG010,Ed Nolan,ed@campus.edu,ACTIVE",
		"REG010,Dupe Nolan,dupe@campus.edu,ACTIVE",
		"REG013,Short,notanemail,ACTIVE",
		"REG014,Iris Quinn",
		"REG015,Jon Rhee,jon@campus.edu,ENROLLED",
	}, "\n")

	summary, err := svc.ImportStudents(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 4, summary.Skipped)
	require.Len(t, summary.Errors, 4)

	// Lines count records including the header.
	assert.Equal(t, 3, summary.Errors[0].Line)
	assert.Contains(t, summary.Errors[0].Message, "reg_no already used")
	assert.Equal(t, 4, summary.Errors[1].Line)
	assert.Equal(t, 5, summary.Errors[2].Line)
	assert.Contains(t, summary.Errors[2].Message, "expected 4 fields")
	assert.Equal(t, 6, summary.Errors[3].Line)

	// The valid row still landed.
	_, err = repo.FindByRegNo(context.Background(), "REG010")
	require.NoError(t, err)
}

func TestImportStudentsHeaderRequired(t *testing.T) {
	svc, _, _ := newImportService(t)
	ctx := context.Background()

	_, err := svc.ImportStudents(ctx, strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header row required")

	_, err = svc.ImportStudents(ctx, strings.NewReader("REG010,Ed Nolan,ed@campus.edu,ACTIVE\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header must be")
}

func TestImportCourses(t *testing.T) {
	svc, _, courses := newImportService(t)

	csv := strings.Join([]string{
		"code,title,credits,instructor,semester,department,active",
		"cs101,Intro to Computer Science,3,Dr. Hall,FALL,Computer Science,true",
		"HS110,Ancient History,3,Dr. Unwin,fall,History,false",
		"MA201,Calculus II,4,Dr. Pell,FALL,Mathematics,",
	}, "\n")

	summary, err := svc.ImportCourses(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Imported)
	assert.Empty(t, summary.Errors)

	course, err := courses.Get(context.Background(), "CS101")
	require.NoError(t, err)
	assert.True(t, course.Active)
	assert.Equal(t, models.SemesterFall, course.Semester)

	// active=false rows land deactivated; an empty cell means active.
	course, err = courses.Get(context.Background(), "HS110")
	require.NoError(t, err)
	assert.False(t, course.Active)

	course, err = courses.Get(context.Background(), "MA201")
	require.NoError(t, err)
	assert.True(t, course.Active)
}

func TestImportCoursesCollectsRowErrors(t *testing.T) {
	svc, _, _ := newImportService(t)

	csv := strings.Join([]string{
		"code,title,credits,instructor,semester,department,active",
		"CS101,Intro to Computer Science,three,Dr. Hall,FALL,Computer Science,true",
		"CS102,Data Structures,3,Dr. Hall,WINTER,Computer Science,true",
		"CS103,Algorithms,3,Dr. Hall,FALL,Computer Science,maybe",
		"CS104,Operating Systems,3,Dr. Hall,FALL,Computer Science,true",
	}, "\n")

	summary, err := svc.ImportCourses(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 3, summary.Skipped)
	require.Len(t, summary.Errors, 3)
	assert.Contains(t, summary.Errors[0].Message, "credits must be an integer")
	assert.Contains(t, summary.Errors[1].Message, "unknown semester")
	assert.Contains(t, summary.Errors[2].Message, "active must be true or false")
}
