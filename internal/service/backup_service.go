package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

const backupTimeLayout = "20060102_150405"

// Backup names double as path elements; anything else is rejected before
// it touches the filesystem.
var backupNamePattern = regexp.MustCompile(`^backup_\d{8}_\d{6}$`)

var (
	studentBackupHeader    = []string{"id", "reg_no", "full_name", "email", "status", "enrolled_at"}
	courseBackupHeader     = []string{"code", "title", "credits", "instructor", "semester", "department", "active"}
	enrollmentBackupHeader = []string{"id", "student_id", "reg_no", "course_code", "title", "credits", "semester", "grade", "enrolled_at", "graded_at", "status"}
)

type backupStudents interface {
	Snapshot(ctx context.Context) ([]models.Student, error)
	ReplaceAll(ctx context.Context, students []models.Student) error
}

type backupCourses interface {
	Snapshot(ctx context.Context) ([]models.Course, error)
	ReplaceAll(ctx context.Context, courses []models.Course) error
}

type backupRegistry interface {
	Snapshot(ctx context.Context) []models.Enrollment
	Restore(ctx context.Context, enrollments []models.Enrollment) error
}

// BackupService writes point-in-time CSV snapshots of the whole registrar
// state to disk and loads them back. Course membership sets are not stored;
// the registry rebuilds them from the enrollments it restores.
type BackupService struct {
	students backupStudents
	courses  backupCourses
	registry backupRegistry
	baseDir  string
	logger   *zap.Logger
}

// NewBackupService constructs a BackupService rooted at baseDir.
func NewBackupService(students backupStudents, courses backupCourses, registry backupRegistry, baseDir string, logger *zap.Logger) (*BackupService, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("backup directory required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{
		students: students,
		courses:  courses,
		registry: registry,
		baseDir:  baseDir,
		logger:   logger,
	}, nil
}

// CreateBackup snapshots students, courses, and enrollments into a new
// timestamped directory.
func (s *BackupService) CreateBackup(ctx context.Context) (*models.BackupInfo, error) {
	now := time.Now().UTC()
	name := "backup_" + now.Format(backupTimeLayout)
	dir := filepath.Join(s.baseDir, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "backup "+name+" already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create backup directory")
	}

	students, err := s.students.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot students")
	}
	courses, err := s.courses.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot courses")
	}
	enrollments := s.registry.Snapshot(ctx)

	studentRows := make([][]string, 0, len(students))
	regNos := make(map[int64]string, len(students))
	for _, st := range students {
		regNos[st.ID] = st.RegNo
		studentRows = append(studentRows, []string{
			strconv.FormatInt(st.ID, 10),
			st.RegNo,
			st.FullName,
			st.Email,
			string(st.Status),
			st.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}
	courseRows := make([][]string, 0, len(courses))
	for _, c := range courses {
		courseRows = append(courseRows, []string{
			c.Code,
			c.Title,
			strconv.Itoa(c.Credits),
			c.Instructor,
			string(c.Semester),
			c.Department,
			strconv.FormatBool(c.Active),
		})
	}
	enrollmentRows := make([][]string, 0, len(enrollments))
	for _, e := range enrollments {
		gradedAt := ""
		if e.GradedAt != nil {
			gradedAt = e.GradedAt.UTC().Format(time.RFC3339)
		}
		enrollmentRows = append(enrollmentRows, []string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.StudentID, 10),
			regNos[e.StudentID],
			e.CourseCode,
			e.CourseTitle,
			strconv.Itoa(e.Credits),
			string(e.Semester),
			string(e.Grade),
			e.EnrolledAt.UTC().Format(time.RFC3339),
			gradedAt,
			string(e.Status),
		})
	}

	if err := writeBackupCSV(filepath.Join(dir, "students.csv"), studentBackupHeader, studentRows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write students.csv")
	}
	if err := writeBackupCSV(filepath.Join(dir, "courses.csv"), courseBackupHeader, courseRows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write courses.csv")
	}
	if err := writeBackupCSV(filepath.Join(dir, "enrollments.csv"), enrollmentBackupHeader, enrollmentRows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write enrollments.csv")
	}

	info := &models.BackupInfo{
		Name:        name,
		CreatedAt:   now,
		Students:    len(students),
		Courses:     len(courses),
		Enrollments: len(enrollments),
	}
	if err := writeBackupMeta(filepath.Join(dir, "backup_info.txt"), info); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write backup_info.txt")
	}
	s.logger.Info("backup created",
		zap.String("name", name),
		zap.Int("students", info.Students),
		zap.Int("courses", info.Courses),
		zap.Int("enrollments", info.Enrollments))
	return info, nil
}

// ListBackups returns the stored backups, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]models.BackupInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read backup directory")
	}
	out := make([]models.BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !backupNamePattern.MatchString(entry.Name()) {
			continue
		}
		info := models.BackupInfo{Name: entry.Name()}
		if at, err := time.Parse(backupTimeLayout, strings.TrimPrefix(entry.Name(), "backup_")); err == nil {
			info.CreatedAt = at.UTC()
		}
		if meta, err := readBackupMeta(filepath.Join(s.baseDir, entry.Name(), "backup_info.txt")); err == nil {
			info.Students = meta.Students
			info.Courses = meta.Courses
			info.Enrollments = meta.Enrollments
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Size reports the total bytes a backup occupies on disk.
func (s *BackupService) Size(ctx context.Context, name string) (int64, error) {
	dir, err := s.backupPath(name)
	if err != nil {
		return 0, err
	}
	var total int64
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to measure backup")
	}
	return total, nil
}

// Restore replaces the directory, catalog, and registry state with the
// contents of a named backup. All three CSV files are parsed before any
// store is touched, so a malformed backup never half-applies.
func (s *BackupService) Restore(ctx context.Context, name string) (*models.BackupInfo, error) {
	dir, err := s.backupPath(name)
	if err != nil {
		return nil, err
	}
	for _, file := range []string{"students.csv", "courses.csv", "enrollments.csv"} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "backup is missing "+file)
		}
	}

	students, err := s.parseStudents(filepath.Join(dir, "students.csv"))
	if err != nil {
		return nil, err
	}
	courses, err := s.parseCourses(filepath.Join(dir, "courses.csv"))
	if err != nil {
		return nil, err
	}
	enrollments, err := s.parseEnrollments(filepath.Join(dir, "enrollments.csv"))
	if err != nil {
		return nil, err
	}

	if err := s.students.ReplaceAll(ctx, students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore students")
	}
	if err := s.courses.ReplaceAll(ctx, courses); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore courses")
	}
	if err := s.registry.Restore(ctx, enrollments); err != nil {
		return nil, err
	}

	info := &models.BackupInfo{
		Name:        name,
		Students:    len(students),
		Courses:     len(courses),
		Enrollments: len(enrollments),
	}
	if at, err := time.Parse(backupTimeLayout, strings.TrimPrefix(name, "backup_")); err == nil {
		info.CreatedAt = at.UTC()
	}
	s.logger.Info("backup restored",
		zap.String("name", name),
		zap.Int("students", info.Students),
		zap.Int("courses", info.Courses),
		zap.Int("enrollments", info.Enrollments))
	return info, nil
}

// Delete removes a backup tree.
func (s *BackupService) Delete(ctx context.Context, name string) error {
	dir, err := s.backupPath(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete backup")
	}
	return nil
}

func (s *BackupService) backupPath(name string) (string, error) {
	if !backupNamePattern.MatchString(name) {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid backup name")
	}
	dir := filepath.Join(s.baseDir, name)
	if _, err := os.Stat(dir); err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "backup not found")
	}
	return dir, nil
}

func (s *BackupService) parseStudents(path string) ([]models.Student, error) {
	rows, err := readBackupCSV(path, studentBackupHeader)
	if err != nil {
		return nil, err
	}
	out := make([]models.Student, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, backupRowError("students.csv", i, "id must be an integer")
		}
		status, err := models.ParseStudentStatus(row[4])
		if err != nil {
			return nil, backupRowError("students.csv", i, "unknown status "+row[4])
		}
		enrolledAt, err := time.Parse(time.RFC3339, row[5])
		if err != nil {
			return nil, backupRowError("students.csv", i, "enrolled_at must be RFC3339")
		}
		out = append(out, models.Student{
			ID:         id,
			RegNo:      row[1],
			FullName:   row[2],
			Email:      row[3],
			Status:     status,
			EnrolledAt: enrolledAt,
		})
	}
	return out, nil
}

func (s *BackupService) parseCourses(path string) ([]models.Course, error) {
	rows, err := readBackupCSV(path, courseBackupHeader)
	if err != nil {
		return nil, err
	}
	out := make([]models.Course, 0, len(rows))
	for i, row := range rows {
		credits, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, backupRowError("courses.csv", i, "credits must be an integer")
		}
		semester, err := models.ParseSemester(row[4])
		if err != nil {
			return nil, backupRowError("courses.csv", i, "unknown semester "+row[4])
		}
		active, err := strconv.ParseBool(row[6])
		if err != nil {
			return nil, backupRowError("courses.csv", i, "active must be true or false")
		}
		out = append(out, models.Course{
			Code:       row[0],
			Title:      row[1],
			Credits:    credits,
			Instructor: row[3],
			Semester:   semester,
			Department: row[5],
			Active:     active,
		})
	}
	return out, nil
}

// parseEnrollments keeps status and grade as raw values; the registry
// validates them together with pair uniqueness before committing.
func (s *BackupService) parseEnrollments(path string) ([]models.Enrollment, error) {
	rows, err := readBackupCSV(path, enrollmentBackupHeader)
	if err != nil {
		return nil, err
	}
	out := make([]models.Enrollment, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, backupRowError("enrollments.csv", i, "id must be an integer")
		}
		studentID, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, backupRowError("enrollments.csv", i, "student_id must be an integer")
		}
		credits, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, backupRowError("enrollments.csv", i, "credits must be an integer")
		}
		enrolledAt, err := time.Parse(time.RFC3339, row[8])
		if err != nil {
			return nil, backupRowError("enrollments.csv", i, "enrolled_at must be RFC3339")
		}
		e := models.Enrollment{
			ID:          id,
			StudentID:   studentID,
			CourseCode:  row[3],
			CourseTitle: row[4],
			Credits:     credits,
			Semester:    models.Semester(row[6]),
			Grade:       models.Grade(row[7]),
			EnrolledAt:  enrolledAt,
			Status:      models.EnrollmentStatus(row[10]),
		}
		if row[9] != "" {
			gradedAt, err := time.Parse(time.RFC3339, row[9])
			if err != nil {
				return nil, backupRowError("enrollments.csv", i, "graded_at must be RFC3339")
			}
			e.GradedAt = &gradedAt
		}
		out = append(out, e)
	}
	return out, nil
}

func backupRowError(file string, index int, message string) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s row %d: %s", file, index+2, message))
}

func writeBackupCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			file.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func readBackupCSV(path string, wantHeader []string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open "+filepath.Base(path))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "malformed "+filepath.Base(path)+": "+err.Error())
	}
	if len(records) == 0 || !matchesHeader(records[0], wantHeader) {
		return nil, appErrors.Clone(appErrors.ErrValidation, filepath.Base(path)+" header must be "+strings.Join(wantHeader, ","))
	}
	return records[1:], nil
}

func writeBackupMeta(path string, info *models.BackupInfo) error {
	content := fmt.Sprintf("name: %s\ncreated_at: %s\nstudents: %d\ncourses: %d\nenrollments: %d\n",
		info.Name,
		info.CreatedAt.Format(time.RFC3339),
		info.Students,
		info.Courses,
		info.Enrollments)
	return os.WriteFile(path, []byte(content), 0o644)
}

func readBackupMeta(path string) (*models.BackupInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info := &models.BackupInfo{}
	for _, line := range strings.Split(string(raw), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "students":
			info.Students, _ = strconv.Atoi(value)
		case "courses":
			info.Courses, _ = strconv.Atoi(value)
		case "enrollments":
			info.Enrollments, _ = strconv.Atoi(value)
		}
	}
	return info, nil
}
