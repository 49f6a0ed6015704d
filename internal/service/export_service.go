package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/pkg/export"
	"github.com/campus-hq/registrar-api/pkg/storage"
)

type exportStudents interface {
	Snapshot(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type exportCourses interface {
	Snapshot(ctx context.Context) ([]models.Course, error)
}

type exportRegistry interface {
	AllEnrollments(ctx context.Context) []*models.Enrollment
	StudentEnrollments(ctx context.Context, studentID int64) []*models.Enrollment
}

type exportReports interface {
	GPADistribution(ctx context.Context) (*models.GPADistribution, error)
	TopStudents(ctx context.Context, limit int) ([]models.TopStudent, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderWithSummary(data export.Dataset, title string, summary []string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds registrar datasets and persists rendered files with
// signed download tokens.
type ExportService struct {
	students exportStudents
	courses  exportCourses
	registry exportRegistry
	reports  exportReports
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(students exportStudents, courses exportCourses, registry exportRegistry, reports exportReports, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		students: students,
		courses:  courses,
		registry: registry,
		reports:  reports,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, summary, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		if len(summary) > 0 {
			payload, err = s.pdf.RenderWithSummary(dataset, title, summary)
		} else {
			payload, err = s.pdf.Render(dataset, title)
		}
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/exports/download/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	switch {
	case job.Params.StudentID != nil:
		scope = fmt.Sprintf("student_%d", *job.Params.StudentID)
	case job.Params.Department != "":
		scope = sanitizeFilename(strings.ToLower(job.Params.Department))
	case job.Params.Semester != "":
		scope = strings.ToLower(string(job.Params.Semester))
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ReplaceAll(string(job.Type), "-", "_"), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, []string, error) {
	switch job.Type {
	case models.ExportTypeTranscript:
		return s.buildTranscriptDataset(ctx, job.Params)
	case models.ExportTypeStudents:
		return s.buildStudentDataset(ctx)
	case models.ExportTypeCourses:
		return s.buildCourseDataset(ctx, job.Params)
	case models.ExportTypeEnrollments:
		return s.buildEnrollmentDataset(ctx, job.Params)
	case models.ExportTypeGPASummary:
		return s.buildGPASummaryDataset(ctx)
	default:
		return export.Dataset{}, "", nil, fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildTranscriptDataset(ctx context.Context, params models.ExportParams) (export.Dataset, string, []string, error) {
	if params.StudentID == nil {
		return export.Dataset{}, "", nil, fmt.Errorf("transcript export requires student_id")
	}
	student, err := s.students.FindByID(ctx, *params.StudentID)
	if err != nil {
		return export.Dataset{}, "", nil, err
	}
	enrollments := s.registry.StudentEnrollments(ctx, student.ID)
	transcript := models.BuildTranscript(student, enrollments, time.Now().UTC())

	headers := []string{"Semester", "Course", "Title", "Credits", "Grade", "Points", "Status"}
	rows := make([]map[string]string, 0, len(enrollments))
	for _, semester := range transcript.Semesters {
		for _, entry := range semester.Entries {
			points := ""
			if entry.Grade.CountsTowardGPA() {
				points = fmt.Sprintf("%.1f", entry.GradePoints)
			}
			rows = append(rows, map[string]string{
				"Semester": string(semester.Semester),
				"Course":   entry.CourseCode,
				"Title":    entry.CourseTitle,
				"Credits":  fmt.Sprintf("%d", entry.Credits),
				"Grade":    string(entry.Grade),
				"Points":   points,
				"Status":   string(entry.Status),
			})
		}
	}

	summary := []string{
		fmt.Sprintf("Student: %s (%s)", transcript.StudentName, transcript.RegNo),
		fmt.Sprintf("Status: %s", transcript.StudentStatus),
		fmt.Sprintf("Cumulative GPA: %.2f", transcript.GPA),
		fmt.Sprintf("Total Credits: %d (%d completed)", transcript.TotalCredits, transcript.CompletedCredits),
		fmt.Sprintf("Academic Standing: %s", transcript.Standing),
		fmt.Sprintf("Generated: %s", transcript.GeneratedAt.Format(time.RFC3339)),
	}
	title := fmt.Sprintf("Transcript %s", transcript.RegNo)
	return export.Dataset{Headers: headers, Rows: rows}, title, summary, nil
}

func (s *ExportService) buildStudentDataset(ctx context.Context) (export.Dataset, string, []string, error) {
	students, err := s.students.Snapshot(ctx)
	if err != nil {
		return export.Dataset{}, "", nil, err
	}
	headers := []string{"ID", "Reg No", "Full Name", "Email", "Status", "Enrolled At", "GPA", "Completed Credits"}
	rows := make([]map[string]string, 0, len(students))
	for _, student := range students {
		enrollments := s.registry.StudentEnrollments(ctx, student.ID)
		gpa := ""
		for _, e := range enrollments {
			if e.Graded() && e.Grade.CountsTowardGPA() {
				gpa = fmt.Sprintf("%.2f", models.GPA(enrollments))
				break
			}
		}
		rows = append(rows, map[string]string{
			"ID":                fmt.Sprintf("%d", student.ID),
			"Reg No":            student.RegNo,
			"Full Name":         student.FullName,
			"Email":             student.Email,
			"Status":            string(student.Status),
			"Enrolled At":       student.EnrolledAt.UTC().Format("2006-01-02"),
			"GPA":               gpa,
			"Completed Credits": fmt.Sprintf("%d", models.CompletedCredits(enrollments)),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Student Directory", nil, nil
}

func (s *ExportService) buildCourseDataset(ctx context.Context, params models.ExportParams) (export.Dataset, string, []string, error) {
	courses, err := s.courses.Snapshot(ctx)
	if err != nil {
		return export.Dataset{}, "", nil, err
	}
	headers := []string{"Code", "Title", "Credits", "Instructor", "Semester", "Department", "Active"}
	rows := make([]map[string]string, 0, len(courses))
	for _, course := range courses {
		if params.Department != "" && !strings.EqualFold(course.Department, params.Department) {
			continue
		}
		if params.Semester != "" && course.Semester != params.Semester {
			continue
		}
		rows = append(rows, map[string]string{
			"Code":       course.Code,
			"Title":      course.Title,
			"Credits":    fmt.Sprintf("%d", course.Credits),
			"Instructor": course.Instructor,
			"Semester":   string(course.Semester),
			"Department": course.Department,
			"Active":     fmt.Sprintf("%t", course.Active),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Course Catalog", nil, nil
}

func (s *ExportService) buildEnrollmentDataset(ctx context.Context, params models.ExportParams) (export.Dataset, string, []string, error) {
	var enrollments []*models.Enrollment
	if params.StudentID != nil {
		enrollments = s.registry.StudentEnrollments(ctx, *params.StudentID)
	} else {
		enrollments = s.registry.AllEnrollments(ctx)
	}
	headers := []string{"ID", "Student ID", "Course", "Title", "Credits", "Semester", "Grade", "Status", "Enrolled At", "Graded At"}
	rows := make([]map[string]string, 0, len(enrollments))
	for _, e := range enrollments {
		if params.Semester != "" && e.Semester != params.Semester {
			continue
		}
		gradedAt := ""
		if e.GradedAt != nil {
			gradedAt = e.GradedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, map[string]string{
			"ID":          fmt.Sprintf("%d", e.ID),
			"Student ID":  fmt.Sprintf("%d", e.StudentID),
			"Course":      e.CourseCode,
			"Title":       e.CourseTitle,
			"Credits":     fmt.Sprintf("%d", e.Credits),
			"Semester":    string(e.Semester),
			"Grade":       string(e.Grade),
			"Status":      string(e.Status),
			"Enrolled At": e.EnrolledAt.UTC().Format(time.RFC3339),
			"Graded At":   gradedAt,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Enrollment Records", nil, nil
}

func (s *ExportService) buildGPASummaryDataset(ctx context.Context) (export.Dataset, string, []string, error) {
	dist, err := s.reports.GPADistribution(ctx)
	if err != nil {
		return export.Dataset{}, "", nil, err
	}
	top, err := s.reports.TopStudents(ctx, defaultTopStudents)
	if err != nil {
		return export.Dataset{}, "", nil, err
	}

	headers := []string{"Metric", "Value", "Detail"}
	rows := []map[string]string{
		{"Metric": "Graded Students", "Value": fmt.Sprintf("%d", dist.TotalStudents), "Detail": ""},
		{"Metric": "Average GPA", "Value": fmt.Sprintf("%.2f", dist.AverageGPA), "Detail": ""},
	}
	for _, band := range dist.Bands {
		rows = append(rows, map[string]string{
			"Metric": string(band.Standing),
			"Value":  fmt.Sprintf("%d", band.Count),
			"Detail": fmt.Sprintf("GPA >= %.2f", band.MinGPA),
		})
	}
	for i, student := range top {
		rows = append(rows, map[string]string{
			"Metric": fmt.Sprintf("Top %d", i+1),
			"Value":  student.RegNo,
			"Detail": fmt.Sprintf("%s GPA %.2f", student.FullName, student.GPA),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "GPA Summary Report", nil, nil
}
