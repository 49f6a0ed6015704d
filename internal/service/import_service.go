package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

var (
	studentImportHeader = []string{"reg_no", "full_name", "email", "status"}
	courseImportHeader  = []string{"code", "title", "credits", "instructor", "semester", "department", "active"}
)

type studentImporter interface {
	Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error)
}

type courseImporter interface {
	Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error)
	Deactivate(ctx context.Context, code string) (*models.Course, error)
}

// ImportService loads students and courses from uploaded CSV files. Rows
// run through the same create paths as the API, so imported data obeys the
// same validation and conflict rules. A bad row is reported and skipped;
// it never aborts the rest of the file.
type ImportService struct {
	students studentImporter
	courses  courseImporter
	logger   *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(students studentImporter, courses courseImporter, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{students: students, courses: courses, logger: logger}
}

// ImportStudents reads student rows (reg_no,full_name,email,status) from r.
func (s *ImportService) ImportStudents(ctx context.Context, r io.Reader) (*models.ImportSummary, error) {
	summary, err := s.importRows(ctx, r, studentImportHeader, func(ctx context.Context, record []string) error {
		req := CreateStudentRequest{
			RegNo:    strings.TrimSpace(record[0]),
			FullName: strings.TrimSpace(record[1]),
			Email:    strings.TrimSpace(record[2]),
			Status:   strings.TrimSpace(record[3]),
		}
		_, err := s.students.Create(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student import finished",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// ImportCourses reads course rows
// (code,title,credits,instructor,semester,department,active) from r.
func (s *ImportService) ImportCourses(ctx context.Context, r io.Reader) (*models.ImportSummary, error) {
	summary, err := s.importRows(ctx, r, courseImportHeader, func(ctx context.Context, record []string) error {
		credits, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "credits must be an integer")
		}
		active := true
		if raw := strings.TrimSpace(record[6]); raw != "" {
			active, err = strconv.ParseBool(raw)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, "active must be true or false")
			}
		}
		course, err := s.courses.Create(ctx, CreateCourseRequest{
			Code:       strings.TrimSpace(record[0]),
			Title:      strings.TrimSpace(record[1]),
			Credits:    credits,
			Instructor: strings.TrimSpace(record[3]),
			Semester:   strings.TrimSpace(record[4]),
			Department: strings.TrimSpace(record[5]),
		})
		if err != nil {
			return err
		}
		if !active {
			_, err = s.courses.Deactivate(ctx, course.Code)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("course import finished",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

type rowApplier func(ctx context.Context, record []string) error

// importRows drives one CSV pass. Line numbers in row errors count records
// including the header row, which matches what spreadsheet users see as
// long as no field embeds a newline.
func (s *ImportService) importRows(ctx context.Context, r io.Reader, header []string, apply rowApplier) (*models.ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty, header row required")
	}
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "malformed csv: "+err.Error())
	}
	if !matchesHeader(first, header) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("header must be %s", strings.Join(header, ",")))
	}

	summary := &models.ImportSummary{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.ImportRowError{Line: line, Message: "malformed row: " + err.Error()})
			continue
		}
		if len(record) != len(header) {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.ImportRowError{Line: line, Message: fmt.Sprintf("expected %d fields, got %d", len(header), len(record))})
			continue
		}
		if err := apply(ctx, record); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.ImportRowError{Line: line, Message: rowMessage(err)})
			continue
		}
		summary.Imported++
	}
	return summary, nil
}

func matchesHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return false
		}
	}
	return true
}

func rowMessage(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
