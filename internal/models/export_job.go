package models

import (
	"strings"
	"time"

	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

// ExportType enumerates supported asynchronous export categories.
type ExportType string

const (
	ExportTypeTranscript  ExportType = "transcript"
	ExportTypeStudents    ExportType = "students"
	ExportTypeCourses     ExportType = "courses"
	ExportTypeEnrollments ExportType = "enrollments"
	ExportTypeGPASummary  ExportType = "gpa-summary"
)

// ParseExportType validates a raw export type value.
func ParseExportType(raw string) (ExportType, error) {
	t := ExportType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case ExportTypeTranscript, ExportTypeStudents, ExportTypeCourses, ExportTypeEnrollments, ExportTypeGPASummary:
		return t, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unknown export type "+raw)
}

// ExportFormat enumerates supported export file formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportParams stores request-scoped export options.
type ExportParams struct {
	StudentID  *int64       `json:"student_id,omitempty"`
	Semester   Semester     `json:"semester,omitempty"`
	Department string       `json:"department,omitempty"`
	Format     ExportFormat `json:"format"`
}

// ExportJob tracks one background export from request to download.
// Jobs live for the process lifetime only; the generated files outlive
// them until storage cleanup removes them.
type ExportJob struct {
	ID           string       `json:"id"`
	Type         ExportType   `json:"type"`
	Params       ExportParams `json:"params"`
	Status       ExportStatus `json:"status"`
	Progress     int          `json:"progress"`
	ResultURL    *string      `json:"result_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}

// Clone returns a copy safe to hand to callers.
func (j *ExportJob) Clone() *ExportJob {
	if j == nil {
		return nil
	}
	copied := *j
	if j.ResultURL != nil {
		url := *j.ResultURL
		copied.ResultURL = &url
	}
	if j.FinishedAt != nil {
		at := *j.FinishedAt
		copied.FinishedAt = &at
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		copied.ErrorMessage = &msg
	}
	if j.Params.StudentID != nil {
		id := *j.Params.StudentID
		copied.Params.StudentID = &id
	}
	return &copied
}
