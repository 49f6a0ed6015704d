package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
)

// Keys carry a trailing segment so the invalidation pattern for student 1
// cannot sweep student 12 along with it.
func transcriptCacheKey(studentID int64) string {
	return fmt.Sprintf("transcript:%d:json", studentID)
}

func transcriptCachePattern(studentID int64) string {
	return fmt.Sprintf("transcript:%d:*", studentID)
}

type transcriptStudents interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type enrollmentSource interface {
	StudentEnrollments(ctx context.Context, studentID int64) []*models.Enrollment
}

// TranscriptService assembles transcripts from the student directory and the
// enrollment registry, with a cache in front when one is configured.
type TranscriptService struct {
	students transcriptStudents
	registry enrollmentSource
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewTranscriptService constructs the transcript service. Cache is optional.
func NewTranscriptService(students transcriptStudents, registry enrollmentSource, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TranscriptService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{students: students, registry: registry, cache: cache, ttl: ttl, logger: logger}
}

// Get returns the student's transcript. The second return value reports
// whether it was served from cache.
func (s *TranscriptService) Get(ctx context.Context, studentID int64) (*models.Transcript, bool, error) {
	key := transcriptCacheKey(studentID)
	if s.cache.Enabled() {
		var cached models.Transcript
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	transcript, err := s.build(ctx, studentID)
	if err != nil {
		return nil, false, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, transcript, s.ttl); err != nil {
			s.logger.Warn("failed to cache transcript", zap.Int64("student_id", studentID), zap.Error(err))
		}
	}
	return transcript, false, nil
}

func (s *TranscriptService) build(ctx context.Context, studentID int64) (*models.Transcript, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollments := s.registry.StudentEnrollments(ctx, studentID)
	return models.BuildTranscript(student, enrollments, time.Now().UTC()), nil
}

// Standing reports the student's academic standing together with the GPA it
// derives from.
func (s *TranscriptService) Standing(ctx context.Context, studentID int64) (models.AcademicStanding, float64, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return "", 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	gpa := models.GPA(s.registry.StudentEnrollments(ctx, student.ID))
	return models.StandingForGPA(gpa), gpa, nil
}

// Render formats a transcript as plain text for terminal and email use.
func (s *TranscriptService) Render(transcript *models.Transcript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ACADEMIC TRANSCRIPT\n")
	fmt.Fprintf(&b, "Student: %s (%s)\n", transcript.StudentName, transcript.RegNo)
	fmt.Fprintf(&b, "Status: %s\n", transcript.StudentStatus)
	fmt.Fprintf(&b, "Generated: %s\n", transcript.GeneratedAt.Format(time.RFC3339))

	for _, semester := range transcript.Semesters {
		fmt.Fprintf(&b, "\n%s\n", semester.Semester)
		for _, entry := range semester.Entries {
			grade := string(entry.Grade)
			if grade == "" {
				grade = "-"
			}
			points := "    "
			if entry.Grade.CountsTowardGPA() {
				points = fmt.Sprintf("%.1f", entry.GradePoints)
			}
			fmt.Fprintf(&b, "  %-8s %-36s %dcr  %-2s %s  %s\n",
				entry.CourseCode, entry.CourseTitle, entry.Credits, grade, points, entry.Status)
		}
		fmt.Fprintf(&b, "  Semester GPA: %.2f  Credits: %d\n", semester.GPA, semester.Credits)
	}

	fmt.Fprintf(&b, "\nCumulative GPA: %.2f\n", transcript.GPA)
	fmt.Fprintf(&b, "Total Credits: %d (%d completed)\n", transcript.TotalCredits, transcript.CompletedCredits)
	fmt.Fprintf(&b, "Academic Standing: %s\n", transcript.Standing)
	return b.String()
}
