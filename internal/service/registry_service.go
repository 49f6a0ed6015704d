package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
	"github.com/campus-hq/registrar-api/pkg/sequence"
)

// DefaultMaxCredits caps how many ENROLLED credits a student may hold at once.
const DefaultMaxCredits = 18

// studentDirectory is the registry's view of the student store.
type studentDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	AddCourseMembership(ctx context.Context, studentID int64, code string) error
	RemoveCourseMembership(ctx context.Context, studentID int64, code string) error
}

// courseCatalog is the registry's view of the course store.
type courseCatalog interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

type enrollmentKey struct {
	studentID int64
	code      string
}

// RegistryService owns the enrollment collection and is the only component
// allowed to mutate it. A mutation and the membership update it triggers
// complete under one lock, so an enrollment and its reflection in the
// student's course set are never observable out of sync. Reads hand out
// clones.
type RegistryService struct {
	students   studentDirectory
	courses    courseCatalog
	seq        *sequence.Sequence
	maxCredits int
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger

	mu          sync.RWMutex
	enrollments map[int64]*models.Enrollment
	byStudent   map[int64][]int64
	byCourse    map[string][]int64
	byPair      map[enrollmentKey][]int64
}

// NewRegistryService constructs the registry around its collaborators. The
// identity source must be scoped to the registry's lifetime; cache and
// metrics are optional.
func NewRegistryService(students studentDirectory, courses courseCatalog, seq *sequence.Sequence, maxCredits int, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *RegistryService {
	if seq == nil {
		seq = sequence.New(0)
	}
	if maxCredits <= 0 {
		maxCredits = DefaultMaxCredits
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{
		students:    students,
		courses:     courses,
		seq:         seq,
		maxCredits:  maxCredits,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		enrollments: make(map[int64]*models.Enrollment),
		byStudent:   make(map[int64][]int64),
		byCourse:    make(map[string][]int64),
		byPair:      make(map[enrollmentKey][]int64),
	}
}

// MaxCredits returns the configured per-term credit ceiling.
func (s *RegistryService) MaxCredits() int {
	return s.maxCredits
}

// Enroll registers a student in a course after the full admission checks:
// both parties exist and are active, the pair holds no live enrollment, and
// the student's current ENROLLED credit load leaves room for the course.
func (s *RegistryService) Enroll(ctx context.Context, studentID int64, courseCode string) (*models.Enrollment, error) {
	enrollment, err := s.enroll(ctx, studentID, courseCode)
	s.record("enroll", err)
	return enrollment, err
}

func (s *RegistryService) enroll(ctx context.Context, studentID int64, courseCode string) (*models.Enrollment, error) {
	code, err := models.NormalizeCourseCode(courseCode)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !student.Active() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("student %s is not active", student.RegNo))
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("course %s is not active", course.Code))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := enrollmentKey{studentID: studentID, code: code}
	for _, id := range s.byPair[key] {
		if !s.enrollments[id].Status.Terminal() {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("student %s is already enrolled in %s", student.RegNo, code))
		}
	}

	load := s.enrolledCreditsLocked(studentID)
	if load+course.Credits > s.maxCredits {
		return nil, appErrors.Clone(appErrors.ErrCreditLimit,
			fmt.Sprintf("enrolling in %s would hold %d credits, the limit is %d", code, load+course.Credits, s.maxCredits))
	}

	enrollment := &models.Enrollment{
		ID:          s.seq.Next(),
		StudentID:   studentID,
		CourseCode:  code,
		CourseTitle: course.Title,
		Credits:     course.Credits,
		Semester:    course.Semester,
		Status:      models.EnrollmentEnrolled,
		EnrolledAt:  time.Now().UTC(),
	}
	s.insertLocked(enrollment)

	if err := s.students.AddCourseMembership(ctx, studentID, code); err != nil {
		s.removeLocked(enrollment)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course membership")
	}

	s.invalidateTranscript(ctx, studentID)
	return enrollment.Clone(), nil
}

// Unenroll drops a student from a course. A graded enrollment survives as
// WITHDRAWN with grade W to preserve the academic record; an ungraded one is
// removed outright, in which case the returned enrollment is nil.
func (s *RegistryService) Unenroll(ctx context.Context, studentID int64, courseCode string) (*models.Enrollment, error) {
	enrollment, err := s.unenroll(ctx, studentID, courseCode)
	s.record("unenroll", err)
	return enrollment, err
}

func (s *RegistryService) unenroll(ctx context.Context, studentID int64, courseCode string) (*models.Enrollment, error) {
	code, err := models.NormalizeCourseCode(courseCode)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enrollment := s.activeForPairLocked(enrollmentKey{studentID: studentID, code: code})
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	if enrollment.Graded() {
		previousGrade := enrollment.Grade
		previousGradedAt := enrollment.GradedAt
		now := time.Now().UTC()
		enrollment.Status = models.EnrollmentWithdrawn
		enrollment.Grade = models.GradeW
		enrollment.GradedAt = &now
		if err := s.students.RemoveCourseMembership(ctx, studentID, code); err != nil {
			enrollment.Status = models.EnrollmentEnrolled
			enrollment.Grade = previousGrade
			enrollment.GradedAt = previousGradedAt
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course membership")
		}
		s.invalidateTranscript(ctx, studentID)
		return enrollment.Clone(), nil
	}

	s.removeLocked(enrollment)
	if err := s.students.RemoveCourseMembership(ctx, studentID, code); err != nil {
		s.insertLocked(enrollment)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course membership")
	}
	s.invalidateTranscript(ctx, studentID)
	return nil, nil
}

// RecordGrade sets the grade on an active enrollment. Any grade outside I
// and W completes the enrollment; I and W leave it ENROLLED so the explicit
// withdraw path stays the only route to WITHDRAWN.
func (s *RegistryService) RecordGrade(ctx context.Context, studentID int64, courseCode string, grade models.Grade) (*models.Enrollment, error) {
	enrollment, err := s.recordGrade(ctx, studentID, courseCode, grade)
	s.record("record_grade", err)
	return enrollment, err
}

func (s *RegistryService) recordGrade(ctx context.Context, studentID int64, courseCode string, grade models.Grade) (*models.Enrollment, error) {
	code, err := models.NormalizeCourseCode(courseCode)
	if err != nil {
		return nil, err
	}
	if !grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown grade "+string(grade))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := enrollmentKey{studentID: studentID, code: code}
	enrollment := s.activeForPairLocked(key)
	if enrollment == nil {
		if s.latestForPairLocked(key) != nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "grade can only be recorded on an active enrollment")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	now := time.Now().UTC()
	enrollment.Grade = grade
	enrollment.GradedAt = &now
	if grade != models.GradeI && grade != models.GradeW {
		enrollment.Status = models.EnrollmentCompleted
	}
	s.invalidateTranscript(ctx, studentID)
	return enrollment.Clone(), nil
}

// UpdateGrade corrects the grade on any enrollment for the pair regardless
// of its status, and deliberately leaves the status alone: correcting B to F
// on a COMPLETED enrollment must not rewrite lifecycle history.
func (s *RegistryService) UpdateGrade(ctx context.Context, studentID int64, courseCode string, grade models.Grade) (*models.Enrollment, error) {
	enrollment, err := s.updateGrade(ctx, studentID, courseCode, grade)
	s.record("update_grade", err)
	return enrollment, err
}

func (s *RegistryService) updateGrade(ctx context.Context, studentID int64, courseCode string, grade models.Grade) (*models.Enrollment, error) {
	code, err := models.NormalizeCourseCode(courseCode)
	if err != nil {
		return nil, err
	}
	if !grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown grade "+string(grade))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enrollment := s.findForPairLocked(enrollmentKey{studentID: studentID, code: code})
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	now := time.Now().UTC()
	enrollment.Grade = grade
	enrollment.GradedAt = &now
	s.invalidateTranscript(ctx, studentID)
	return enrollment.Clone(), nil
}

// FindEnrollment returns the enrollment for a (student, course) pair. When
// history holds several records for the pair the active one wins, otherwise
// the most recent.
func (s *RegistryService) FindEnrollment(ctx context.Context, studentID int64, courseCode string) (*models.Enrollment, error) {
	code, err := models.NormalizeCourseCode(courseCode)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	enrollment := s.findForPairLocked(enrollmentKey{studentID: studentID, code: code})
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return enrollment.Clone(), nil
}

// StudentEnrollments returns every enrollment record for a student, oldest
// first.
func (s *RegistryService) StudentEnrollments(ctx context.Context, studentID int64) []*models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byStudent[studentID])
}

// CourseEnrollments returns every enrollment record for a course, oldest
// first.
func (s *RegistryService) CourseEnrollments(ctx context.Context, courseCode string) ([]*models.Enrollment, error) {
	code, err := models.NormalizeCourseCode(courseCode)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byCourse[code]), nil
}

// AllEnrollments returns the whole collection, oldest first.
func (s *RegistryService) AllEnrollments(ctx context.Context) []*models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.enrollments))
	for id := range s.enrollments {
		ids = append(ids, id)
	}
	return s.collectLocked(ids)
}

// List returns enrollment records matching the filter with pagination
// metadata, for the HTTP listing surface.
func (s *RegistryService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	code := ""
	if filter.CourseCode != "" {
		normalized, err := models.NormalizeCourseCode(filter.CourseCode)
		if err != nil {
			return nil, nil, err
		}
		code = normalized
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status "+string(filter.Status))
	}

	s.mu.RLock()
	matched := make([]*models.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		if filter.StudentID != 0 && e.StudentID != filter.StudentID {
			continue
		}
		if code != "" && e.CourseCode != code {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Semester != "" && e.Semester != filter.Semester {
			continue
		}
		if filter.Graded != nil && e.Graded() != *filter.Graded {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	out := make([]models.Enrollment, 0, size)
	if start < total {
		end := start + size
		if end > total {
			end = total
		}
		for _, e := range matched[start:end] {
			out = append(out, *e.Clone())
		}
	}
	s.mu.RUnlock()

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return out, pagination, nil
}

// IsStudentEnrolled reports whether the student holds an ENROLLED record
// for the course.
func (s *RegistryService) IsStudentEnrolled(ctx context.Context, studentID int64, courseCode string) (bool, error) {
	code, err := models.NormalizeCourseCode(courseCode)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeForPairLocked(enrollmentKey{studentID: studentID, code: code}) != nil, nil
}

// StudentCreditHours sums credits across the student's ENROLLED records
// only; completed and withdrawn credits are not part of the current load.
func (s *RegistryService) StudentCreditHours(ctx context.Context, studentID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enrolledCreditsLocked(studentID)
}

// StudentGPA computes the student's GPA over their full enrollment set,
// using the same rule as the transcript calculator.
func (s *RegistryService) StudentGPA(ctx context.Context, studentID int64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.GPA(s.collectLocked(s.byStudent[studentID]))
}

// Snapshot returns the whole collection as values ordered by ID, for
// backups and exports.
func (s *RegistryService) Snapshot(ctx context.Context) []models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		out = append(out, *e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore swaps the enrollment collection wholesale, validating the
// incoming set before committing and seeding the identity source past the
// highest restored ID. Membership sets are rebuilt from the ENROLLED
// records; an unknown student in the backup is logged and skipped rather
// than aborting the restore.
func (s *RegistryService) Restore(ctx context.Context, list []models.Enrollment) error {
	err := s.restore(ctx, list)
	s.record("restore", err)
	return err
}

func (s *RegistryService) restore(ctx context.Context, list []models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[int64]*models.Enrollment, len(list))
	byStudent := make(map[int64][]int64)
	byCourse := make(map[string][]int64)
	byPair := make(map[enrollmentKey][]int64)
	activePairs := make(map[enrollmentKey]bool)
	var maxID int64

	sorted := models.CloneEnrollments(enrollmentPointers(list))
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, e := range sorted {
		if e.ID == 0 {
			e.ID = s.seq.Next()
		}
		if !e.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("enrollment %d has unknown status %s", e.ID, e.Status))
		}
		if e.Grade != "" && !e.Grade.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("enrollment %d has unknown grade %s", e.ID, e.Grade))
		}
		if _, dup := fresh[e.ID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate enrollment id %d", e.ID))
		}
		key := enrollmentKey{studentID: e.StudentID, code: e.CourseCode}
		if e.Status == models.EnrollmentEnrolled {
			if activePairs[key] {
				return appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("student %d holds more than one active enrollment in %s", e.StudentID, e.CourseCode))
			}
			activePairs[key] = true
		}
		fresh[e.ID] = e
		byStudent[e.StudentID] = append(byStudent[e.StudentID], e.ID)
		byCourse[e.CourseCode] = append(byCourse[e.CourseCode], e.ID)
		byPair[key] = append(byPair[key], e.ID)
		if e.ID > maxID {
			maxID = e.ID
		}
	}

	s.enrollments = fresh
	s.byStudent = byStudent
	s.byCourse = byCourse
	s.byPair = byPair
	s.seq.Seed(maxID)

	for key := range activePairs {
		if err := s.students.AddCourseMembership(ctx, key.studentID, key.code); err != nil {
			if err == sql.ErrNoRows {
				s.logger.Warn("restored enrollment references unknown student",
					zap.Int64("student_id", key.studentID), zap.String("course_code", key.code))
				continue
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rebuild course membership")
		}
	}
	return nil
}

func enrollmentPointers(list []models.Enrollment) []*models.Enrollment {
	out := make([]*models.Enrollment, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out
}

func (s *RegistryService) enrolledCreditsLocked(studentID int64) int {
	total := 0
	for _, id := range s.byStudent[studentID] {
		if e := s.enrollments[id]; e.Status == models.EnrollmentEnrolled {
			total += e.Credits
		}
	}
	return total
}

func (s *RegistryService) activeForPairLocked(key enrollmentKey) *models.Enrollment {
	for _, id := range s.byPair[key] {
		if e := s.enrollments[id]; e.Status == models.EnrollmentEnrolled {
			return e
		}
	}
	return nil
}

func (s *RegistryService) latestForPairLocked(key enrollmentKey) *models.Enrollment {
	var latest *models.Enrollment
	for _, id := range s.byPair[key] {
		e := s.enrollments[id]
		if latest == nil || e.ID > latest.ID {
			latest = e
		}
	}
	return latest
}

func (s *RegistryService) findForPairLocked(key enrollmentKey) *models.Enrollment {
	if e := s.activeForPairLocked(key); e != nil {
		return e
	}
	return s.latestForPairLocked(key)
}

func (s *RegistryService) collectLocked(ids []int64) []*models.Enrollment {
	out := make([]*models.Enrollment, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.enrollments[id]; ok {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *RegistryService) insertLocked(e *models.Enrollment) {
	key := enrollmentKey{studentID: e.StudentID, code: e.CourseCode}
	s.enrollments[e.ID] = e
	s.byStudent[e.StudentID] = append(s.byStudent[e.StudentID], e.ID)
	s.byCourse[e.CourseCode] = append(s.byCourse[e.CourseCode], e.ID)
	s.byPair[key] = append(s.byPair[key], e.ID)
}

func (s *RegistryService) removeLocked(e *models.Enrollment) {
	key := enrollmentKey{studentID: e.StudentID, code: e.CourseCode}
	delete(s.enrollments, e.ID)
	s.byStudent[e.StudentID] = removeID(s.byStudent[e.StudentID], e.ID)
	s.byCourse[e.CourseCode] = removeID(s.byCourse[e.CourseCode], e.ID)
	s.byPair[key] = removeID(s.byPair[key], e.ID)
}

func removeID(ids []int64, target int64) []int64 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (s *RegistryService) invalidateTranscript(ctx context.Context, studentID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, transcriptCachePattern(studentID))
}

func (s *RegistryService) record(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRegistryOperation(op, operationOutcome(err))
}

func operationOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
		return "rejected"
	}
	return "error"
}
