package models

import "time"

// GPABand is one row of the GPA distribution report.
type GPABand struct {
	Standing AcademicStanding `json:"standing"`
	MinGPA   float64          `json:"min_gpa"`
	Count    int              `json:"count"`
}

// GPADistribution summarizes how students with at least one graded,
// GPA-counted enrollment spread across the standing bands.
type GPADistribution struct {
	TotalStudents int       `json:"total_students"`
	AverageGPA    float64   `json:"average_gpa"`
	Bands         []GPABand `json:"bands"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// TopStudent ranks one student by GPA.
type TopStudent struct {
	StudentID        int64   `json:"student_id"`
	RegNo            string  `json:"reg_no"`
	FullName         string  `json:"full_name"`
	GPA              float64 `json:"gpa"`
	CompletedCredits int     `json:"completed_credits"`
}

// CourseEnrollmentStat aggregates registration outcomes for one course.
// AverageGradePoints is the mean over GPA-counted grades recorded in the
// course; credits are constant per course so no weighting applies.
type CourseEnrollmentStat struct {
	CourseCode         string  `json:"course_code"`
	Title              string  `json:"title"`
	Department         string  `json:"department"`
	Credits            int     `json:"credits"`
	Enrolled           int     `json:"enrolled"`
	Completed          int     `json:"completed"`
	Withdrawn          int     `json:"withdrawn"`
	AverageGradePoints float64 `json:"average_grade_points"`
}

// DepartmentCount totals catalog entries per department.
type DepartmentCount struct {
	Department    string `json:"department"`
	Courses       int    `json:"courses"`
	ActiveCourses int    `json:"active_courses"`
	Credits       int    `json:"credits"`
}

// GradeCount is one slice of the institution-wide grade distribution.
type GradeCount struct {
	Grade      Grade   `json:"grade"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SystemMetrics is the aggregated runtime snapshot served by the system
// health endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RegistryOperations       uint64    `json:"registry_operations"`
	ExportQueueDepth         int       `json:"export_queue_depth"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
