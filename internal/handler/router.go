package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers aggregates the HTTP surface for route registration.
type Handlers struct {
	Students    *StudentHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Transcripts *TranscriptHandler
	Reports     *ReportHandler
	Exports     *ExportHandler
	Imports     *ImportHandler
	Backups     *BackupHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts every endpoint on the engine. Observability endpoints
// live at the root; the API surface sits under prefix (default /api/v1).
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	if prefix == "" {
		prefix = "/api/v1"
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	students := api.Group("/students")
	{
		students.GET("", h.Students.List)
		students.POST("", h.Students.Create)
		students.GET("/:id", h.Students.Get)
		students.PUT("/:id", h.Students.Update)
		students.PATCH("/:id/status", h.Students.UpdateStatus)
		students.DELETE("/:id", h.Students.Delete)
		students.GET("/:id/transcript", h.Transcripts.Get)
		students.GET("/:id/enrollments", h.Enrollments.StudentEnrollments)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", h.Courses.List)
		courses.POST("", h.Courses.Create)
		courses.GET("/:code", h.Courses.Get)
		courses.PUT("/:code", h.Courses.Update)
		courses.DELETE("/:code", h.Courses.Delete)
		courses.GET("/:code/enrollments", h.Enrollments.CourseEnrollments)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", h.Enrollments.List)
		enrollments.POST("", h.Enrollments.Create)
		enrollments.DELETE("", h.Enrollments.Delete)
		enrollments.POST("/grade", h.Enrollments.RecordGrade)
		enrollments.PUT("/grade", h.Enrollments.UpdateGrade)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/gpa-distribution", h.Reports.GPADistribution)
		reports.GET("/top-students", h.Reports.TopStudents)
		reports.GET("/course-stats", h.Reports.CourseStats)
		reports.GET("/department-stats", h.Reports.DepartmentStats)
		reports.GET("/grade-distribution", h.Reports.GradeDistribution)
	}

	exports := api.Group("/exports")
	{
		exports.POST("", h.Exports.Create)
		exports.GET("/download/:token", h.Exports.Download)
		exports.GET("/:id", h.Exports.Status)
	}

	imports := api.Group("/imports")
	{
		imports.POST("/students", h.Imports.Students)
		imports.POST("/courses", h.Imports.Courses)
	}

	backups := api.Group("/backups")
	{
		backups.POST("", h.Backups.Create)
		backups.GET("", h.Backups.List)
		backups.GET("/:name/size", h.Backups.Size)
		backups.POST("/:name/restore", h.Backups.Restore)
		backups.DELETE("/:name", h.Backups.Delete)
	}

	api.GET("/system/metrics", h.Metrics.System)
}
