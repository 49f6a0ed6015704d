package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-hq/registrar-api/api/swagger"
	"github.com/campus-hq/registrar-api/internal/handler"
	"github.com/campus-hq/registrar-api/internal/middleware"
	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/repository"
	"github.com/campus-hq/registrar-api/internal/service"
	"github.com/campus-hq/registrar-api/pkg/cache"
	"github.com/campus-hq/registrar-api/pkg/config"
	"github.com/campus-hq/registrar-api/pkg/database"
	"github.com/campus-hq/registrar-api/pkg/jobs"
	"github.com/campus-hq/registrar-api/pkg/logger"
	corsmiddleware "github.com/campus-hq/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-hq/registrar-api/pkg/middleware/requestid"
	"github.com/campus-hq/registrar-api/pkg/storage"
)

// @title Campus Registrar API
// @version 1.0.0
// @description Enrollment, grading and transcript engine for campus course registration.
// @BasePath /api/v1
// @schemes http

// studentStore and courseStore cover both repository flavors so the driver
// switch can hand either one to the service layer.
type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByRegNo(ctx context.Context, regNo string) (*models.Student, error)
	ExistsByRegNo(ctx context.Context, regNo string, excludeID int64) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetStatus(ctx context.Context, id int64, status models.StudentStatus) error
	AddCourseMembership(ctx context.Context, studentID int64, code string) error
	RemoveCourseMembership(ctx context.Context, studentID int64, code string) error
	Snapshot(ctx context.Context) ([]models.Student, error)
	ReplaceAll(ctx context.Context, students []models.Student) error
	CountByStatus(ctx context.Context) (map[models.StudentStatus]int, error)
}

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, code string) error
	Snapshot(ctx context.Context) ([]models.Course, error)
	ReplaceAll(ctx context.Context, courses []models.Course) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		students studentStore
		courses  courseStore
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(db, cfg.Database.MigrationsDir); err != nil {
				logr.Sugar().Fatalw("failed to run migrations", "error", err)
			}
		}
		students = repository.NewStudentRepository(db)
		courses = repository.NewCourseRepository(db)
	default:
		students = repository.NewMemoryStudentRepository(nil)
		courses = repository.NewMemoryCourseRepository()
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, transcript cache disabled", "error", err)
		} else {
			defer client.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(repository.NewCacheRepository(client, logr), metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	validate := validator.New()
	registry := service.NewRegistryService(students, courses, nil, cfg.Registrar.MaxCredits, cacheSvc, metricsSvc, logr)
	studentSvc := service.NewStudentService(students, validate, logr)
	courseSvc := service.NewCourseService(courses, validate, logr)
	transcriptSvc := service.NewTranscriptService(students, registry, cacheSvc, cfg.Cache.TTL, logr)
	reportSvc := service.NewReportService(students, courses, registry, logr)

	exportsHandler := handler.NewExportHandler(nil)
	importsHandler := handler.NewImportHandler(nil, 0)
	backupsHandler := handler.NewBackupHandler(nil)

	var queue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exporter := service.NewExportService(students, courses, registry, reportSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)
		exportRepo := repository.NewExportJobRepository()

		// The queue handler closes over the worker so the worker can report
		// queue depth; the worker is assigned before Start.
		var worker *service.ExportWorker
		queue = jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
			return worker.Handle(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		worker = service.NewExportWorker(exportRepo, exporter, queue, metricsSvc, cfg.Exports.WorkerRetries, logr)

		exportJobs := service.NewExportJobService(exportRepo, queue, exporter, metricsSvc, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		queue.Start(ctx)
		exportJobs.RecoverPendingJobs(ctx)
		exportJobs.StartCleanup(ctx)
		exportsHandler = handler.NewExportHandler(exportJobs)
	}

	if cfg.Imports.Enabled {
		importsHandler = handler.NewImportHandler(service.NewImportService(studentSvc, courseSvc, logr), cfg.Imports.MaxFileSizeBytes)
	}

	if cfg.Backups.Enabled {
		backupSvc, err := service.NewBackupService(students, courses, registry, cfg.Backups.Dir, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare backup directory", "error", err)
		}
		backupsHandler = handler.NewBackupHandler(backupSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Students:    handler.NewStudentHandler(studentSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Enrollments: handler.NewEnrollmentHandler(registry),
		Transcripts: handler.NewTranscriptHandler(transcriptSvc),
		Reports:     handler.NewReportHandler(reportSvc),
		Exports:     exportsHandler,
		Imports:     importsHandler,
		Backups:     backupsHandler,
		Metrics:     handler.NewMetricsHandler(metricsSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
	if queue != nil {
		queue.Stop()
	}
}
