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
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-progression-api/api/swagger"
	"github.com/noah-isme/lms-progression-api/internal/handler"
	"github.com/noah-isme/lms-progression-api/internal/middleware"
	"github.com/noah-isme/lms-progression-api/internal/models"
	"github.com/noah-isme/lms-progression-api/internal/repository"
	"github.com/noah-isme/lms-progression-api/internal/service"
	"github.com/noah-isme/lms-progression-api/pkg/cache"
	"github.com/noah-isme/lms-progression-api/pkg/config"
	"github.com/noah-isme/lms-progression-api/pkg/database"
	"github.com/noah-isme/lms-progression-api/pkg/jobs"
	"github.com/noah-isme/lms-progression-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-progression-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-progression-api/pkg/middleware/requestid"
)

// @title LMS Progression API
// @version 1.0.0
// @description Enrollment eligibility, module gating, exam scoring and course progress.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, "lms:")
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	examRepo := repository.NewExamRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logr)
	auditQueue := jobs.NewQueue("audit", auditSvc.Deliver, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.Retries,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	auditSvc.UseQueue(auditQueue)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	auditQueue.Start(ctx)

	eligibility := service.NewEligibilityEvaluator(enrollmentRepo, permissionRepo)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, permissionRepo, courseRepo, eligibility, auditSvc, metricsSvc, service.EnrollmentConfig{
		DefaultPassingScore: cfg.Enrollment.DefaultPassingScore,
		BulkConcurrency:     cfg.Enrollment.BulkConcurrency,
		BulkMaxStudents:     cfg.Enrollment.BulkMaxStudents,
	}, validate, logr)
	gateSvc := service.NewModuleGateService(courseRepo, examRepo, progressRepo, cfg.Exams.DefaultPassingScore, logr)
	progressSvc := service.NewProgressService(progressRepo, courseRepo, examRepo, cacheSvc, auditSvc, cfg.Stats.CacheTTL, logr)
	examSvc := service.NewExamService(examRepo, gateSvc, progressSvc, auditSvc, metricsSvc, cfg.Exams.DefaultPassingScore, validate, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	permissionHandler := handler.NewPermissionHandler(enrollmentSvc)
	examHandler := handler.NewExamHandler(examSvc)
	progressHandler := handler.NewProgressHandler(progressSvc, gateSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staffOnly := middleware.RequireRoles(middleware.StaffRoles...)
	studentOnly := middleware.RequireRoles(models.RoleStudent)
	staffOrSelf := middleware.RBAC(
		string(models.RoleSuperAdmin),
		string(models.RoleAdmin),
		string(models.RoleTeacher),
		middleware.RoleSelf,
	)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/courses/:id/eligibility", enrollmentHandler.Eligibility)
		api.GET("/courses/:id/stats", progressHandler.CourseStats)
		api.GET("/courses/:id/gates", progressHandler.CourseGates)
		api.GET("/modules/:id/gate", progressHandler.ModuleGate)

		api.POST("/enrollments", staffOnly, enrollmentHandler.Enroll)
		api.POST("/enrollments/bulk", staffOnly, enrollmentHandler.BulkEnroll)
		api.POST("/enrollments/:id/complete", staffOnly, enrollmentHandler.Complete)
		api.DELETE("/enrollments/:id", staffOnly, enrollmentHandler.Deactivate)
		api.GET("/students/:id/enrollments", staffOrSelf, enrollmentHandler.ListByStudent)

		api.POST("/permissions", staffOnly, permissionHandler.Grant)
		api.POST("/permissions/:id/revoke", staffOnly, permissionHandler.Revoke)
		api.GET("/students/:id/permissions", staffOrSelf, permissionHandler.ListByStudent)

		api.POST("/exams/:id/submissions", studentOnly, examHandler.Submit)
		api.GET("/exams/:id/submissions", examHandler.History)

		api.POST("/contents/:id/complete", studentOnly, progressHandler.MarkComplete)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	auditQueue.Stop(shutdownCtx)
}
