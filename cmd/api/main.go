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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edutrack/attendance-api/api/swagger"
	"github.com/edutrack/attendance-api/internal/handler"
	"github.com/edutrack/attendance-api/internal/middleware"
	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/internal/repository"
	"github.com/edutrack/attendance-api/internal/service"
	"github.com/edutrack/attendance-api/pkg/cache"
	"github.com/edutrack/attendance-api/pkg/config"
	"github.com/edutrack/attendance-api/pkg/database"
	"github.com/edutrack/attendance-api/pkg/logger"
	"github.com/edutrack/attendance-api/pkg/mailer"
	corsmiddleware "github.com/edutrack/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edutrack/attendance-api/pkg/middleware/requestid"
	"github.com/edutrack/attendance-api/pkg/storage"
)

// @title EduTrack Attendance API
// @version 1.0.0
// @description Role-based academic attendance tracking
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("failed to apply migrations", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and rate limiting disabled", "error", err)
		redisClient = nil
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	reportRepo := repository.NewReportRepository(db)

	statsService := service.NewStatsService(statsRepo, sessionRepo, enrollmentRepo, cacheRepo, cfg.Stats.CacheTTL, logr)
	metricsService := service.NewMetricsService()

	var mail mailer.Mailer
	if cfg.Notifications.Enabled {
		mail = mailer.NewSMTP(cfg.Notifications)
	} else {
		mail = mailer.NewLogMailer(logr)
	}
	notificationService := service.NewNotificationService(mail, statsService, metricsService, cfg.Notifications, logr)

	authService := service.NewAuthService(userRepo, studentRepo, notificationService, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenExpiry:   cfg.JWT.ResetTokenExpiry,
		Issuer:             "attendance-api",
	})
	userService := service.NewUserService(userRepo, studentRepo, facultyRepo, nil, logr)
	courseService := service.NewCourseService(courseRepo, facultyRepo, nil, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, nil, logr)
	sessionService := service.NewSessionService(sessionRepo, courseRepo, nil, logr, service.SessionConfig{
		CodeLength:      cfg.Sessions.CodeLength,
		CodeMaxAttempts: cfg.Sessions.CodeMaxAttempts,
	})

	attendanceService := service.NewAttendanceService(attendanceRepo, sessionRepo, enrollmentRepo, studentRepo, notificationService, statsService, nil, logr)
	importService := service.NewImportService(authService, logr)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewDownloadTokenSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	reportService := service.NewReportService(reportRepo, courseRepo, statsService, reportStore, signer, metricsService, cfg.Reports, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(ctx)
	defer notificationService.Stop()
	if cfg.Reports.Enabled {
		reportService.Start(ctx)
		defer reportService.Stop()
	}

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	courseHandler := handler.NewCourseHandler(courseService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	sessionHandler := handler.NewSessionHandler(sessionService, userService, metricsService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, userService, metricsService)
	statsHandler := handler.NewStatsHandler(statsService, userService, enrollmentService)
	reportHandler := handler.NewReportHandler(reportService, userService)
	importHandler := handler.NewImportHandler(importService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/password-reset", authHandler.ForgotPassword)
		auth.POST("/password-reset/confirm", authHandler.ResetPassword)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
	}

	protected := v1.Group("")
	protected.Use(middleware.JWT(authService))

	protected.GET("/users/me", userHandler.Me)

	admin := protected.Group("")
	admin.Use(middleware.RequireCapability(models.CapManageDirectory))
	{
		admin.GET("/users", userHandler.ListUsers)
		admin.GET("/users/:id", userHandler.GetUser)
		admin.PUT("/users/:id", userHandler.UpdateUser)
		admin.PUT("/users/:id/active", userHandler.SetUserActive)
		admin.POST("/faculty", userHandler.CreateFaculty)
		admin.POST("/students/import", importHandler.ImportStudents)
		admin.PUT("/students/:id", userHandler.UpdateStudent)
	}

	staff := protected.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty))
	{
		staff.GET("/students", userHandler.ListStudents)
		staff.GET("/students/:id", userHandler.GetStudent)
		staff.GET("/students/:id/courses", enrollmentHandler.StudentCourses)
		staff.GET("/faculty", userHandler.ListFaculty)
		staff.GET("/faculty/:id", userHandler.GetFaculty)
		staff.GET("/enrollments", enrollmentHandler.List)
		staff.GET("/courses/:id/enrollments", enrollmentHandler.CourseRoster)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		manage := courses.Group("")
		manage.Use(middleware.RequireCapability(models.CapManageCourses))
		{
			manage.POST("", courseHandler.Create)
			manage.PUT("/:id", courseHandler.Update)
			manage.PUT("/:id/active", courseHandler.SetActive)
		}
	}

	enrollments := protected.Group("/enrollments")
	enrollments.Use(middleware.RequireCapability(models.CapManageDirectory))
	{
		enrollments.POST("", enrollmentHandler.Create)
		enrollments.DELETE("/:studentId/:courseId", enrollmentHandler.Delete)
	}

	sessions := protected.Group("/sessions")
	{
		sessions.GET("", sessionHandler.List)
		sessions.GET("/:id", sessionHandler.Get)
		run := sessions.Group("")
		run.Use(middleware.RequireCapability(models.CapRunSessions))
		{
			run.POST("", sessionHandler.Create)
			run.PUT("/:id/close", sessionHandler.Close)
			run.PUT("/:id/reopen", sessionHandler.Reopen)
			run.PUT("/:id/code", sessionHandler.RotateCode)
			run.PUT("/:id/attendance", attendanceHandler.BulkMark)
			run.GET("/:id/attendance", attendanceHandler.SessionRoster)
		}
	}

	attendance := protected.Group("/attendance")
	{
		attendance.POST("/check-in",
			middleware.RequireCapability(models.CapCheckIn),
			middleware.RateLimit(cacheRepo, cfg.RateLimit.CheckinPerMinute, logr),
			attendanceHandler.CheckIn)
	}

	protected.GET("/students/me/attendance", statsHandler.MyAttendance)
	protected.GET("/students/me/courses/:id/attendance", attendanceHandler.MyCourseRecords)

	stats := protected.Group("/stats")
	{
		stats.GET("/students/:id", statsHandler.StudentPercentage)
		view := stats.Group("")
		view.Use(middleware.RequireCapability(models.CapViewAllStats))
		{
			view.GET("/sessions/:id", statsHandler.SessionCounts)
			view.GET("/courses/:id", statsHandler.CourseStats)
		}
		adminStats := stats.Group("")
		adminStats.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			adminStats.GET("/departments", statsHandler.DepartmentRates)
			adminStats.GET("/overview", statsHandler.Overview)
		}
	}

	reports := protected.Group("/reports")
	reports.Use(middleware.RequireCapability(models.CapGenerateReports))
	{
		reports.POST("", reportHandler.Generate)
		reports.GET("/:id", reportHandler.Status)
	}
	// Download is authorized by the signed token itself.
	v1.GET("/reports/:id/download", reportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
