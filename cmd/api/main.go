package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/madarij-center/madarij-api/api/swagger"
	"github.com/madarij-center/madarij-api/internal/handler"
	"github.com/madarij-center/madarij-api/internal/middleware"
	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/internal/repository"
	"github.com/madarij-center/madarij-api/internal/scheduler"
	"github.com/madarij-center/madarij-api/internal/service"
	"github.com/madarij-center/madarij-api/pkg/cache"
	"github.com/madarij-center/madarij-api/pkg/config"
	"github.com/madarij-center/madarij-api/pkg/database"
	"github.com/madarij-center/madarij-api/pkg/export"
	"github.com/madarij-center/madarij-api/pkg/logger"
	corsmiddleware "github.com/madarij-center/madarij-api/pkg/middleware/cors"
	reqidmiddleware "github.com/madarij-center/madarij-api/pkg/middleware/requestid"
)

// @title Madarij Center API
// @version 1.0.0
// @description Management backend for the Madarij Quran center
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	halqaRepo := repository.NewHalqaRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)
	fridayConfigRepo := repository.NewFridayConfigRepository(db)
	contactLogRepo := repository.NewContactLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, validate, logr)
	contactSvc := service.NewContactService(contactLogRepo, guardianRepo, cfg.Contacts.Workers, cfg.Contacts.MaxRetries, logr)
	interviewSvc := service.NewInterviewService(interviewRepo, cfg.Interview.Days, cfg.Interview.Slots, cfg.Interview.SlotCapacity, cfg.Interview.HorizonWeeks, logr)
	enrollmentSvc := service.NewEnrollmentService(studentRepo, halqaRepo, interviewSvc, interviewRepo, contactSvc, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, halqaRepo, attendanceRepo, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, sessionRepo, studentRepo, contactSvc, validate, logr)
	fridaySvc := service.NewFridayService(fridayConfigRepo, sessionRepo, halqaRepo, studentRepo, cfg.Friday.TimeBlocks, logr)
	halqaSvc := service.NewHalqaService(halqaRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, guardianRepo, logr)
	dashboardSvc := service.NewDashboardService(cacheRepo, studentRepo, halqaRepo, sessionRepo, interviewRepo, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(sessionRepo, attendanceRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	contactSvc.Start(context.Background())
	defer contactSvc.Stop()

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler, sessionSvc, fridaySvc, logr)
		if err != nil {
			logr.Fatal("failed to build scheduler", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	interviewHandler := handler.NewInterviewHandler(interviewSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, exportSvc)
	fridayHandler := handler.NewFridayHandler(fridaySvc)
	halqaHandler := handler.NewHalqaHandler(halqaSvc, studentSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, contactSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)
	v1.POST("/auth/login", authHandler.Login)

	authed := v1.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)

		enrollment := authed.Group("/enrollment/applications")
		enrollment.Use(middleware.RequireRoles(models.RoleStudentAffairs))
		{
			enrollment.POST("", enrollmentHandler.Create)
			enrollment.GET("", enrollmentHandler.ListPending)
			enrollment.POST("/:id/form-given", enrollmentHandler.MarkFormGiven)
			enrollment.POST("/:id/form-submitted", enrollmentHandler.SubmitForm)
			enrollment.POST("/:id/schedule-interview", enrollmentHandler.ScheduleInterview)
			enrollment.POST("/:id/interview-completed", enrollmentHandler.CompleteInterview)
			enrollment.POST("/:id/result", enrollmentHandler.SetResult)
		}

		authed.GET("/interviews", interviewHandler.ListUpcoming)
		authed.DELETE("/interviews/:id", interviewHandler.Cancel)

		sessions := authed.Group("/sessions")
		{
			sessions.POST("/materialize",
				middleware.RequireRoles(models.RoleSupervisor),
				sessionHandler.Materialize)
			sessions.GET("", sessionHandler.List)
			sessions.GET("/:id", sessionHandler.Get)

			conduct := middleware.RequireRoles(models.RoleTeacher, models.RoleSupervisor)
			sessions.POST("/:id/start", conduct, sessionHandler.Start)
			sessions.POST("/:id/end", conduct, sessionHandler.End)
			sessions.POST("/:id/attendance", conduct, attendanceHandler.Record)
			sessions.POST("/:id/attendance/mark-all-present", conduct, attendanceHandler.MarkAllPresent)
			sessions.GET("/:id/attendance", attendanceHandler.List)
			sessions.GET("/:id/attendance/export", attendanceHandler.Export)
		}

		friday := authed.Group("/friday")
		{
			friday.GET("/config", fridayHandler.GetConfig)
			friday.PUT("/config", middleware.DirectorOnly(), fridayHandler.Toggle)
			friday.POST("/generate",
				middleware.RequireRoles(models.RoleSupervisor),
				fridayHandler.Generate)
			friday.GET("/schedule", fridayHandler.Schedule)
		}

		halqat := authed.Group("/halqat")
		{
			halqat.POST("", middleware.RequireRoles(models.RoleSupervisor), halqaHandler.Create)
			halqat.GET("", halqaHandler.List)
			halqat.GET("/:id", halqaHandler.Get)
			halqat.GET("/:id/students", halqaHandler.Roster)
		}

		students := authed.Group("/students")
		{
			students.GET("", studentHandler.List)
			students.GET("/:id", studentHandler.Get)
			students.GET("/:id/contacts", studentHandler.ContactHistory)
		}

		authed.GET("/dashboard", dashboardHandler.Snapshot)
		authed.POST("/dashboard/refresh", middleware.DirectorOnly(), dashboardHandler.Refresh)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
