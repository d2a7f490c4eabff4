package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/attendly/attendly-api/api/swagger"
	"github.com/attendly/attendly-api/internal/handler"
	"github.com/attendly/attendly-api/internal/middleware"
	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/repository"
	"github.com/attendly/attendly-api/internal/service"
	"github.com/attendly/attendly-api/pkg/cache"
	"github.com/attendly/attendly-api/pkg/config"
	"github.com/attendly/attendly-api/pkg/database"
	"github.com/attendly/attendly-api/pkg/logger"
	corsmiddleware "github.com/attendly/attendly-api/pkg/middleware/cors"
	reqidmiddleware "github.com/attendly/attendly-api/pkg/middleware/requestid"
)

// @title Attendly API
// @version 1.0.0
// @description Multi-tenant class attendance service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(tenantRepo, userRepo, auditRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	tenantService := service.NewTenantService(tenantRepo, userRepo, auditRepo, validate, logr, cfg.Tenancy.DefaultTimezone, cfg.Tenancy.CodeMaxAttempts)
	catalogService := service.NewCatalogService(catalogRepo, offeringRepo, userRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, userRepo, offeringRepo, attendanceRepo, logr)
	userService := service.NewUserService(userRepo, catalogRepo, enrollmentService, validate, logr)
	offeringService := service.NewOfferingService(offeringRepo, catalogRepo, userRepo, enrollmentService, enrollmentRepo, attendanceRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, offeringRepo, validate, logr)
	timeLockService := service.NewTimeLockService(scheduleRepo, tenantRepo, attendanceRepo, cfg.Tenancy.DefaultTimezone, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, enrollmentRepo, timeLockService, cacheRepo, cfg.Reports.CacheTTL, validate, logr)

	authHandler := handler.NewAuthHandler(authService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	offeringHandler := handler.NewOfferingHandler(offeringService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, metricsService)
	teacherHandler := handler.NewTeacherHandler(timeLockService)
	userHandler := handler.NewUserHandler(userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// public endpoints: everything else requires a token and a bound tenant
	api.POST("/auth/login", authHandler.Login)
	api.POST("/tenants/signup", tenantHandler.Signup)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService), middleware.Tenant())

	authed.GET("/auth/me", authHandler.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrTeacher := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	authed.GET("/tenants/me", adminOrTeacher, tenantHandler.Current)
	authed.PUT("/tenants/me/settings", admin,
		middleware.Audit(auditRepo, models.AuditActionTenantSettings, "tenant"),
		tenantHandler.UpdateSettings)

	authed.POST("/cohorts", admin, middleware.Audit(auditRepo, models.AuditActionCatalogMutation, "cohort"), catalogHandler.CreateCohort)
	authed.GET("/cohorts", adminOrTeacher, catalogHandler.ListCohorts)
	authed.DELETE("/cohorts/:id", admin, middleware.Audit(auditRepo, models.AuditActionCatalogMutation, "cohort"), catalogHandler.DeleteCohort)

	authed.POST("/sections", admin, middleware.Audit(auditRepo, models.AuditActionCatalogMutation, "section"), catalogHandler.CreateSection)
	authed.GET("/sections", adminOrTeacher, catalogHandler.ListSections)
	authed.DELETE("/sections/:id", admin, middleware.Audit(auditRepo, models.AuditActionCatalogMutation, "section"), catalogHandler.DeleteSection)

	authed.POST("/subjects", admin, middleware.Audit(auditRepo, models.AuditActionCatalogMutation, "subject"), catalogHandler.CreateSubject)
	authed.GET("/subjects", adminOrTeacher, catalogHandler.ListSubjects)
	authed.DELETE("/subjects/:id", admin, middleware.Audit(auditRepo, models.AuditActionCatalogMutation, "subject"), catalogHandler.DeleteSubject)

	authed.POST("/users", admin, userHandler.Create)
	authed.GET("/users", adminOrTeacher, userHandler.List)
	authed.GET("/users/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.SelfAccess), userHandler.Get)

	authed.POST("/offerings", admin, middleware.Audit(auditRepo, models.AuditActionOfferingMutation, "offering"), offeringHandler.Create)
	authed.GET("/offerings", adminOrTeacher, offeringHandler.List)
	authed.GET("/offerings/:id", adminOrTeacher, offeringHandler.Get)
	authed.DELETE("/offerings/:id", admin, middleware.Audit(auditRepo, models.AuditActionOfferingMutation, "offering"), offeringHandler.Delete)
	authed.GET("/offerings/:id/schedules", adminOrTeacher, scheduleHandler.ListByOffering)
	authed.GET("/offerings/:id/roster", adminOrTeacher, enrollmentHandler.Roster)

	authed.POST("/schedules", admin, middleware.Audit(auditRepo, models.AuditActionScheduleMutation, "schedule"), scheduleHandler.Create)
	authed.GET("/schedules/:id", adminOrTeacher, scheduleHandler.Get)
	authed.PUT("/schedules/:id", admin, middleware.Audit(auditRepo, models.AuditActionScheduleMutation, "schedule"), scheduleHandler.Update)
	authed.DELETE("/schedules/:id", admin, middleware.Audit(auditRepo, models.AuditActionScheduleMutation, "schedule"), scheduleHandler.Archive)

	authed.POST("/enrollments", admin, enrollmentHandler.Enroll)
	authed.DELETE("/enrollments/:id", admin, enrollmentHandler.Unenroll)
	authed.GET("/students/:id/enrollments", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.SelfAccess), enrollmentHandler.ListByStudent)
	authed.GET("/students/:id/attendance", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.SelfAccess), attendanceHandler.StudentSummary)

	authed.POST("/attendance", middleware.RequireRoles(models.RoleTeacher),
		middleware.Audit(auditRepo, models.AuditActionAttendanceSubmit, "attendance"),
		attendanceHandler.Submit)
	authed.GET("/attendance/sessions/:id", adminOrTeacher, attendanceHandler.SessionReport)
	authed.GET("/teachers/me/session", middleware.RequireRoles(models.RoleTeacher), teacherHandler.SessionStatus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
