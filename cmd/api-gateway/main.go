package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/halodent/clinic-api/api/swagger"
	"github.com/halodent/clinic-api/internal/handler"
	"github.com/halodent/clinic-api/internal/middleware"
	"github.com/halodent/clinic-api/internal/models"
	"github.com/halodent/clinic-api/internal/repository"
	"github.com/halodent/clinic-api/internal/service"
	"github.com/halodent/clinic-api/pkg/cache"
	"github.com/halodent/clinic-api/pkg/config"
	"github.com/halodent/clinic-api/pkg/database"
	"github.com/halodent/clinic-api/pkg/export"
	"github.com/halodent/clinic-api/pkg/jobs"
	"github.com/halodent/clinic-api/pkg/lock"
	"github.com/halodent/clinic-api/pkg/logger"
	corsmiddleware "github.com/halodent/clinic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/halodent/clinic-api/pkg/middleware/requestid"
	"github.com/halodent/clinic-api/pkg/storage"
)

// @title Halodent Clinic API
// @version 1.0.0
// @description Multi-branch clinic management and appointment scheduling API
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// repositories
	branchRepo := repository.NewBranchRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	eventRepo := repository.NewEventRepository(db)
	officeRepo := repository.NewOfficeRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportRepo := repository.NewExportRepository(db)

	// services
	locker := lock.NewBookingLocker(redisClient, cfg.Scheduler.BookingLockTTL)
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clinic-api",
	})
	branchSvc := service.NewBranchService(branchRepo, nil, logr)
	staffSvc := service.NewStaffService(staffRepo, nil, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, staffRepo, nil, logr)
	absenceSvc := service.NewAbsenceService(absenceRepo, staffRepo, nil, logr)
	officeSvc := service.NewOfficeService(officeRepo, nil, logr)
	patientSvc := service.NewPatientService(patientRepo, nil, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, patientRepo, nil, logr)
	availabilitySvc := service.NewAvailabilityService(scheduleRepo, absenceRepo, eventRepo, staffRepo, nil, logr)
	slotSvc := service.NewSlotService(availabilitySvc, eventRepo, staffRepo, officeRepo, metricsSvc, nil, logr)
	eventSvc := service.NewEventService(eventRepo, availabilitySvc, staffRepo, officeRepo, patientRepo, locker, metricsSvc, nil, logr)

	// async day-sheet exports
	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewFileStore(cfg.Exports.Dir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Exports.SignSecret, cfg.Exports.ResultTTL)
		exportCfg := service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ClinicName:      cfg.Exports.ClinicName,
			ResultTTL:       cfg.Exports.ResultTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.MaxRetries,
		}
		generator := service.NewDaySheetGenerator(eventSvc, fileStore, signer, exportCfg, nil)
		worker := service.NewExportWorker(exportRepo, generator, cfg.Exports.MaxRetries, logr)
		exportQueue = jobs.NewQueue("day-sheet-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.Workers,
			MaxRetries: cfg.Exports.MaxRetries,
			Logger:     logr,
		})
		exportSvc = service.NewExportService(exportRepo, staffRepo, exportQueue, generator, nil, logr, exportCfg)

		exportQueue.Start(context.Background())
		defer exportQueue.Stop()
		exportSvc.RecoverPending(context.Background())
		exportSvc.StartCleanup(context.Background())
	}

	// handlers
	exporter := export.NewDaySheetExporter()
	authHandler := handler.NewAuthHandler(authSvc)
	branchHandler := handler.NewBranchHandler(branchSvc)
	staffHandler := handler.NewStaffHandler(staffSvc, scheduleSvc, absenceSvc)
	officeHandler := handler.NewOfficeHandler(officeSvc)
	patientHandler := handler.NewPatientHandler(patientSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	eventHandler := handler.NewEventHandler(eventSvc, slotSvc, availabilitySvc, exporter, cfg.Exports.ClinicName)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	var exportHandler *handler.ExportHandler
	if exportSvc != nil {
		exportHandler = handler.NewExportHandler(exportSvc)
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

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	branches := api.Group("/branches", middleware.JWT(authSvc))
	{
		branches.GET("", branchHandler.List)
		branches.POST("", middleware.RequireRoles(models.RoleOwner), branchHandler.Create)
	}

	branch := branches.Group("/:branchId", middleware.Branch(branchSvc))
	{
		branch.GET("", branchHandler.Get)
		branch.PUT("", middleware.RequireRoles(models.RoleOwner), branchHandler.Update)

		staff := branch.Group("/staff")
		{
			staff.GET("", staffHandler.List)
			staff.POST("", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.Create)
			staff.GET("/:id", staffHandler.Get)
			staff.PUT("/:id", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.Update)
			staff.DELETE("/:id", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.Delete)

			staff.GET("/:id/schedule", staffHandler.ListWeekly)
			staff.PUT("/:id/schedule", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.SetWeekly)
			staff.DELETE("/:id/schedule/:weekday", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.DeleteWeekly)

			staff.GET("/:id/overrides", staffHandler.ListOverrides)
			staff.PUT("/:id/overrides", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.SetOverride)
			staff.DELETE("/:id/overrides/:date", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.DeleteOverride)

			staff.GET("/:id/absences", staffHandler.ListAbsences)
			staff.POST("/:id/absences", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.CreateAbsence)
			staff.DELETE("/:id/absences/:absenceId", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), staffHandler.DeleteAbsence)
		}

		offices := branch.Group("/offices")
		{
			offices.GET("", officeHandler.List)
			offices.POST("", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), officeHandler.Create)
			offices.GET("/:id", officeHandler.Get)
			offices.PUT("/:id", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), officeHandler.Update)
			offices.DELETE("/:id", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), officeHandler.Delete)
		}

		patients := branch.Group("/patients")
		{
			patients.GET("", patientHandler.List)
			patients.POST("", patientHandler.Create)
			patients.GET("/:id", patientHandler.Get)
			patients.PUT("/:id", patientHandler.Update)
			patients.DELETE("/:id", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin), patientHandler.Delete)
			patients.GET("/:id/deposits", paymentHandler.ListDeposits)
		}

		events := branch.Group("/events")
		{
			events.GET("", eventHandler.List)
			events.POST("", eventHandler.Create)
			events.POST("/time-slots", eventHandler.TimeSlots)
			events.POST("/availability", eventHandler.CheckAvailability)
			events.GET("/available-assistants", eventHandler.AvailableAssistants)
			events.GET("/day-sheet", eventHandler.DaySheet)
			events.GET("/:id", eventHandler.Get)
			events.PUT("/:id", eventHandler.Update)
			events.DELETE("/:id", eventHandler.Delete)
		}

		payments := branch.Group("")
		{
			payments.GET("/obligations", paymentHandler.ListObligations)
			payments.POST("/obligations", paymentHandler.CreateObligation)
			payments.POST("/obligations/:id/pay", paymentHandler.PayObligation)
			payments.POST("/deposits", paymentHandler.CreateDeposit)
		}

		if exportHandler != nil {
			exports := branch.Group("/exports")
			{
				exports.POST("", exportHandler.Create)
				exports.GET("/:id", exportHandler.Status)
			}
		}
	}

	if exportHandler != nil {
		// token in the URL is the credential; no JWT required
		api.GET("/export/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
