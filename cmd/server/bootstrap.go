package main

import (
	"context"
	"time"

	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/handlers"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/internal/services/report"
	"github.com/taskflow/backend/internal/utils"
	"github.com/taskflow/backend/pkg/logger"
)

// appServices holds the initialized services, handlers and background jobs.
type appServices struct {
	taskQueue   services.TaskQueue
	worker      *services.Worker
	scheduler   *report.Scheduler
	schedule    *report.Schedule
	stopCleanup context.CancelFunc

	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	projectHandler      *handlers.ProjectHandler
	taskHandler         *handlers.TaskHandler
	commentHandler      *handlers.CommentHandler
	labelHandler        *handlers.LabelHandler
	reportHandler       *handlers.ReportHandler
	systemConfigHandler *handlers.SystemConfigHandler
	systemLogHandler    *handlers.SystemLogHandler
	healthHandler       *handlers.HealthHandler
}

// reportLocation resolves the configured report timezone, falling back to
// process local time.
func reportLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", name).Msg("Unknown report timezone, using local time")
		return time.Local
	}
	return loc
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()
	services.InitSystemLogger(db)

	configService := services.NewSystemConfigService(db)
	ldapCfg := configService.LDAPConfig(cfg.LDAP)
	authService := services.NewAuthService(db, &cfg.JWT, &ldapCfg)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	userService := services.NewUserService(db)
	projectService := services.NewProjectService(db)
	taskService := services.NewTaskService(db, projectService)
	commentService := services.NewCommentService(db, taskService)
	labelService := services.NewLabelService(db, projectService)
	holidays := services.NewHolidayService()

	loc := reportLocation(cfg.Report.Timezone)
	source := report.NewDBSource(db, projectService)
	store := report.NewGormStore(db)
	reportService := report.NewService(report.Deps{
		Users:    source,
		Tasks:    source,
		Store:    store,
		AI:       services.NewAIService(cfg.LLM),
		Mailer:   services.NewEmailService(cfg.Email),
		Location: loc,
	})

	// Task queue uses Redis when enabled, otherwise sends inline
	taskQueue := services.NewTaskQueue(&cfg.Redis, reportService.ProcessJob)
	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, reportService.ProcessJob)
		if worker != nil {
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start report worker")
				worker = nil
			}
		}
	}

	settings := func() services.ReportSettings { return configService.ReportSettings(cfg.Report) }
	scheduler := report.NewScheduler(report.SchedulerOptions{
		Sender:      reportService,
		Recipients:  source,
		Settings:    settings,
		Locker:      services.NewSchedulerLockService(db),
		Calendar:    holidays,
		Concurrency: cfg.Report.BatchConcurrency,
		Location:    loc,
	})
	var schedule *report.Schedule
	if cfg.Report.Enabled {
		var err error
		schedule, err = scheduler.Start(nil)
		if err != nil {
			logger.Fatalf("Failed to start report scheduler: %v", err)
		}
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	services.StartCleanupScheduler(cleanupCtx,
		services.SystemLogCleanupTask(db),
		report.RetentionTask(store, func() int { return settings().RetentionDays }),
	)

	return &appServices{
		taskQueue:   taskQueue,
		worker:      worker,
		scheduler:   scheduler,
		schedule:    schedule,
		stopCleanup: stopCleanup,

		authHandler:         handlers.NewAuthHandler(authService, userService),
		userHandler:         handlers.NewUserHandler(userService),
		projectHandler:      handlers.NewProjectHandler(projectService),
		taskHandler:         handlers.NewTaskHandler(taskService),
		commentHandler:      handlers.NewCommentHandler(commentService),
		labelHandler:        handlers.NewLabelHandler(labelService),
		reportHandler:       handlers.NewReportHandler(reportService, scheduler, taskQueue),
		systemConfigHandler: handlers.NewSystemConfigHandler(configService, holidays, cfg.Report),
		systemLogHandler:    handlers.NewSystemLogHandler(services.NewSystemLogService(db)),
		healthHandler:       handlers.NewHealthHandler(db, taskQueue),
	}
}

// shutdown gracefully stops all background work.
func (s *appServices) shutdown() {
	s.schedule = s.scheduler.Stop(s.schedule)
	s.stopCleanup()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
