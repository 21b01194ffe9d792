package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/middleware"
	"github.com/taskflow/backend/pkg/logger"
)

// limiters are stopped on shutdown.
type limiters struct {
	auth   *middleware.RateLimiter
	report *middleware.RateLimiter
}

func (l limiters) stop() {
	l.auth.Stop()
	l.report.Stop()
}

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) limiters {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...), middleware.Metrics())

	// Credential endpoints are keyed by IP, report generation by user
	lim := limiters{
		auth:   middleware.NewRateLimiter(1, 5),
		report: middleware.NewRateLimiter(0.5, 3),
	}

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", lim.auth.Middleware(), svc.authHandler.Register)
			auth.POST("/login", lim.auth.Middleware(), svc.authHandler.Login)
			auth.POST("/refresh", lim.auth.Middleware(), svc.authHandler.Refresh)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.PUT("/auth/me", svc.authHandler.UpdateProfile)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)
			protected.GET("/projects/:id/members", svc.projectHandler.ListMembers)
			protected.POST("/projects/:id/members", svc.projectHandler.AddMember)
			protected.DELETE("/projects/:id/members/:user_id", svc.projectHandler.RemoveMember)

			// Tasks
			protected.GET("/projects/:id/tasks", svc.taskHandler.List)
			protected.POST("/projects/:id/tasks", svc.taskHandler.Create)
			protected.GET("/projects/:id/board", svc.taskHandler.Board)
			protected.GET("/tasks/:id", svc.taskHandler.GetByID)
			protected.PUT("/tasks/:id", svc.taskHandler.Update)
			protected.PUT("/tasks/:id/move", svc.taskHandler.Move)
			protected.DELETE("/tasks/:id", svc.taskHandler.Delete)

			// Comments
			protected.GET("/tasks/:id/comments", svc.commentHandler.List)
			protected.POST("/tasks/:id/comments", svc.commentHandler.Create)
			protected.PUT("/comments/:id", svc.commentHandler.Update)
			protected.DELETE("/comments/:id", svc.commentHandler.Delete)

			// Labels
			protected.GET("/projects/:id/labels", svc.labelHandler.List)
			protected.POST("/projects/:id/labels", svc.labelHandler.Create)
			protected.DELETE("/labels/:id", svc.labelHandler.Delete)

			// Reports
			reports := protected.Group("/reports")
			{
				generate := reports.Group("", lim.report.Middleware())
				generate.POST("/daily", svc.reportHandler.GenerateDaily)
				generate.POST("/weekly", svc.reportHandler.GenerateWeekly)
				generate.POST("/daily/email", svc.reportHandler.SendDailyEmail)
				generate.POST("/weekly/email", svc.reportHandler.SendWeeklyEmail)

				reports.GET("/history", svc.reportHandler.History)
				reports.GET("/team", middleware.ManagerRequired(), svc.reportHandler.Team)
			}
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.GET("/users", svc.userHandler.List)
			admin.PUT("/users/:id", svc.userHandler.Update)
			admin.DELETE("/users/:id", svc.userHandler.Delete)

			admin.POST("/admin/reports/run/daily", svc.reportHandler.RunDaily)
			admin.POST("/admin/reports/run/weekly", svc.reportHandler.RunWeekly)

			admin.GET("/system-config/report", svc.systemConfigHandler.GetReportSettings)
			admin.PUT("/system-config/report", svc.systemConfigHandler.UpdateReportSettings)

			admin.GET("/system-logs", svc.systemLogHandler.List)
			admin.GET("/system-logs/modules", svc.systemLogHandler.GetModules)
		}
	}
	return lim
}
