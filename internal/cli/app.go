// Package cli implements taskflowctl, the operator tool for report
// maintenance outside the HTTP server.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/internal/services/report"
	"gorm.io/gorm"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	db   *gorm.DB
	cfg  *config.Config
	root *cobra.Command

	reports   *report.Service
	scheduler *report.Scheduler
	store     report.Store
	settings  func() services.ReportSettings
}

// NewApp wires the report services over db. mailer may be nil to use the
// configured email provider.
func NewApp(db *gorm.DB, cfg *config.Config, mailer report.Mailer) *App {
	a := &App{db: db, cfg: cfg}

	if mailer == nil {
		mailer = services.NewEmailService(cfg.Email)
	}
	loc := location(cfg.Report.Timezone)
	configSvc := services.NewSystemConfigService(db)
	source := report.NewDBSource(db, services.NewProjectService(db))
	a.store = report.NewGormStore(db)
	a.settings = func() services.ReportSettings { return configSvc.ReportSettings(cfg.Report) }
	a.reports = report.NewService(report.Deps{
		Users:    source,
		Tasks:    source,
		Store:    a.store,
		AI:       services.NewAIService(cfg.LLM),
		Mailer:   mailer,
		Location: loc,
	})
	a.scheduler = report.NewScheduler(report.SchedulerOptions{
		Sender:      a.reports,
		Recipients:  source,
		Settings:    a.settings,
		Concurrency: cfg.Report.BatchConcurrency,
		Location:    loc,
	})

	a.root = &cobra.Command{
		Use:           "taskflowctl",
		Short:         "TaskFlow report maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.reportCmd())
	a.root.AddCommand(a.sendCmd())
	a.root.AddCommand(a.pruneCmd())
	return a
}

func location(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.Local
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskflowctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// SetArgs and SetOutput exist for tests.
func (a *App) SetArgs(args []string) { a.root.SetArgs(args) }

func (a *App) SetOutput(w io.Writer) {
	a.root.SetOut(w)
	a.root.SetErr(w)
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}
