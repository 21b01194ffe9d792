package main

import (
	"fmt"
	"os"

	"github.com/taskflow/backend/internal/cli"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	if err := models.InitDB(&cfg.Database); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	services.InitSystemLogger(models.GetDB())

	return cli.NewApp(models.GetDB(), cfg, nil).Execute()
}
