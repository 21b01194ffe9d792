package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/pkg/logger"
)

// Worker consumes report email jobs from Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor JobProcessor
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, processor JobProcessor) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			// Bounded like the scheduler batch so mail and AI providers see modest load.
			Concurrency: 4,
			Queues:      map[string]int{"default": 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Err(err).Str("type", task.Type()).Msg("[Worker] task failed")
			}),
		},
	)

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
	w.mux.HandleFunc(TaskTypeReportEmail, w.handleReportEmail)
	return w
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.running = true
	logger.Info().Msg("[Worker] started")
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	logger.Info().Msg("[Worker] shutting down")
	w.server.Shutdown()
	w.running = false
	logger.Info().Msg("[Worker] shutdown complete")
}

func (w *Worker) handleReportEmail(ctx context.Context, t *asynq.Task) error {
	var job ReportEmailJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		// Malformed payloads never succeed; skip retries.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if w.processor == nil {
		logger.Warn().Msg("[Worker] no processor set")
		return nil
	}

	logger.Info().Uint("user_id", job.UserID).Str("type", job.Type).Msg("[Worker] processing report email")
	return w.processor(ctx, &job)
}
