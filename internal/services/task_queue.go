package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/logger"
)

const (
	TaskTypeReportEmail = "report:email"
)

// ReportEmailJob asks for one user's daily or weekly report to be generated and mailed.
type ReportEmailJob struct {
	UserID uint   `json:"user_id"`
	Type   string `json:"type"` // DAILY, WEEKLY
}

func (j *ReportEmailJob) Validate() error {
	if j.UserID == 0 {
		return fmt.Errorf("report email job: missing user id")
	}
	if j.Type != models.ReportTypeDaily && j.Type != models.ReportTypeWeekly {
		return fmt.Errorf("report email job: unknown type %q", j.Type)
	}
	return nil
}

// JobProcessor handles one report email job.
type JobProcessor func(context.Context, *ReportEmailJob) error

// TaskQueue hands report email jobs to whoever processes them.
type TaskQueue interface {
	// Enqueue submits a job. Synchronous queues return the processing error.
	Enqueue(ctx context.Context, job *ReportEmailJob) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	Close() error
}

// NewTaskQueue returns a Redis-backed queue when enabled and reachable,
// otherwise an inline queue bound to processor.
func NewTaskQueue(cfg *config.RedisConfig, processor JobProcessor) TaskQueue {
	if !cfg.Enabled {
		logger.Info().Msg("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue(processor)
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("[TaskQueue] Redis unavailable, falling back to sync mode")
		return NewSyncQueue(processor)
	}
	logger.Info().Str("addr", cfg.Addr).Msg("[TaskQueue] Async queue initialized")
	return queue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		return nil, err
	}

	return &AsyncQueue{client: asynq.NewClient(opt)}, nil
}

func newReportEmailTask(job *ReportEmailJob) (*asynq.Task, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReportEmail, payload), nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, job *ReportEmailJob) error {
	task, err := newReportEmailTask(job)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}
	logger.Info().Str("id", info.ID).Str("queue", info.Queue).Uint("user_id", job.UserID).Str("type", job.Type).
		Msg("[AsyncQueue] job enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// SyncQueue runs jobs in the caller's goroutine.
type SyncQueue struct {
	processor JobProcessor
}

func NewSyncQueue(processor JobProcessor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

func (q *SyncQueue) Enqueue(ctx context.Context, job *ReportEmailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if q.processor == nil {
		logger.Warn().Msg("[SyncQueue] no processor set, job dropped")
		return nil
	}
	return q.processor(ctx, job)
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }
