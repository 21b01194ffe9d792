package report

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/taskflow/backend/internal/metrics"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	TriggerDaily  = "report_daily"
	TriggerWeekly = "report_weekly"

	claimTTL = 12 * time.Hour
)

// Schedule holds the armed calendar triggers. A nil Schedule is stopped.
type Schedule struct {
	cron   *cron.Cron
	daily  cron.EntryID
	weekly cron.EntryID
}

func (s *Schedule) Running() bool {
	return s != nil && s.cron != nil
}

// Entries returns the number of armed triggers.
func (s *Schedule) Entries() int {
	if !s.Running() {
		return 0
	}
	return len(s.cron.Entries())
}

// EmailSender sends one user's report email.
type EmailSender interface {
	SendDailyEmail(ctx context.Context, userID uint) error
	SendWeeklyEmail(ctx context.Context, userID uint) error
}

// Recipients lists the users a batch iterates over.
type Recipients interface {
	RecipientIDs(ctx context.Context) ([]uint, error)
}

// Locker claims a scheduled firing so only one instance runs it.
type Locker interface {
	TryClaim(trigger, period string, ttl time.Duration) (bool, error)
}

// Calendar decides whether a day is a working day in a country.
type Calendar interface {
	IsWorkday(t time.Time, countryCode string) bool
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Trigger  string        `json:"trigger"`
	Total    int           `json:"total"`
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type SchedulerOptions struct {
	Sender     EmailSender
	Recipients Recipients
	// Settings is read at every firing so switches apply without a restart.
	Settings func() services.ReportSettings
	Locker   Locker   // nil runs every firing locally
	Calendar Calendar // nil never skips a day
	// Concurrency above 1 sends through a bounded pool.
	Concurrency int
	Location    *time.Location
}

// Scheduler fires the daily and weekly report batches.
type Scheduler struct {
	opts SchedulerOptions
	loc  *time.Location
	now  func() time.Time
}

func NewScheduler(opts SchedulerOptions) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scheduler{opts: opts, loc: loc, now: time.Now}
}

// Start arms both triggers and returns the running schedule. Starting an
// already running schedule returns it unchanged.
func (s *Scheduler) Start(cur *Schedule) (*Schedule, error) {
	if cur.Running() {
		return cur, nil
	}
	settings := s.opts.Settings()
	c := cron.New(cron.WithLocation(s.loc))

	daily, err := c.AddFunc(settings.DailyCron, func() { s.fire(TriggerDaily) })
	if err != nil {
		return nil, fmt.Errorf("invalid daily cron %q: %w", settings.DailyCron, err)
	}
	weekly, err := c.AddFunc(settings.WeeklyCron, func() { s.fire(TriggerWeekly) })
	if err != nil {
		return nil, fmt.Errorf("invalid weekly cron %q: %w", settings.WeeklyCron, err)
	}

	c.Start()
	logger.WithModule("scheduler").Info().
		Str("daily", settings.DailyCron).
		Str("weekly", settings.WeeklyCron).
		Str("timezone", s.loc.String()).
		Msg("report scheduler started")
	return &Schedule{cron: c, daily: daily, weekly: weekly}, nil
}

// Stop disarms the triggers, waits for a running batch to finish and
// returns the stopped (nil) schedule.
func (s *Scheduler) Stop(cur *Schedule) *Schedule {
	if !cur.Running() {
		return nil
	}
	<-cur.cron.Stop().Done()
	logger.WithModule("scheduler").Info().Msg("report scheduler stopped")
	return nil
}

// RunDaily sends the daily report to every recipient now, ignoring the
// calendar, switches and instance locks.
func (s *Scheduler) RunDaily(ctx context.Context) (BatchResult, error) {
	return s.runBatch(ctx, TriggerDaily, s.opts.Sender.SendDailyEmail)
}

// RunWeekly is RunDaily for the weekly report.
func (s *Scheduler) RunWeekly(ctx context.Context) (BatchResult, error) {
	return s.runBatch(ctx, TriggerWeekly, s.opts.Sender.SendWeeklyEmail)
}

func (s *Scheduler) fire(trigger string) {
	log := logger.WithModule("scheduler")
	now := s.now().In(s.loc)
	settings := s.opts.Settings()

	var period string
	switch trigger {
	case TriggerDaily:
		if !settings.DailyEnabled {
			metrics.RecordBatchSkipped(trigger, "disabled")
			return
		}
		if s.opts.Calendar != nil && settings.HolidayCountry != "" &&
			!s.opts.Calendar.IsWorkday(now, settings.HolidayCountry) {
			log.Info().Str("country", settings.HolidayCountry).Msg("non-workday, daily reports skipped")
			metrics.RecordBatchSkipped(trigger, "holiday")
			return
		}
		period = now.Format("2006-01-02")
	case TriggerWeekly:
		if !settings.WeeklyEnabled {
			metrics.RecordBatchSkipped(trigger, "disabled")
			return
		}
		year, week := now.ISOWeek()
		period = fmt.Sprintf("%d-W%02d", year, week)
	default:
		return
	}

	if s.opts.Locker != nil {
		claimed, err := s.opts.Locker.TryClaim(trigger, period, claimTTL)
		if err != nil {
			log.Error().Err(err).Str("trigger", trigger).Msg("failed to claim scheduled run")
			return
		}
		if !claimed {
			log.Info().Str("trigger", trigger).Str("period", period).Msg("run already claimed by another instance")
			metrics.RecordBatchSkipped(trigger, "claimed")
			return
		}
	}

	var err error
	if trigger == TriggerDaily {
		_, err = s.RunDaily(context.Background())
	} else {
		_, err = s.RunWeekly(context.Background())
	}
	if err != nil {
		log.Error().Err(err).Str("trigger", trigger).Msg("report batch failed")
	}
}

// runBatch attempts send for every recipient. One user's error or panic
// never stops the others.
func (s *Scheduler) runBatch(ctx context.Context, trigger string, send func(context.Context, uint) error) (BatchResult, error) {
	log := logger.WithModule("scheduler")
	start := time.Now()
	result := BatchResult{Trigger: trigger}

	ids, err := s.opts.Recipients.RecipientIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list recipients: %w", err)
	}
	result.Total = len(ids)

	var success, failed atomic.Int64
	attempt := func(uid uint) {
		if err := safeSend(ctx, send, uid); err != nil {
			failed.Add(1)
			log.Warn().Err(err).Uint("user_id", uid).Str("trigger", trigger).Msg("report email failed")
			return
		}
		success.Add(1)
	}

	if s.opts.Concurrency <= 1 {
		for _, uid := range ids {
			attempt(uid)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.opts.Concurrency)
		for _, uid := range ids {
			g.Go(func() error {
				attempt(uid)
				return nil
			})
		}
		_ = g.Wait()
	}

	result.Success = int(success.Load())
	result.Failed = int(failed.Load())
	result.Duration = time.Since(start)

	log.Info().
		Str("trigger", trigger).
		Int("total", result.Total).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("report batch finished")
	metrics.RecordBatch(trigger, result.Success, result.Failed, result.Duration)
	services.LogInfo("report", trigger,
		fmt.Sprintf("Report batch finished: %d sent, %d failed", result.Success, result.Failed),
		nil, "", "", result)
	return result, nil
}

func safeSend(ctx context.Context, send func(context.Context, uint) error, uid uint) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return send(ctx, uid)
}
