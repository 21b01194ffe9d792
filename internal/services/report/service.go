package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/backend/internal/metrics"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/pkg/logger"
	"github.com/taskflow/backend/pkg/response"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// ErrDeliveryFailed means the mailer did not accept a report email.
var ErrDeliveryFailed = errors.New("report email delivery failed")

// Service generates, stores, mails and lists reports.
type Service struct {
	aggregator *Aggregator
	generator  *Generator
	store      Store
	users      UserDirectory
	tasks      TaskSource
	mailer     Mailer
	loc        *time.Location
	now        func() time.Time
}

type Deps struct {
	Users  UserDirectory
	Tasks  TaskSource
	Store  Store
	AI     Completer // nil disables AI summaries
	Mailer Mailer
	// Location is used for users without a valid timezone. Defaults to time.Local.
	Location *time.Location
}

func NewService(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		aggregator: NewAggregator(d.Users, d.Tasks),
		generator:  NewGenerator(d.AI),
		store:      d.Store,
		users:      d.Users,
		tasks:      d.Tasks,
		mailer:     d.Mailer,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *Service) setNow(now func() time.Time) {
	s.now = now
	s.aggregator.now = now
}

func (s *Service) userLocation(u *models.User) *time.Location {
	if u.Timezone != "" {
		if loc, err := time.LoadLocation(u.Timezone); err == nil {
			return loc
		}
	}
	return s.loc
}

// GenerateDaily builds and stores the report for the day containing date,
// or today when date is nil.
func (s *Service) GenerateDaily(ctx context.Context, userID uint, date *time.Time) (*Record, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc := s.userLocation(user)
	day := s.now()
	if date != nil {
		day = calendarDay(*date, loc)
	}
	w := DailyWindow(day, loc)

	stats, err := s.aggregator.AggregateFor(ctx, user, w)
	if err != nil {
		return nil, err
	}
	outcome := s.generator.SummarizeDaily(ctx, user.DisplayName(), stats.Tasks, w.Start)
	return s.save(ctx, models.ReportTypeDaily, user.ID, w, stats, outcome)
}

// GenerateWeekly builds and stores the report for the seven days ending on
// endDate, or today when endDate is nil.
func (s *Service) GenerateWeekly(ctx context.Context, userID uint, endDate *time.Time) (*Record, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc := s.userLocation(user)
	end := s.now()
	if endDate != nil {
		end = calendarDay(*endDate, loc)
	}
	w := WeeklyWindow(end, loc)

	stats, err := s.aggregator.AggregateFor(ctx, user, w)
	if err != nil {
		return nil, err
	}
	outcome := s.generator.SummarizeWeekly(ctx, user.DisplayName(), stats.Tasks, w, *stats)
	return s.save(ctx, models.ReportTypeWeekly, user.ID, w, stats, outcome)
}

func (s *Service) save(ctx context.Context, reportType string, ownerID uint, w Window, stats *Statistics, outcome Outcome) (*Record, error) {
	blob, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("encode statistics: %w", err)
	}
	row := &models.Report{
		ID:            uuid.New().String(),
		Type:          reportType,
		OwnerID:       ownerID,
		Summary:       outcome.Text(),
		IsAIGenerated: outcome.IsAIGenerated(),
		AIModelUsed:   outcome.Model(),
		Statistics:    string(blob),
		WindowStart:   w.Start,
		WindowEnd:     w.End,
		CreatedAt:     s.now(),
	}
	if err := s.store.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	metrics.RecordReportGenerated(reportType, outcome.IsAIGenerated())

	rec := toRecord(row)
	rec.Statistics = *stats
	return &rec, nil
}

func (s *Service) SendDailyEmail(ctx context.Context, userID uint) error {
	return s.SendEmail(ctx, userID, models.ReportTypeDaily)
}

func (s *Service) SendWeeklyEmail(ctx context.Context, userID uint) error {
	return s.SendEmail(ctx, userID, models.ReportTypeWeekly)
}

// SendEmail generates a fresh report and mails it. A user who disappears
// between generation and lookup, or has no address, is skipped without error.
func (s *Service) SendEmail(ctx context.Context, userID uint, reportType string) error {
	var (
		rec *Record
		err error
	)
	switch reportType {
	case models.ReportTypeDaily:
		rec, err = s.GenerateDaily(ctx, userID, nil)
	case models.ReportTypeWeekly:
		rec, err = s.GenerateWeekly(ctx, userID, nil)
	default:
		return response.NewBadRequest("unknown report type: " + reportType)
	}
	if err != nil {
		return err
	}

	log := logger.WithModule("report")
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			log.Debug().Uint("user_id", userID).Msg("user gone, report email skipped")
			return nil
		}
		return err
	}
	if user.Email == "" {
		log.Debug().Uint("user_id", userID).Msg("user has no email, report email skipped")
		return nil
	}
	if s.mailer == nil {
		return ErrDeliveryFailed
	}

	subject, body, err := renderEmail(user, rec)
	if err != nil {
		return fmt.Errorf("render report email: %w", err)
	}
	delivered := s.mailer.Send(ctx, user.Email, subject, body)
	metrics.RecordReportEmail(reportType, delivered)
	if !delivered {
		return ErrDeliveryFailed
	}
	log.Info().Uint("user_id", userID).Str("type", reportType).Msg("report email sent")
	return nil
}

// ProcessJob adapts SendEmail to the task queue.
func (s *Service) ProcessJob(ctx context.Context, job *services.ReportEmailJob) error {
	return s.SendEmail(ctx, job.UserID, job.Type)
}

// History lists a user's reports, newest first. reportType may be empty.
func (s *Service) History(ctx context.Context, userID uint, reportType string, limit int) ([]Record, error) {
	if reportType != "" && !validType(reportType) {
		return nil, response.NewBadRequest("invalid report type: " + reportType)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.store.ListHistory(ctx, userID, reportType, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return toRecords(rows), nil
}

// TeamReport returns the reports of everyone in the caller's owned projects
// created since the start of the window containing date.
func (s *Service) TeamReport(ctx context.Context, actor services.Actor, reportType string, date *time.Time) (*TeamReport, error) {
	if !actor.IsElevated() {
		return nil, response.NewForbidden("team reports require a manager or admin role")
	}
	if reportType == "" {
		reportType = models.ReportTypeDaily
	}
	if !validType(reportType) {
		return nil, response.NewBadRequest("invalid report type: " + reportType)
	}

	members, err := s.tasks.TeamMemberIDs(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}

	day := s.now()
	if date != nil {
		day = calendarDay(*date, s.loc)
	}
	since := DailyWindow(day, s.loc).Start
	if reportType == models.ReportTypeWeekly {
		since = WeeklyWindow(day, s.loc).Start
	}

	rows, err := s.store.ListForUsers(ctx, members, reportType, since)
	if err != nil {
		return nil, fmt.Errorf("list team reports: %w", err)
	}
	return &TeamReport{TeamSize: len(members), Reports: toRecords(rows)}, nil
}
