package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/response"
)

// Aggregator collects a user's tasks and derives report statistics.
type Aggregator struct {
	users UserDirectory
	tasks TaskSource
	now   func() time.Time
}

func NewAggregator(users UserDirectory, tasks TaskSource) *Aggregator {
	return &Aggregator{users: users, tasks: tasks, now: time.Now}
}

// Aggregate returns the user together with statistics over w. Created and
// completed counts are window-relative; in-progress and overdue counts cover
// every task the user can see, evaluated at generation time.
func (a *Aggregator) Aggregate(ctx context.Context, userID uint, w Window) (*models.User, *Statistics, error) {
	if w.End.Before(w.Start) {
		return nil, nil, response.NewBadRequest("report window ends before it starts")
	}
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	stats, err := a.AggregateFor(ctx, user, w)
	if err != nil {
		return nil, nil, err
	}
	return user, stats, nil
}

// AggregateFor is Aggregate for an already resolved user.
func (a *Aggregator) AggregateFor(ctx context.Context, user *models.User, w Window) (*Statistics, error) {
	if w.End.Before(w.Start) {
		return nil, response.NewBadRequest("report window ends before it starts")
	}
	projectIDs, err := a.tasks.VisibleProjectIDs(user.ID)
	if err != nil {
		return nil, fmt.Errorf("load visible projects: %w", err)
	}
	var tasks []models.Task
	if len(projectIDs) > 0 {
		tasks, err = a.tasks.TasksForUser(ctx, projectIDs, user.ID)
		if err != nil {
			return nil, fmt.Errorf("load tasks: %w", err)
		}
	}

	stats := ComputeStatistics(tasks, w, a.now())
	return &stats, nil
}

// ComputeStatistics is the pure half of Aggregate.
func ComputeStatistics(tasks []models.Task, w Window, now time.Time) Statistics {
	stats := Statistics{Tasks: make([]TaskSnapshot, 0, len(tasks))}
	for i := range tasks {
		t := &tasks[i]
		if w.Contains(t.CreatedAt) {
			stats.CreatedCount++
		}
		if t.Status == models.TaskStatusDone && w.Contains(t.UpdatedAt) {
			stats.CompletedCount++
		}
		if t.Status == models.TaskStatusInProgress {
			stats.InProgressCount++
		}
		if t.DueDate != nil && t.DueDate.Before(now) && t.Status != models.TaskStatusDone {
			stats.OverdueCount++
		}
		stats.Tasks = append(stats.Tasks, snapshot(t))
	}
	sort.SliceStable(stats.Tasks, func(i, j int) bool {
		return stats.Tasks[i].UpdatedAt.After(stats.Tasks[j].UpdatedAt)
	})
	return stats
}

func snapshot(t *models.Task) TaskSnapshot {
	s := TaskSnapshot{
		ID:        t.ID,
		Title:     t.Title,
		Status:    t.Status,
		Priority:  t.Priority,
		DueDate:   t.DueDate,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Project != nil {
		s.ProjectName = t.Project.Name
	}
	return s
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DailyWindow covers the calendar day of date in loc.
func DailyWindow(date time.Time, loc *time.Location) Window {
	start := startOfDay(date.In(loc))
	return Window{Start: start, End: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}

// calendarDay moves an explicitly requested date to the same calendar day
// in loc, so a date picked by the caller is never shifted by zone offsets.
func calendarDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// WeeklyWindow runs from seven days before endDate's midnight through the
// last instant of endDate.
func WeeklyWindow(endDate time.Time, loc *time.Location) Window {
	day := startOfDay(endDate.In(loc))
	return Window{Start: day.AddDate(0, 0, -7), End: day.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}
