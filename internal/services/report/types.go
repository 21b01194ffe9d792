// Package report builds daily and weekly activity reports from a user's
// tasks, summarizes them with an AI model when one is configured, stores
// them, mails them, and runs the scheduled per-user batches.
package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/taskflow/backend/internal/models"
)

// TaskSnapshot is a point-in-time copy of a task embedded in a report.
type TaskSnapshot struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	ProjectName string     `json:"project_name"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Statistics is the serialized payload stored with every report.
type Statistics struct {
	CreatedCount    int            `json:"created_count"`
	CompletedCount  int            `json:"completed_count"`
	InProgressCount int            `json:"in_progress_count"`
	OverdueCount    int            `json:"overdue_count"`
	Tasks           []TaskSnapshot `json:"task_snapshots"`
}

// Window is an inclusive [Start, End] time range.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Record is a report as returned to API callers.
type Record struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	OwnerID       uint       `json:"owner_id"`
	Summary       string     `json:"summary"`
	IsAIGenerated bool       `json:"is_ai_generated"`
	AIModelUsed   string     `json:"ai_model_used,omitempty"`
	Statistics    Statistics `json:"statistics"`
	WindowStart   time.Time  `json:"window_start"`
	WindowEnd     time.Time  `json:"window_end"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TeamReport is the manager view over the reports of their project members.
type TeamReport struct {
	TeamSize int      `json:"team_size"`
	Reports  []Record `json:"reports"`
}

// UserDirectory resolves identities.
type UserDirectory interface {
	// GetUser fails with response.ErrNotFound when the user does not exist.
	GetUser(ctx context.Context, id uint) (*models.User, error)
	// RecipientIDs lists the active, verified users that receive scheduled reports.
	RecipientIDs(ctx context.Context) ([]uint, error)
}

// TaskSource reads projects and tasks.
type TaskSource interface {
	VisibleProjectIDs(userID uint) ([]uint, error)
	// TasksForUser returns tasks in projectIDs where userID is assignee or
	// reporter, with Project loaded.
	TasksForUser(ctx context.Context, projectIDs []uint, userID uint) ([]models.Task, error)
	TeamMemberIDs(ownerID uint) ([]uint, error)
}

// Store persists reports.
type Store interface {
	Save(ctx context.Context, r *models.Report) error
	ListHistory(ctx context.Context, ownerID uint, reportType string, limit int) ([]models.Report, error)
	ListForUsers(ctx context.Context, ownerIDs []uint, reportType string, since time.Time) ([]models.Report, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Completer produces text for a prompt and names the model that answered.
type Completer interface {
	Complete(ctx context.Context, prompt string) (text string, model string, err error)
}

// Mailer delivers an HTML email and reports whether it was accepted.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) bool
}

func toRecord(r *models.Report) Record {
	rec := Record{
		ID:            r.ID,
		Type:          r.Type,
		OwnerID:       r.OwnerID,
		Summary:       r.Summary,
		IsAIGenerated: r.IsAIGenerated,
		AIModelUsed:   r.AIModelUsed,
		WindowStart:   r.WindowStart,
		WindowEnd:     r.WindowEnd,
		CreatedAt:     r.CreatedAt,
	}
	if r.Statistics != "" {
		// a corrupt blob still yields the summary text
		_ = json.Unmarshal([]byte(r.Statistics), &rec.Statistics)
	}
	if rec.Statistics.Tasks == nil {
		rec.Statistics.Tasks = []TaskSnapshot{}
	}
	return rec
}

func toRecords(rows []models.Report) []Record {
	out := make([]Record, 0, len(rows))
	for i := range rows {
		out = append(out, toRecord(&rows[i]))
	}
	return out
}

func validType(t string) bool {
	return t == models.ReportTypeDaily || t == models.ReportTypeWeekly
}
