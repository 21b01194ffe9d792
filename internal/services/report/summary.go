package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/logger"
)

const maxWeeklyPromptTasks = 30

// Outcome is a generated summary tagged with where its text came from.
type Outcome struct {
	text  string
	model string
	ai    bool
}

func AIGenerated(text, model string) Outcome {
	return Outcome{text: text, model: model, ai: true}
}

func Fallback(text string) Outcome {
	return Outcome{text: text}
}

func (o Outcome) Text() string        { return o.text }
func (o Outcome) Model() string       { return o.model }
func (o Outcome) IsAIGenerated() bool { return o.ai }

// Generator writes report narratives, preferring the AI completer and
// falling back to fixed templates.
type Generator struct {
	ai Completer
}

// NewGenerator accepts a nil completer, in which case every summary is a fallback.
func NewGenerator(ai Completer) *Generator {
	return &Generator{ai: ai}
}

func (g *Generator) available() bool {
	if g.ai == nil {
		return false
	}
	if e, ok := g.ai.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}

func (g *Generator) SummarizeDaily(ctx context.Context, userName string, tasks []TaskSnapshot, date time.Time) Outcome {
	fallback := DailyFallback(tasks, date)
	if !g.available() || len(tasks) == 0 {
		return Fallback(fallback)
	}
	return g.complete(ctx, dailyPrompt(userName, tasks, date), fallback)
}

func (g *Generator) SummarizeWeekly(ctx context.Context, userName string, tasks []TaskSnapshot, w Window, stats Statistics) Outcome {
	fallback := WeeklyFallback(tasks, w, stats)
	if !g.available() || len(tasks) == 0 {
		return Fallback(fallback)
	}
	return g.complete(ctx, weeklyPrompt(userName, tasks, w, stats), fallback)
}

func (g *Generator) complete(ctx context.Context, prompt, fallback string) Outcome {
	text, model, err := g.ai.Complete(ctx, prompt)
	if err != nil {
		logger.WithModule("report").Warn().Err(err).Msg("AI summary failed, using fallback")
		return Fallback(fallback)
	}
	return AIGenerated(text, model)
}

func formatDay(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

func formatRange(w Window) string {
	return w.Start.Format("Jan 2") + " - " + w.End.Format("Jan 2, 2006")
}

// DailyFallback is the deterministic daily narrative.
func DailyFallback(tasks []TaskSnapshot, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily summary for %s:", formatDay(date))
	if len(tasks) == 0 {
		b.WriteString(" no tasks assigned.")
		return b.String()
	}

	var done, inProgress, urgent int
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusDone:
			done++
		case models.TaskStatusInProgress:
			inProgress++
		}
		if t.Status != models.TaskStatusDone &&
			(t.Priority == models.TaskPriorityHigh || t.Priority == models.TaskPriorityCritical) {
			urgent++
		}
	}

	fmt.Fprintf(&b, " %d total task(s).", len(tasks))
	if done > 0 {
		fmt.Fprintf(&b, " You completed %d task(s).", done)
	}
	if inProgress == 1 {
		b.WriteString(" 1 task is currently in progress.")
	} else if inProgress > 1 {
		fmt.Fprintf(&b, " %d tasks are currently in progress.", inProgress)
	}
	if urgent > 0 {
		fmt.Fprintf(&b, " %d high-priority task(s) need your attention.", urgent)
	}
	return b.String()
}

// WeeklyFallback is the deterministic weekly narrative.
func WeeklyFallback(tasks []TaskSnapshot, w Window, stats Statistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly summary for %s:", formatRange(w))
	if stats.CompletedCount > 0 {
		fmt.Fprintf(&b, " You completed %d task(s).", stats.CompletedCount)
	}
	if stats.CreatedCount > 0 {
		fmt.Fprintf(&b, " %d new task(s) were created.", stats.CreatedCount)
	}
	if stats.InProgressCount > 0 {
		fmt.Fprintf(&b, " %d task(s) are still in progress.", stats.InProgressCount)
	}
	if stats.OverdueCount > 0 {
		fmt.Fprintf(&b, " %d task(s) are overdue and need attention.", stats.OverdueCount)
	}

	switch {
	case stats.CompletedCount == 0 && len(tasks) > 0:
		b.WriteString(" Keep the momentum going and aim to close out a task next week.")
	case len(tasks) == 0:
		b.WriteString(" No task activity this week, check your backlog for work to pick up.")
	}
	return b.String()
}

func writeTaskLine(b *strings.Builder, t TaskSnapshot) {
	fmt.Fprintf(b, "- [%s] %s (priority %s", t.Status, t.Title, t.Priority)
	if t.ProjectName != "" {
		fmt.Fprintf(b, ", project %s", t.ProjectName)
	}
	if t.DueDate != nil {
		fmt.Fprintf(b, ", due %s", t.DueDate.Format("2006-01-02"))
	}
	b.WriteString(")\n")
}

func dailyPrompt(userName string, tasks []TaskSnapshot, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short daily work summary for %s covering %s.\n\n", userName, formatDay(date))
	b.WriteString("Tasks:\n")
	for _, t := range tasks {
		writeTaskLine(&b, t)
	}
	b.WriteString("\nKeep it under 150 words. Write in friendly, encouraging prose. ")
	b.WriteString("Do not use bullet points or lists. Mention what was finished, what is in progress, and anything urgent.")
	return b.String()
}

func weeklyPrompt(userName string, tasks []TaskSnapshot, w Window, stats Statistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a weekly work summary for %s covering %s.\n\n", userName, formatRange(w))
	fmt.Fprintf(&b, "Statistics: %d created, %d completed, %d in progress, %d overdue.\n\n",
		stats.CreatedCount, stats.CompletedCount, stats.InProgressCount, stats.OverdueCount)
	b.WriteString("Tasks:\n")
	shown := tasks
	if len(shown) > maxWeeklyPromptTasks {
		shown = shown[:maxWeeklyPromptTasks]
	}
	for _, t := range shown {
		writeTaskLine(&b, t)
	}
	if len(tasks) > len(shown) {
		fmt.Fprintf(&b, "(and %d more)\n", len(tasks)-len(shown))
	}
	b.WriteString("\nKeep it under 200 words. Write in prose, not lists. ")
	b.WriteString("Highlight accomplishments, call out overdue work, and suggest a focus for next week.")
	return b.String()
}
