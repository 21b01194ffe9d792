package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/taskflow/backend/internal/models"
)

func snap(status, priority string) TaskSnapshot {
	return TaskSnapshot{Title: "Task", Status: status, Priority: priority, ProjectName: "Apollo", UpdatedAt: now}
}

func TestDailyFallback(t *testing.T) {
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		tasks []TaskSnapshot
		want  string
	}{
		{
			name: "no tasks",
			want: "Daily summary for Friday, October 16, 2026: no tasks assigned.",
		},
		{
			name: "two done one in progress",
			tasks: []TaskSnapshot{
				snap(models.TaskStatusDone, models.TaskPriorityMedium),
				snap(models.TaskStatusDone, models.TaskPriorityHigh),
				snap(models.TaskStatusInProgress, models.TaskPriorityLow),
			},
			want: "Daily summary for Friday, October 16, 2026: 3 total task(s). You completed 2 task(s). 1 task is currently in progress.",
		},
		{
			name: "several in progress with urgent work",
			tasks: []TaskSnapshot{
				snap(models.TaskStatusInProgress, models.TaskPriorityCritical),
				snap(models.TaskStatusInProgress, models.TaskPriorityLow),
				snap(models.TaskStatusTodo, models.TaskPriorityHigh),
			},
			want: "Daily summary for Friday, October 16, 2026: 3 total task(s). 2 tasks are currently in progress. 2 high-priority task(s) need your attention.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyFallback(tt.tasks, day)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Contains(t, DailyFallback(nil, day), "no tasks")
}

func TestWeeklyFallback(t *testing.T) {
	w := WeeklyWindow(now, time.UTC)
	some := []TaskSnapshot{snap(models.TaskStatusTodo, models.TaskPriorityLow)}

	tests := []struct {
		name  string
		tasks []TaskSnapshot
		stats Statistics
		want  string
	}{
		{
			name:  "nothing completed",
			tasks: some,
			stats: Statistics{CreatedCount: 5, InProgressCount: 2, OverdueCount: 1},
			want: "Weekly summary for Oct 9 - Oct 16, 2026: 5 new task(s) were created. 2 task(s) are still in progress. " +
				"1 task(s) are overdue and need attention. Keep the momentum going and aim to close out a task next week.",
		},
		{
			name:  "productive week",
			tasks: some,
			stats: Statistics{CreatedCount: 1, CompletedCount: 4},
			want:  "Weekly summary for Oct 9 - Oct 16, 2026: You completed 4 task(s). 1 new task(s) were created.",
		},
		{
			name: "empty week",
			want: "Weekly summary for Oct 9 - Oct 16, 2026: No task activity this week, check your backlog for work to pick up.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeeklyFallback(tt.tasks, w, tt.stats))
		})
	}
}

func TestGenerator_SummarizeDaily(t *testing.T) {
	ctx := context.Background()
	tasks := []TaskSnapshot{snap(models.TaskStatusDone, models.TaskPriorityLow)}

	t.Run("no completer", func(t *testing.T) {
		out := NewGenerator(nil).SummarizeDaily(ctx, "Alice", tasks, now)
		assert.False(t, out.IsAIGenerated())
		assert.Equal(t, DailyFallback(tasks, now), out.Text())
	})

	t.Run("empty task list never calls the completer", func(t *testing.T) {
		ai := &fakeCompleter{text: "AI text", model: "gpt"}
		out := NewGenerator(ai).SummarizeDaily(ctx, "Alice", nil, now)
		assert.False(t, out.IsAIGenerated())
		assert.Empty(t, ai.prompts)
	})

	t.Run("disabled completer", func(t *testing.T) {
		ai := &disabledCompleter{fakeCompleter{text: "AI text"}}
		out := NewGenerator(ai).SummarizeDaily(ctx, "Alice", tasks, now)
		assert.False(t, out.IsAIGenerated())
		assert.Empty(t, ai.prompts)
	})

	t.Run("completer error falls back", func(t *testing.T) {
		ai := &fakeCompleter{err: errBoom}
		out := NewGenerator(ai).SummarizeDaily(ctx, "Alice", tasks, now)
		assert.False(t, out.IsAIGenerated())
		assert.Equal(t, DailyFallback(tasks, now), out.Text())
		assert.Empty(t, out.Model())
		assert.Len(t, ai.prompts, 1)
	})

	t.Run("completer success", func(t *testing.T) {
		ai := &fakeCompleter{text: "You shipped the release.", model: "gpt-4o-mini"}
		out := NewGenerator(ai).SummarizeDaily(ctx, "Alice", tasks, now)
		assert.True(t, out.IsAIGenerated())
		assert.Equal(t, "You shipped the release.", out.Text())
		assert.Equal(t, "gpt-4o-mini", out.Model())
		assert.Contains(t, ai.prompts[0], "Alice")
		assert.Contains(t, ai.prompts[0], "150 words")
		assert.Contains(t, ai.prompts[0], "[DONE] Task")
	})
}

func TestGenerator_SummarizeWeekly(t *testing.T) {
	ctx := context.Background()
	w := WeeklyWindow(now, time.UTC)

	var tasks []TaskSnapshot
	for i := 0; i < 45; i++ {
		tasks = append(tasks, snap(models.TaskStatusTodo, models.TaskPriorityLow))
	}
	stats := Statistics{CreatedCount: 45}

	t.Run("prompt caps task list", func(t *testing.T) {
		ai := &fakeCompleter{text: "Busy week.", model: "claude"}
		out := NewGenerator(ai).SummarizeWeekly(ctx, "Bob", tasks, w, stats)
		assert.True(t, out.IsAIGenerated())

		prompt := ai.prompts[0]
		assert.Equal(t, maxWeeklyPromptTasks, strings.Count(prompt, "- [TODO]"))
		assert.Contains(t, prompt, "(and 15 more)")
		assert.Contains(t, prompt, "45 created, 0 completed, 0 in progress, 0 overdue")
		assert.Contains(t, prompt, "200 words")
	})

	t.Run("completer error falls back", func(t *testing.T) {
		ai := &fakeCompleter{err: errBoom}
		out := NewGenerator(ai).SummarizeWeekly(ctx, "Bob", tasks, w, stats)
		assert.False(t, out.IsAIGenerated())
		assert.Equal(t, WeeklyFallback(tasks, w, stats), out.Text())
	})
}
