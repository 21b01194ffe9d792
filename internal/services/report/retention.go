package report

import (
	"context"
	"time"

	"github.com/taskflow/backend/internal/services"
)

// RetentionTask deletes reports older than the retention returned by days.
// Zero or negative keeps everything.
func RetentionTask(store Store, days func() int) services.CleanupTask {
	return services.CleanupTask{
		Name: "reports",
		Run: func(ctx context.Context) (int64, error) {
			return PruneReports(ctx, store, days(), time.Now())
		},
	}
}

func PruneReports(ctx context.Context, store Store, days int, now time.Time) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return store.DeleteOlderThan(ctx, now.AddDate(0, 0, -days))
}
