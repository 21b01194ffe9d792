package report

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
)

type recordingSender struct {
	mu      sync.Mutex
	failFor map[uint]error
	panicOn uint
	daily   []uint
	weekly  []uint
}

func (r *recordingSender) send(list *[]uint, uid uint) error {
	r.mu.Lock()
	*list = append(*list, uid)
	r.mu.Unlock()
	if uid == r.panicOn {
		panic("mailer exploded")
	}
	return r.failFor[uid]
}

func (r *recordingSender) SendDailyEmail(_ context.Context, uid uint) error {
	return r.send(&r.daily, uid)
}

func (r *recordingSender) SendWeeklyEmail(_ context.Context, uid uint) error {
	return r.send(&r.weekly, uid)
}

type memLocker struct {
	mu     sync.Mutex
	claims map[string]bool
}

func (m *memLocker) TryClaim(trigger, period string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims == nil {
		m.claims = map[string]bool{}
	}
	key := trigger + "|" + period
	if m.claims[key] {
		return false, nil
	}
	m.claims[key] = true
	return true, nil
}

type fixedCalendar bool

func (c fixedCalendar) IsWorkday(time.Time, string) bool { return bool(c) }

func defaultSettings() services.ReportSettings {
	return services.ReportSettings{
		DailyEnabled:  true,
		WeeklyEnabled: true,
		DailyCron:     "0 18 * * *",
		WeeklyCron:    "0 18 * * 5",
	}
}

func threeUsers() *fakeUsers {
	return newFakeUsers(
		&models.User{ID: 1, Username: "a"},
		&models.User{ID: 2, Username: "b"},
		&models.User{ID: 3, Username: "c"},
	)
}

func newTestScheduler(sender EmailSender, opts SchedulerOptions) *Scheduler {
	opts.Sender = sender
	if opts.Recipients == nil {
		opts.Recipients = threeUsers()
	}
	if opts.Settings == nil {
		opts.Settings = defaultSettings
	}
	opts.Location = time.UTC
	s := NewScheduler(opts)
	s.now = func() time.Time { return now }
	return s
}

func TestScheduler_BatchIsolatesFailures(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		sender := &recordingSender{failFor: map[uint]error{2: errBoom}}
		s := newTestScheduler(sender, SchedulerOptions{Concurrency: concurrency})

		result, err := s.RunDaily(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 2, result.Success)
		assert.Equal(t, 1, result.Failed)

		sort.Slice(sender.daily, func(i, j int) bool { return sender.daily[i] < sender.daily[j] })
		assert.Equal(t, []uint{1, 2, 3}, sender.daily)
	}
}

func TestScheduler_SequentialOrder(t *testing.T) {
	sender := &recordingSender{failFor: map[uint]error{1: errBoom}}
	s := newTestScheduler(sender, SchedulerOptions{})

	result, err := s.RunWeekly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, sender.weekly)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)
}

func TestScheduler_PanicCountsAsFailure(t *testing.T) {
	sender := &recordingSender{panicOn: 2}
	s := newTestScheduler(sender, SchedulerOptions{})

	result, err := s.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, sender.daily, 3)
}

func TestScheduler_RecipientError(t *testing.T) {
	users := threeUsers()
	users.err = errBoom
	s := newTestScheduler(&recordingSender{}, SchedulerOptions{Recipients: users})

	_, err := s.RunDaily(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(&recordingSender{}, SchedulerOptions{})

	var sched *Schedule
	assert.False(t, sched.Running())

	sched, err := s.Start(sched)
	require.NoError(t, err)
	require.True(t, sched.Running())
	assert.Equal(t, 2, sched.Entries())

	again, err := s.Start(sched)
	require.NoError(t, err)
	assert.Same(t, sched, again)
	assert.Equal(t, 2, again.Entries())

	sched = s.Stop(sched)
	assert.Nil(t, sched)
	assert.False(t, sched.Running())
	assert.Nil(t, s.Stop(sched))
}

func TestScheduler_StartRejectsBadCron(t *testing.T) {
	s := newTestScheduler(&recordingSender{}, SchedulerOptions{
		Settings: func() services.ReportSettings {
			st := defaultSettings()
			st.WeeklyCron = "every friday"
			return st
		},
	})

	sched, err := s.Start(nil)
	assert.Error(t, err)
	assert.Nil(t, sched)
}

func TestScheduler_Fire(t *testing.T) {
	t.Run("claimed firing runs once per period", func(t *testing.T) {
		sender := &recordingSender{}
		locker := &memLocker{}
		s := newTestScheduler(sender, SchedulerOptions{Locker: locker})

		s.fire(TriggerDaily)
		s.fire(TriggerDaily)
		assert.Len(t, sender.daily, 3)

		s.fire(TriggerWeekly)
		s.fire(TriggerWeekly)
		assert.Len(t, sender.weekly, 3)
		assert.True(t, locker.claims[TriggerWeekly+"|2026-W42"])
	})

	t.Run("disabled switch", func(t *testing.T) {
		sender := &recordingSender{}
		s := newTestScheduler(sender, SchedulerOptions{
			Settings: func() services.ReportSettings {
				st := defaultSettings()
				st.DailyEnabled = false
				return st
			},
		})
		s.fire(TriggerDaily)
		s.fire(TriggerWeekly)
		assert.Empty(t, sender.daily)
		assert.Len(t, sender.weekly, 3)
	})

	t.Run("holiday skips daily but not manual runs", func(t *testing.T) {
		sender := &recordingSender{}
		s := newTestScheduler(sender, SchedulerOptions{
			Calendar: fixedCalendar(false),
			Settings: func() services.ReportSettings {
				st := defaultSettings()
				st.HolidayCountry = "US"
				return st
			},
		})
		s.fire(TriggerDaily)
		assert.Empty(t, sender.daily)

		_, err := s.RunDaily(context.Background())
		require.NoError(t, err)
		assert.Len(t, sender.daily, 3)
	})

	t.Run("no holiday country ignores calendar", func(t *testing.T) {
		sender := &recordingSender{}
		s := newTestScheduler(sender, SchedulerOptions{Calendar: fixedCalendar(false)})
		s.fire(TriggerDaily)
		assert.Len(t, sender.daily, 3)
	})
}
