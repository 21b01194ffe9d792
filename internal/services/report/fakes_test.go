package report

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/response"
)

type fakeUsers struct {
	mu         sync.Mutex
	users      map[uint]*models.User
	recipients []uint
	err        error
	// vanishAfter makes GetUser report NotFound after this many successful lookups.
	vanishAfter int
	lookups     int
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[uint]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
		f.recipients = append(f.recipients, u.ID)
	}
	return f
}

func (f *fakeUsers) GetUser(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || (f.vanishAfter > 0 && f.lookups >= f.vanishAfter) {
		return nil, response.NewNotFound("user not found")
	}
	f.lookups++
	return u, nil
}

func (f *fakeUsers) RecipientIDs(context.Context) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recipients, nil
}

type fakeTasks struct {
	visible map[uint][]uint
	team    map[uint][]uint
	tasks   []models.Task
}

func (f *fakeTasks) VisibleProjectIDs(userID uint) ([]uint, error) {
	return f.visible[userID], nil
}

func (f *fakeTasks) TeamMemberIDs(ownerID uint) ([]uint, error) {
	return f.team[ownerID], nil
}

func (f *fakeTasks) TasksForUser(_ context.Context, projectIDs []uint, userID uint) ([]models.Task, error) {
	inProject := map[uint]bool{}
	for _, id := range projectIDs {
		inProject[id] = true
	}
	var out []models.Task
	for _, t := range f.tasks {
		if !inProject[t.ProjectID] {
			continue
		}
		if t.ReporterID == userID || (t.AssigneeID != nil && *t.AssigneeID == userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeStore struct {
	mu   sync.Mutex
	rows []models.Report
	err  error
}

func (f *fakeStore) Save(_ context.Context, r *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeStore) newestFirst(keep func(models.Report) bool) []models.Report {
	var out []models.Report
	for _, r := range f.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeStore) ListHistory(_ context.Context, ownerID uint, reportType string, limit int) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.newestFirst(func(r models.Report) bool {
		return r.OwnerID == ownerID && (reportType == "" || r.Type == reportType)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListForUsers(_ context.Context, ownerIDs []uint, reportType string, since time.Time) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owners := map[uint]bool{}
	for _, id := range ownerIDs {
		owners[id] = true
	}
	return f.newestFirst(func(r models.Report) bool {
		return owners[r.OwnerID] && r.Type == reportType && !r.CreatedAt.Before(since)
	}), nil
}

func (f *fakeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Report
	var deleted int64
	for _, r := range f.rows {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

type fakeCompleter struct {
	text    string
	model   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, f.model, nil
}

type disabledCompleter struct{ fakeCompleter }

func (d *disabledCompleter) Enabled() bool { return false }

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []sentMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html})
	return true
}

var errBoom = errors.New("boom")

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }
