package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/internal/services/report"
	"github.com/taskflow/backend/pkg/response"
)

func TestReportHandler_GenerateDaily(t *testing.T) {
	env := newTestEnv(t)
	pid := env.createProject(env.alice, "Launch")
	env.createTask(env.alice, pid, gin.H{"title": "Write copy"})

	// an absent body means today
	code, body := env.do(env.alice, http.MethodPost, "/api/reports/daily", nil)
	require.Equal(t, http.StatusCreated, code, body.Message)
	var rec report.Record
	decodeData(t, body, &rec)
	assert.Equal(t, models.ReportTypeDaily, rec.Type)
	assert.Equal(t, env.alice.ID, rec.OwnerID)
	assert.Equal(t, 1, rec.Statistics.CreatedCount)
	assert.False(t, rec.IsAIGenerated)
	assert.NotEmpty(t, rec.ID)

	code, body = env.do(env.alice, http.MethodPost, "/api/reports/daily", gin.H{"date": "2026-13-01"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, response.KindValidation, body.Kind)
}

func TestReportHandler_GenerateWeeklyAndHistory(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(env.bob, http.MethodPost, "/api/reports/weekly", gin.H{"end_date": "2026-10-16"})
	require.Equal(t, http.StatusCreated, code, body.Message)
	var rec report.Record
	decodeData(t, body, &rec)
	assert.Equal(t, models.ReportTypeWeekly, rec.Type)
	assert.Equal(t, "2026-10-09", rec.WindowStart.Format("2006-01-02"))

	code, _ = env.do(env.bob, http.MethodPost, "/api/reports/daily", nil)
	require.Equal(t, http.StatusCreated, code)

	code, body = env.do(env.bob, http.MethodGet, "/api/reports/history?type=WEEKLY", nil)
	require.Equal(t, http.StatusOK, code)
	var history []report.Record
	decodeData(t, body, &history)
	require.Len(t, history, 1)
	assert.Equal(t, rec.ID, history[0].ID)

	code, body = env.do(env.bob, http.MethodGet, "/api/reports/history", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, body, &history)
	assert.Len(t, history, 2)

	code, _ = env.do(env.alice, http.MethodGet, "/api/reports/history", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(env.bob, http.MethodGet, "/api/reports/history?type=MONTHLY", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = env.do(env.bob, http.MethodGet, "/api/reports/history?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReportHandler_SendEmailInline(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(env.alice, http.MethodPost, "/api/reports/daily/email", nil)
	require.Equal(t, http.StatusOK, code, body.Message)
	var out map[string]string
	decodeData(t, body, &out)
	assert.Equal(t, "sent", out["status"])
	assert.Equal(t, 1, env.mailer.count())

	env.mailer.ok = false
	code, body = env.do(env.alice, http.MethodPost, "/api/reports/weekly/email", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, response.KindInternal, body.Kind)
}

func TestReportHandler_SendEmailQueued(t *testing.T) {
	queue := &asyncQueue{}
	env := newTestEnvWithQueue(t, queue)

	code, body := env.do(env.alice, http.MethodPost, "/api/reports/weekly/email", nil)
	require.Equal(t, http.StatusOK, code)
	var out map[string]string
	decodeData(t, body, &out)
	assert.Equal(t, "queued", out["status"])
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, services.ReportEmailJob{UserID: env.alice.ID, Type: models.ReportTypeWeekly}, *queue.jobs[0])
	assert.Zero(t, env.mailer.count())
}

func TestReportHandler_Team(t *testing.T) {
	env := newTestEnv(t)
	pid := env.createProject(env.manager, "Team")
	code, _ := env.do(env.manager, http.MethodPost, "/api/projects/"+itoa(pid)+"/members", gin.H{"user_id": env.alice.ID})
	require.Equal(t, http.StatusCreated, code)

	code, _ = env.do(env.alice, http.MethodPost, "/api/reports/daily", nil)
	require.Equal(t, http.StatusCreated, code)
	code, _ = env.do(env.bob, http.MethodPost, "/api/reports/daily", nil)
	require.Equal(t, http.StatusCreated, code)

	code, body := env.do(env.manager, http.MethodGet, "/api/reports/team", nil)
	require.Equal(t, http.StatusOK, code, body.Message)
	var team report.TeamReport
	decodeData(t, body, &team)
	assert.Equal(t, 1, team.TeamSize)
	require.Len(t, team.Reports, 1)
	assert.Equal(t, env.alice.ID, team.Reports[0].OwnerID)

	code, body = env.do(env.alice, http.MethodGet, "/api/reports/team", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, response.KindPermission, body.Kind)

	code, _ = env.do(env.manager, http.MethodGet, "/api/reports/team?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReportHandler_ManualRuns(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(env.alice, http.MethodPost, "/api/admin/reports/run/daily", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := env.do(env.admin, http.MethodPost, "/api/admin/reports/run/daily", nil)
	require.Equal(t, http.StatusOK, code, body.Message)
	var result report.BatchResult
	decodeData(t, body, &result)
	assert.Equal(t, report.TriggerDaily, result.Trigger)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Success)
	assert.Equal(t, 4, env.mailer.count())

	code, body = env.do(env.admin, http.MethodPost, "/api/admin/reports/run/weekly", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, body, &result)
	assert.Equal(t, report.TriggerWeekly, result.Trigger)
}
