package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/middleware"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/internal/services/report"
	"github.com/taskflow/backend/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-handler-testing")
}

type envelope struct {
	Code    int             `json:"code"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recordingMailer struct {
	mu   sync.Mutex
	ok   bool
	sent []string
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.ok
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// asyncQueue records jobs instead of running them.
type asyncQueue struct {
	jobs []*services.ReportEmailJob
}

func (q *asyncQueue) Enqueue(_ context.Context, job *services.ReportEmailJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *asyncQueue) IsAsync() bool { return true }
func (q *asyncQueue) Close() error  { return nil }

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	mailer *recordingMailer
	queue  services.TaskQueue

	admin, manager, alice, bob models.User
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithQueue(t, nil)
}

// newTestEnvWithQueue wires the real services over an in-memory database.
// A nil queue processes report emails inline.
func newTestEnvWithQueue(t *testing.T, queue services.TaskQueue) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{t: t, db: db, mailer: &recordingMailer{ok: true}}
	env.admin = env.createUser("root", models.RoleAdmin)
	env.manager = env.createUser("mia", models.RoleManager)
	env.alice = env.createUser("alice", models.RoleMember)
	env.bob = env.createUser("bob", models.RoleMember)

	projects := services.NewProjectService(db)
	tasks := services.NewTaskService(db, projects)
	configSvc := services.NewSystemConfigService(db)
	holidays := services.NewHolidayService()
	source := report.NewDBSource(db, projects)
	reports := report.NewService(report.Deps{
		Users:    source,
		Tasks:    source,
		Store:    report.NewGormStore(db),
		Mailer:   env.mailer,
		Location: time.UTC,
	})
	if queue == nil {
		queue = services.NewSyncQueue(reports.ProcessJob)
	}
	env.queue = queue
	base := config.ReportConfig{DailyCron: "0 18 * * *", WeeklyCron: "0 18 * * 5", RetentionDays: 180}
	scheduler := report.NewScheduler(report.SchedulerOptions{
		Sender:     reports,
		Recipients: source,
		Settings:   func() services.ReportSettings { return configSvc.ReportSettings(base) },
		Location:   time.UTC,
	})

	projectHandler := NewProjectHandler(projects)
	taskHandler := NewTaskHandler(tasks)
	commentHandler := NewCommentHandler(services.NewCommentService(db, tasks))
	labelHandler := NewLabelHandler(services.NewLabelService(db, projects))
	reportHandler := NewReportHandler(reports, scheduler, queue)
	configHandler := NewSystemConfigHandler(configSvc, holidays, base)

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, queue).CheckHealth)
	api := r.Group("/api", middleware.AuthRequired())
	api.GET("/projects", projectHandler.List)
	api.POST("/projects", projectHandler.Create)
	api.GET("/projects/:id", projectHandler.GetByID)
	api.PUT("/projects/:id", projectHandler.Update)
	api.DELETE("/projects/:id", projectHandler.Delete)
	api.GET("/projects/:id/members", projectHandler.ListMembers)
	api.POST("/projects/:id/members", projectHandler.AddMember)
	api.DELETE("/projects/:id/members/:user_id", projectHandler.RemoveMember)
	api.GET("/projects/:id/tasks", taskHandler.List)
	api.POST("/projects/:id/tasks", taskHandler.Create)
	api.GET("/projects/:id/board", taskHandler.Board)
	api.GET("/tasks/:id", taskHandler.GetByID)
	api.PUT("/tasks/:id", taskHandler.Update)
	api.PUT("/tasks/:id/move", taskHandler.Move)
	api.DELETE("/tasks/:id", taskHandler.Delete)
	api.GET("/tasks/:id/comments", commentHandler.List)
	api.POST("/tasks/:id/comments", commentHandler.Create)
	api.PUT("/comments/:id", commentHandler.Update)
	api.DELETE("/comments/:id", commentHandler.Delete)
	api.GET("/projects/:id/labels", labelHandler.List)
	api.POST("/projects/:id/labels", labelHandler.Create)
	api.DELETE("/labels/:id", labelHandler.Delete)
	api.POST("/reports/daily", reportHandler.GenerateDaily)
	api.POST("/reports/weekly", reportHandler.GenerateWeekly)
	api.POST("/reports/daily/email", reportHandler.SendDailyEmail)
	api.POST("/reports/weekly/email", reportHandler.SendWeeklyEmail)
	api.GET("/reports/history", reportHandler.History)
	api.GET("/reports/team", reportHandler.Team)
	admin := api.Group("", middleware.AdminRequired())
	admin.POST("/admin/reports/run/daily", reportHandler.RunDaily)
	admin.POST("/admin/reports/run/weekly", reportHandler.RunWeekly)
	admin.GET("/system-config/report", configHandler.GetReportSettings)
	admin.PUT("/system-config/report", configHandler.UpdateReportSettings)
	env.router = r
	return env
}

func (e *testEnv) createUser(username, role string) models.User {
	e.t.Helper()
	u := models.User{
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		IsActive:   true,
		IsVerified: true,
	}
	require.NoError(e.t, e.db.Create(&u).Error)
	return u
}

// do sends a request as user and decodes the response envelope.
func (e *testEnv) do(user models.User, method, path string, body interface{}) (int, envelope) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user.ID != 0 {
		token, err := utils.GenerateToken(user.ID, user.Username, user.Role, 1)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}

// createProject creates a project owned by user and returns its ID.
func (e *testEnv) createProject(owner models.User, name string) uint {
	e.t.Helper()
	code, env := e.do(owner, http.MethodPost, "/api/projects", gin.H{"name": name})
	require.Equal(e.t, http.StatusCreated, code, env.Message)
	var p models.Project
	decodeData(e.t, env, &p)
	return p.ID
}

func (e *testEnv) createTask(user models.User, projectID uint, body gin.H) models.Task {
	e.t.Helper()
	code, env := e.do(user, http.MethodPost, fmt.Sprintf("/api/projects/%d/tasks", projectID), body)
	require.Equal(e.t, http.StatusCreated, code, env.Message)
	var task models.Task
	decodeData(e.t, env, &task)
	return task
}
