package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/backend/internal/middleware"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/internal/services/report"
	"github.com/taskflow/backend/pkg/response"
)

// ReportHandler exposes report generation, delivery and history.
type ReportHandler struct {
	reports   *report.Service
	scheduler *report.Scheduler
	queue     services.TaskQueue
}

func NewReportHandler(reports *report.Service, scheduler *report.Scheduler, queue services.TaskQueue) *ReportHandler {
	return &ReportHandler{reports: reports, scheduler: scheduler, queue: queue}
}

type dailyReportRequest struct {
	Date string `json:"date"`
}

type weeklyReportRequest struct {
	EndDate string `json:"end_date"`
}

// bindOptional binds a JSON body that may be absent.
func bindOptional(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// GenerateDaily builds and stores the caller's daily report
// POST /api/reports/daily
func (h *ReportHandler) GenerateDaily(c *gin.Context) {
	var req dailyReportRequest
	if !bindOptional(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.reports.GenerateDaily(c.Request.Context(), middleware.GetUserID(c), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// GenerateWeekly builds and stores the caller's weekly report
// POST /api/reports/weekly
func (h *ReportHandler) GenerateWeekly(c *gin.Context) {
	var req weeklyReportRequest
	if !bindOptional(c, &req) {
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.reports.GenerateWeekly(c.Request.Context(), middleware.GetUserID(c), endDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// SendDailyEmail
// POST /api/reports/daily/email
func (h *ReportHandler) SendDailyEmail(c *gin.Context) {
	h.sendEmail(c, models.ReportTypeDaily)
}

// SendWeeklyEmail
// POST /api/reports/weekly/email
func (h *ReportHandler) SendWeeklyEmail(c *gin.Context) {
	h.sendEmail(c, models.ReportTypeWeekly)
}

func (h *ReportHandler) sendEmail(c *gin.Context, reportType string) {
	job := &services.ReportEmailJob{UserID: middleware.GetUserID(c), Type: reportType}
	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		response.Error(c, err)
		return
	}

	status := "sent"
	if h.queue.IsAsync() {
		status = "queued"
	}
	response.Success(c, gin.H{"status": status, "type": reportType})
}

// History lists the caller's own reports
// GET /api/reports/history?type=&limit=
func (h *ReportHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.reports.History(c.Request.Context(), middleware.GetUserID(c), c.Query("type"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, records)
}

// Team returns the reports of the caller's project members
// GET /api/reports/team?type=&date=
func (h *ReportHandler) Team(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	team, err := h.reports.TeamReport(c.Request.Context(), middleware.GetActor(c), c.Query("type"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, team)
}

// RunDaily triggers the daily batch immediately
// POST /api/admin/reports/run/daily
func (h *ReportHandler) RunDaily(c *gin.Context) {
	result, err := h.scheduler.RunDaily(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RunWeekly triggers the weekly batch immediately
// POST /api/admin/reports/run/weekly
func (h *ReportHandler) RunWeekly(c *gin.Context) {
	result, err := h.scheduler.RunWeekly(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
