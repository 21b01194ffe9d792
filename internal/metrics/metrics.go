// Package metrics exposes Prometheus collectors for the report pipeline and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_reports_generated_total",
			Help: "Total number of reports generated, by type and summary source",
		},
		[]string{"type", "source"},
	)
	ReportEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_report_emails_total",
			Help: "Total number of report emails attempted, by type and result",
		},
		[]string{"type", "result"},
	)
	ReportBatchUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_report_batch_users_total",
			Help: "Users processed by scheduled report batches, by trigger and result",
		},
		[]string{"trigger", "result"},
	)
	ReportBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_report_batch_duration_seconds",
			Help:    "Wall-clock duration of report batches",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"trigger"},
	)
	ReportBatchesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_report_batches_skipped_total",
			Help: "Scheduled report firings that did not run, by trigger and reason",
		},
		[]string{"trigger", "reason"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordReportGenerated counts one generated report. source is "ai" or "fallback".
func RecordReportGenerated(reportType string, aiGenerated bool) {
	source := "fallback"
	if aiGenerated {
		source = "ai"
	}
	ReportsGenerated.WithLabelValues(reportType, source).Inc()
}

func RecordReportEmail(reportType string, delivered bool) {
	result := "failed"
	if delivered {
		result = "sent"
	}
	ReportEmails.WithLabelValues(reportType, result).Inc()
}

func RecordBatch(trigger string, success, failed int, duration time.Duration) {
	ReportBatchUsers.WithLabelValues(trigger, "success").Add(float64(success))
	ReportBatchUsers.WithLabelValues(trigger, "failed").Add(float64(failed))
	ReportBatchDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func RecordBatchSkipped(trigger, reason string) {
	ReportBatchesSkipped.WithLabelValues(trigger, reason).Inc()
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
