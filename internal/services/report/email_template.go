package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/taskflow/backend/internal/models"
)

const (
	dailyEmailTaskRows  = 10
	weeklyEmailTaskRows = 20
)

var emailTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	},
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, Segoe UI, Helvetica, Arial, sans-serif; color: #1f2937; max-width: 640px; margin: 0 auto;">
  <h2 style="margin-bottom: 4px;">{{.Title}}</h2>
  <p style="color: #6b7280; margin-top: 0;">{{.Period}}</p>
  <p>Hi {{.Name}},</p>
  <p>{{.Summary}}</p>
  <table style="width: 100%; border-collapse: collapse; margin: 16px 0;">
    <tr>
      <td style="padding: 8px; text-align: center;"><strong>{{.Stats.CreatedCount}}</strong><br>created</td>
      <td style="padding: 8px; text-align: center;"><strong>{{.Stats.CompletedCount}}</strong><br>completed</td>
      <td style="padding: 8px; text-align: center;"><strong>{{.Stats.InProgressCount}}</strong><br>in progress</td>
      <td style="padding: 8px; text-align: center;"><strong>{{.Stats.OverdueCount}}</strong><br>overdue</td>
    </tr>
  </table>
  {{if .Tasks}}
  <table style="width: 100%; border-collapse: collapse; font-size: 14px;">
    <tr style="background: #f3f4f6;">
      <th style="padding: 6px; text-align: left;">Task</th>
      <th style="padding: 6px; text-align: left;">Project</th>
      <th style="padding: 6px; text-align: left;">Status</th>
      <th style="padding: 6px; text-align: left;">Priority</th>
      <th style="padding: 6px; text-align: left;">Due</th>
    </tr>
    {{range .Tasks}}
    <tr style="border-bottom: 1px solid #e5e7eb;">
      <td style="padding: 6px;">{{.Title}}</td>
      <td style="padding: 6px;">{{.ProjectName}}</td>
      <td style="padding: 6px;">{{.Status}}</td>
      <td style="padding: 6px;">{{.Priority}}</td>
      <td style="padding: 6px;">{{date .DueDate}}</td>
    </tr>
    {{end}}
  </table>
  {{if .More}}<p style="color: #6b7280;">and {{.More}} more task(s)</p>{{end}}
  {{end}}
  <p style="color: #9ca3af; font-size: 12px;">{{if .AIGenerated}}Summary written by {{.Model}}.{{else}}Summary generated automatically.{{end}}</p>
</body>
</html>`))

type emailData struct {
	Title       string
	Period      string
	Name        string
	Summary     string
	Stats       Statistics
	Tasks       []TaskSnapshot
	More        int
	AIGenerated bool
	Model       string
}

// renderEmail returns the subject and HTML body for rec.
func renderEmail(user *models.User, rec *Record) (string, string, error) {
	w := Window{Start: rec.WindowStart, End: rec.WindowEnd}
	data := emailData{
		Name:        user.DisplayName(),
		Summary:     rec.Summary,
		Stats:       rec.Statistics,
		AIGenerated: rec.IsAIGenerated,
		Model:       rec.AIModelUsed,
	}

	var subject string
	rows := dailyEmailTaskRows
	if rec.Type == models.ReportTypeWeekly {
		rows = weeklyEmailTaskRows
		data.Title = "Your weekly report"
		data.Period = formatRange(w)
		subject = "[TaskFlow] Weekly report: " + formatRange(w)
	} else {
		data.Title = "Your daily report"
		data.Period = formatDay(w.Start)
		subject = "[TaskFlow] Daily report for " + w.Start.Format("Jan 2, 2006")
	}

	data.Tasks = rec.Statistics.Tasks
	if len(data.Tasks) > rows {
		data.More = len(data.Tasks) - rows
		data.Tasks = data.Tasks[:rows]
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
