package alerting

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	gomail "gopkg.in/mail.v2"
)

const emailHTMLTemplate = `<html>
<body style="font-family: sans-serif; color: #222;">
<h2>Startup Revenue Alerts</h2>
<p>{{len .Alerts}} new revenue mention(s) over ${{.Threshold}}M:</p>
{{range .Alerts}}
<div style="margin-bottom: 20px; padding: 12px; border-left: 3px solid #007cba;">
  <h3><a href="{{.URL}}">{{.Title}}</a></h3>
  <p><strong>Company:</strong> {{.Company}}</p>
  <p><strong>Amount:</strong> ${{.Amount}}M ({{.Kind}})</p>
  <p><strong>Source:</strong> {{.Source}}</p>
  <p><strong>Date:</strong> {{.Date}}</p>
</div>
{{end}}
</body>
</html>`

const summaryHTMLTemplate = `<html>
<body style="font-family: sans-serif; color: #222;">
<h2>Startup Revenue Tracker Summary</h2>
<p>{{.From}} &mdash; {{.To}}</p>
<div style="margin-bottom: 20px; padding: 12px; background: #ecf0f1;">
  <p><strong>Articles seen:</strong> {{.ArticlesSeen}}</p>
  <p><strong>Alerts emitted:</strong> {{.AlertsEmitted}}</p>
  {{range .Sources}}<p>{{.Name}}: {{.Count}}</p>{{end}}
</div>
{{if .Alerts}}
<h3>Alerts in this window</h3>
{{range .Alerts}}
<div style="margin-bottom: 12px; padding: 8px; border-left: 3px solid #007cba;">
  <p><strong>{{.Company}}</strong>: ${{.Amount}}M ({{.Kind}}), via {{.Source}}</p>
</div>
{{end}}
{{else}}
<p>No alerts in this window.</p>
{{end}}
</body>
</html>`

// EmailOptions configure SMTP delivery.
type EmailOptions struct {
	SMTPServer string
	SMTPPort   int
	Username   string
	Password   string
	From       string
	To         string
	Threshold  decimal.Decimal
	Timeout    time.Duration
}

// EmailNotifier delivers alert digests over SMTP with an HTML body and a
// plain-text alternative.
type EmailNotifier struct {
	opts        EmailOptions
	tmpl        *template.Template
	summaryTmpl *template.Template
	dial        func(m *gomail.Message) error
	logger      zerolog.Logger
}

// NewEmailNotifier constructs an email channel.
func NewEmailNotifier(opts EmailOptions, logger zerolog.Logger) *EmailNotifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.From == "" {
		opts.From = opts.Username
	}

	n := &EmailNotifier{
		opts:        opts,
		tmpl:        template.Must(template.New("digest").Parse(emailHTMLTemplate)),
		summaryTmpl: template.Must(template.New("summary").Parse(summaryHTMLTemplate)),
		logger:      logger.With().Str("component", "alert_email").Logger(),
	}
	n.dial = func(m *gomail.Message) error {
		dialer := gomail.NewDialer(opts.SMTPServer, opts.SMTPPort, opts.Username, opts.Password)
		dialer.Timeout = opts.Timeout
		return dialer.DialAndSend(m)
	}
	return n
}

// Notify renders and sends one digest email.
func (n *EmailNotifier) Notify(_ context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	html, err := n.renderHTML(alerts)
	if err != nil {
		return fmt.Errorf("render digest email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.opts.From)
	m.SetHeader("To", n.opts.To)
	m.SetHeader("Subject", digestSubject(alerts))
	m.SetBody("text/plain", renderPlainDigest(alerts))
	m.AddAlternative("text/html", html)

	if err := n.dial(m); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}

	n.logger.Info().Int("alerts", len(alerts)).Str("to", n.opts.To).Msg("alert digest sent (email)")
	return nil
}

// NotifySummary renders and sends one summary email.
func (n *EmailNotifier) NotifySummary(_ context.Context, summary Summary) error {
	html, err := n.renderSummaryHTML(summary)
	if err != nil {
		return fmt.Errorf("render summary email: %w", err)
	}

	subject := fmt.Sprintf("Startup Revenue Tracker Summary - %s", summary.To.UTC().Format("January 2, 2006"))

	m := gomail.NewMessage()
	m.SetHeader("From", n.opts.From)
	m.SetHeader("To", n.opts.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", RenderSummaryText(summary))
	m.AddAlternative("text/html", html)

	if err := n.dial(m); err != nil {
		return fmt.Errorf("send summary email: %w", err)
	}

	n.logger.Info().Int("alerts", len(summary.Alerts)).Str("to", n.opts.To).Msg("summary sent (email)")
	return nil
}

func (n *EmailNotifier) renderSummaryHTML(summary Summary) (string, error) {
	type sourceRow struct {
		Name  string
		Count int64
	}
	type alertRow struct {
		Company, Amount, Kind, Source string
	}
	data := struct {
		From, To      string
		ArticlesSeen  int64
		AlertsEmitted int64
		Sources       []sourceRow
		Alerts        []alertRow
	}{
		From:          summary.From.UTC().Format("2006-01-02"),
		To:            summary.To.UTC().Format("2006-01-02"),
		ArticlesSeen:  summary.ArticlesSeen,
		AlertsEmitted: summary.AlertsEmitted,
	}

	for _, source := range summarySources(summary) {
		data.Sources = append(data.Sources, sourceRow{Name: source, Count: summary.AlertsBySource[source]})
	}
	for _, alert := range summary.Alerts {
		data.Alerts = append(data.Alerts, alertRow{
			Company: alert.Company,
			Amount:  alert.AmountMillions.StringFixed(1),
			Kind:    alert.Kind,
			Source:  alert.Source,
		})
	}

	var buf bytes.Buffer
	if err := n.summaryTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func digestSubject(alerts []Alert) string {
	total := decimal.Zero
	for _, alert := range alerts {
		total = total.Add(alert.AmountMillions)
	}
	plural := ""
	if len(alerts) > 1 {
		plural = "s"
	}
	return fmt.Sprintf("%d Startup Revenue Alert%s - $%sM Total", len(alerts), plural, total.StringFixed(1))
}

func (n *EmailNotifier) renderHTML(alerts []Alert) (string, error) {
	type row struct {
		Company, Amount, Kind, Source, Title, URL, Date string
	}
	data := struct {
		Alerts    []row
		Threshold string
	}{Threshold: n.opts.Threshold.StringFixed(0)}

	for _, alert := range alerts {
		data.Alerts = append(data.Alerts, row{
			Company: alert.Company,
			Amount:  alert.AmountMillions.StringFixed(1),
			Kind:    alert.Kind,
			Source:  alert.Source,
			Title:   alert.Title,
			URL:     alert.URL,
			Date:    alert.AlertedAt.UTC().Format("2006-01-02"),
		})
	}

	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderPlainDigest is the fallback for clients that reject HTML.
func renderPlainDigest(alerts []Alert) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d new revenue mention(s)\n", len(alerts)))
	sb.WriteString(strings.Repeat("=", 40) + "\n\n")
	for _, alert := range alerts {
		sb.WriteString(fmt.Sprintf("%s: $%sM %s\n", alert.Company, alert.AmountMillions.StringFixed(1), alert.Kind))
		sb.WriteString(fmt.Sprintf("Source: %s\n", alert.Source))
		if alert.Title != "" {
			sb.WriteString(alert.Title + "\n")
		}
		if alert.URL != "" {
			sb.WriteString(alert.URL + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var (
	_ Notifier        = (*EmailNotifier)(nil)
	_ SummaryNotifier = (*EmailNotifier)(nil)
)
