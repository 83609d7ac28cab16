// Package mailer sends transactional email through the Resend HTTP API.
// Without an API key the mailer is soft-disabled: sends return a structured
// skipped result so callers can react deterministically instead of crashing.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/subhubsl/subhub/models"
)

// Status classifies the outcome of one send attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped" // no API key configured
	StatusFailed  Status = "failed"
)

// Result is the structured outcome of a send. Provider failures land here,
// never as a panic or an unhandled error path.
type Result struct {
	Status Status
	ID     string
	Err    error
}

func (r Result) Sent() bool { return r.Status == StatusSent }

type Config struct {
	APIKey     string
	From       string
	Recipients []string
	BaseURL    string // override for tests; defaults to the Resend API
}

type Mailer struct {
	cfg    Config
	client *resty.Client
	logger *slog.Logger

	newTitleTmpl   *template.Template
	newArticleTmpl *template.Template
}

const newTitleTemplate = `<h2>New title on SubHub SL</h2>
<p><strong>{{.Title}}</strong>{{if .Year}} ({{.Year}}){{end}}</p>
{{if .Category}}<p>Category: {{.Category}}</p>{{end}}
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p><a href="https://subhubsl.com/{{.PathSegment}}/{{.ID}}">Watch now</a></p>`

const newArticleTemplate = `<h2>New update from {{.Site}}</h2>
<p><strong>{{.Title}}</strong></p>
<p><a href="{{.Link}}">Read the full article</a></p>`

func New(cfg Config, logger *slog.Logger) *Mailer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.resend.com"
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Mailer{
		cfg:            cfg,
		client:         client,
		logger:         logger,
		newTitleTmpl:   template.Must(template.New("new_title").Parse(newTitleTemplate)),
		newArticleTmpl: template.Must(template.New("new_article").Parse(newArticleTemplate)),
	}
}

// Enabled reports whether an API key is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.APIKey != ""
}

// NotifyNewTitle announces an internally added content item.
func (m *Mailer) NotifyNewTitle(ctx context.Context, item *models.ContentItem) Result {
	var body bytes.Buffer
	if err := m.newTitleTmpl.Execute(&body, item); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to render email template: %w", err)}
	}
	subject := fmt.Sprintf("New on SubHub SL: %s", item.Title)
	return m.send(ctx, subject, body.String())
}

// NotifyNewArticle announces a newly observed external feed item.
func (m *Mailer) NotifyNewArticle(ctx context.Context, site, title, link string) Result {
	data := struct{ Site, Title, Link string }{Site: site, Title: title, Link: link}
	var body bytes.Buffer
	if err := m.newArticleTmpl.Execute(&body, data); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to render email template: %w", err)}
	}
	subject := fmt.Sprintf("%s: %s", site, title)
	return m.send(ctx, subject, body.String())
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (m *Mailer) send(ctx context.Context, subject, html string) Result {
	if !m.Enabled() {
		m.logger.Info("email not sent, mailer disabled", slog.String("subject", subject))
		return Result{Status: StatusSkipped}
	}
	if len(m.cfg.Recipients) == 0 {
		m.logger.Info("email not sent, no recipients configured", slog.String("subject", subject))
		return Result{Status: StatusSkipped}
	}

	var parsed sendResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(sendRequest{
			From:    m.cfg.From,
			To:      m.cfg.Recipients,
			Subject: subject,
			HTML:    html,
		}).
		SetResult(&parsed).
		Post("/emails")
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to send email: %w", err)}
	}
	if resp.IsError() {
		return Result{Status: StatusFailed, Err: fmt.Errorf("email provider returned status %d: %s", resp.StatusCode(), resp.String())}
	}

	m.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("id", parsed.ID),
		slog.Int("recipients", len(m.cfg.Recipients)))
	return Result{Status: StatusSent, ID: parsed.ID}
}
