// Package monitor polls external RSS feeds and notifies exactly once per
// newly observed item. The append-only seen-log in the database is the only
// state between runs; a run itself is stateless.
package monitor

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/mmcdole/gofeed"
	"github.com/subhubsl/subhub/lib/mailer"
	"github.com/subhubsl/subhub/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// perFeedLimit bounds the items considered per source per run.
const perFeedLimit = 5

// Status classifies one feed item within a run summary.
type Status string

const (
	StatusNotified    Status = "Notified"
	StatusAlreadySeen Status = "Already Seen"
	StatusEmailFailed Status = "Email Failed"
	StatusError       Status = "Error"
)

// Outcome is one line of a run summary.
type Outcome struct {
	Site   string `json:"site"`
	GUID   string `json:"guid,omitempty"`
	Title  string `json:"title,omitempty"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Source is one external site to watch.
type Source struct {
	Name string
	URL  string
}

// Dispatcher sends the new-article notification. Satisfied by the mailer.
type Dispatcher interface {
	NotifyNewArticle(ctx context.Context, site, title, link string) mailer.Result
}

type Monitor struct {
	db         *gorm.DB
	sources    []Source
	dispatcher Dispatcher
	parser     *gofeed.Parser
	logger     *slog.Logger
}

func New(db *gorm.DB, sources []Source, dispatcher Dispatcher, logger *slog.Logger) *Monitor {
	return &Monitor{
		db:         db,
		sources:    sources,
		dispatcher: dispatcher,
		parser:     gofeed.NewParser(),
		logger:     logger,
	}
}

// Run walks every configured source once and returns the per-item outcomes.
// A source that fails to fetch or parse is recorded and skipped; it never
// aborts the rest of the run.
func (m *Monitor) Run(ctx context.Context) []Outcome {
	var outcomes []Outcome

	for _, source := range m.sources {
		feed, err := m.parser.ParseURLWithContext(source.URL, ctx)
		if err != nil {
			m.logger.Error("feed fetch failed",
				slog.String("site", source.Name),
				slog.Any("error", err))
			outcomes = append(outcomes, Outcome{
				Site:   source.Name,
				Status: StatusError,
				Error:  err.Error(),
			})
			continue
		}

		items := feed.Items
		if len(items) > perFeedLimit {
			items = items[:perFeedLimit]
		}

		for _, item := range items {
			outcomes = append(outcomes, m.process(ctx, source, item))
		}
	}

	return outcomes
}

// process handles a single feed item: dedup against the seen-log, notify,
// and append only after a successful send so failures retry next run.
func (m *Monitor) process(ctx context.Context, source Source, item *gofeed.Item) Outcome {
	// Stable dedup key: guid, falling back to link. If a site rewrites the
	// link for the same article this double-notifies; inherited limitation.
	key := item.GUID
	if key == "" {
		key = item.Link
	}

	outcome := Outcome{Site: source.Name, GUID: key, Title: item.Title}

	seen, err := m.isSeen(ctx, key)
	if err != nil {
		outcome.Status = StatusError
		outcome.Error = err.Error()
		return outcome
	}
	if seen {
		outcome.Status = StatusAlreadySeen
		return outcome
	}

	result := m.dispatcher.NotifyNewArticle(ctx, source.Name, item.Title, item.Link)
	if !result.Sent() {
		outcome.Status = StatusEmailFailed
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		} else {
			outcome.Error = "notifications disabled"
		}
		return outcome
	}

	if err := m.markSeen(ctx, source.Name, key, item); err != nil {
		outcome.Status = StatusError
		outcome.Error = err.Error()
		return outcome
	}

	m.logger.Info("notified about new article",
		slog.String("site", source.Name),
		slog.String("title", item.Title))
	outcome.Status = StatusNotified
	return outcome
}

func (m *Monitor) isSeen(ctx context.Context, key string) (bool, error) {
	var count int64
	err := m.db.WithContext(ctx).
		Model(&models.ExternalUpdate{}).
		Where("guid = ?", key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check seen-log: %w", err)
	}
	return count > 0, nil
}

func (m *Monitor) markSeen(ctx context.Context, site, key string, item *gofeed.Item) error {
	record := models.ExternalUpdate{
		Site:  site,
		GUID:  key,
		Title: item.Title,
		Link:  item.Link,
	}
	// The unique index on guid resolves a concurrent double-run.
	err := m.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to append seen-log: %w", err)
	}
	return nil
}
