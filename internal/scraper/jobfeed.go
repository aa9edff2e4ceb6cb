package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/ratelimit"
)

// Ensure JobFeedScraper implements model.Scraper.
var _ model.Scraper = (*JobFeedScraper)(nil)

// JobFeedScraper produces postings from an RSS or Atom job feed. Feeds carry
// no structured company field, so the company name comes from configuration.
type JobFeedScraper struct {
	name        string
	feedURL     string
	companyName string
	parser      *gofeed.Parser
	limiter     *ratelimit.SourceLimiter
	logger      *slog.Logger
}

// NewJobFeedScraper creates a scraper for one RSS/Atom job feed.
func NewJobFeedScraper(name, feedURL, companyName string, client *http.Client, limiter *ratelimit.SourceLimiter, logger *slog.Logger) *JobFeedScraper {
	parser := gofeed.NewParser()
	parser.Client = client
	return &JobFeedScraper{
		name:        name,
		feedURL:     feedURL,
		companyName: companyName,
		parser:      parser,
		limiter:     limiter,
		logger:      logger,
	}
}

func (s *JobFeedScraper) Source() string { return s.name }

// Scrape parses the feed and emits one record per item. When keywords are
// provided only items whose title contains one of them are emitted; feeds mix
// many roles and the downstream filter only sees what the scraper produces.
func (s *JobFeedScraper) Scrape(ctx context.Context, params model.SearchParams, emit func(model.RawJob) error) error {
	if err := s.limiter.Wait(ctx, s.name); err != nil {
		return err
	}

	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return fmt.Errorf("feed fetch %s: %w", s.feedURL, err)
	}

	for _, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			s.logger.Debug("skipping malformed feed item", "source", s.name, "guid", item.GUID)
			continue
		}
		if !matchesKeywords(item.Title, params.Keywords) {
			continue
		}

		raw := model.RawJob{
			URL:         item.Link,
			Source:      s.name,
			Title:       item.Title,
			Company:     s.companyName,
			Description: item.Description,
		}

		switch {
		case item.PublishedParsed != nil:
			raw.PostedDate = item.PublishedParsed
		case item.UpdatedParsed != nil:
			raw.PostedDate = item.UpdatedParsed
		}

		if err := emit(raw); err != nil {
			return err
		}
	}

	return nil
}

func matchesKeywords(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(title)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
