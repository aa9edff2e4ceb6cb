package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/ratelimit"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// leverCategories represents the categories object in a Lever posting.
type leverCategories struct {
	Team       string `json:"team"`
	Department string `json:"department"`
	Location   string `json:"location"`
	Commitment string `json:"commitment"`
}

// leverJob represents a single posting in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
}

// Ensure LeverScraper implements model.Scraper.
var _ model.Scraper = (*LeverScraper)(nil)

// LeverScraper produces postings from the Lever public postings API.
type LeverScraper struct {
	name        string
	companySlug string
	companyName string
	baseURL     string
	client      *http.Client
	limiter     *ratelimit.SourceLimiter
	logger      *slog.Logger
}

// NewLeverScraper creates a scraper for one Lever board.
func NewLeverScraper(name, companySlug, companyName string, client *http.Client, limiter *ratelimit.SourceLimiter, logger *slog.Logger) *LeverScraper {
	return &LeverScraper{
		name:        name,
		companySlug: companySlug,
		companyName: companyName,
		baseURL:     leverBaseURL,
		client:      client,
		limiter:     limiter,
		logger:      logger,
	}
}

func (s *LeverScraper) Source() string { return s.name }

// Scrape fetches the board and emits one record per posting.
func (s *LeverScraper) Scrape(ctx context.Context, _ model.SearchParams, emit func(model.RawJob) error) error {
	url := fmt.Sprintf("%s/%s?mode=json", s.baseURL, s.companySlug)

	body, err := fetch(ctx, s.client, s.limiter, s.logger, s.name, url)
	if err != nil {
		return fmt.Errorf("lever fetch for %s: %w", s.companySlug, err)
	}

	var postings []leverJob
	if err := json.Unmarshal(body, &postings); err != nil {
		return fmt.Errorf("lever fetch for %s: %w", s.companySlug, err)
	}

	for _, lj := range postings {
		if lj.HostedURL == "" || lj.Text == "" {
			s.logger.Debug("skipping malformed lever posting", "source", s.name, "id", lj.ID)
			continue
		}

		raw := model.RawJob{
			URL:         lj.HostedURL,
			Source:      s.name,
			Title:       lj.Text,
			Company:     s.companyName,
			Location:    lj.Categories.Location,
			WorkType:    lj.WorkplaceType,
			Description: lj.DescriptionPlain,
		}

		if lj.CreatedAt > 0 {
			t := time.UnixMilli(lj.CreatedAt).UTC()
			raw.PostedDate = &t
		}

		if err := emit(raw); err != nil {
			return err
		}
	}

	return nil
}
