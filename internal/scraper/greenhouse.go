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

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Location    greenhouseLocation `json:"location"`
	AbsoluteURL string             `json:"absolute_url"`
	UpdatedAt   string             `json:"updated_at"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Ensure GreenhouseScraper implements model.Scraper.
var _ model.Scraper = (*GreenhouseScraper)(nil)

// GreenhouseScraper produces postings from the Greenhouse public boards API.
type GreenhouseScraper struct {
	name        string
	boardToken  string
	companyName string
	baseURL     string
	client      *http.Client
	limiter     *ratelimit.SourceLimiter
	logger      *slog.Logger
}

// NewGreenhouseScraper creates a scraper for one Greenhouse board.
func NewGreenhouseScraper(name, boardToken, companyName string, client *http.Client, limiter *ratelimit.SourceLimiter, logger *slog.Logger) *GreenhouseScraper {
	return &GreenhouseScraper{
		name:        name,
		boardToken:  boardToken,
		companyName: companyName,
		baseURL:     greenhouseBaseURL,
		client:      client,
		limiter:     limiter,
		logger:      logger,
	}
}

func (s *GreenhouseScraper) Source() string { return s.name }

// Scrape fetches the board and emits one record per posting. Postings
// missing a URL or title are skipped; the whole board is one request so
// MaxPages does not apply.
func (s *GreenhouseScraper) Scrape(ctx context.Context, _ model.SearchParams, emit func(model.RawJob) error) error {
	url := fmt.Sprintf("%s/%s/jobs", s.baseURL, s.boardToken)

	body, err := fetch(ctx, s.client, s.limiter, s.logger, s.name, url)
	if err != nil {
		return fmt.Errorf("greenhouse fetch for %s: %w", s.boardToken, err)
	}

	var ghResp greenhouseResponse
	if err := json.Unmarshal(body, &ghResp); err != nil {
		return fmt.Errorf("greenhouse fetch for %s: %w", s.boardToken, err)
	}

	for _, gj := range ghResp.Jobs {
		if gj.AbsoluteURL == "" || gj.Title == "" {
			s.logger.Debug("skipping malformed greenhouse posting", "source", s.name, "id", gj.ID)
			continue
		}

		raw := model.RawJob{
			URL:      gj.AbsoluteURL,
			Source:   s.name,
			Title:    gj.Title,
			Company:  s.companyName,
			Location: gj.Location.Name,
		}

		if gj.UpdatedAt != "" {
			if t, err := time.Parse(time.RFC3339, gj.UpdatedAt); err == nil {
				raw.PostedDate = &t
			}
		}

		if err := emit(raw); err != nil {
			return err
		}
	}

	return nil
}
