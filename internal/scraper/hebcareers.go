package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/ratelimit"
)

const hebBaseURL = "https://careers.heb.com"

var (
	// Matches internal posting links like /jobs/123456, not the external
	// "Apply Now" links.
	hebJobLinkRe = regexp.MustCompile(`^/jobs/\d+`)

	// Matches annual salaries like "USD $72,200.00/Yr" or "$141,500.00/Yr".
	hebSalaryRe = regexp.MustCompile(`(?i)(?:USD\s*)?\$([0-9,]+(?:\.\d{2})?)/Yr`)
)

// Ensure HEBCareersScraper implements model.Scraper.
var _ model.Scraper = (*HEBCareersScraper)(nil)

// HEBCareersScraper scrapes the H-E-B careers site. The listing page links to
// one detail page per posting; each detail page is fetched through the shared
// rate limiter so the site sees the same pacing as an API source.
type HEBCareersScraper struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *ratelimit.SourceLimiter
	logger  *slog.Logger
}

// NewHEBCareersScraper creates a scraper for the H-E-B careers site.
func NewHEBCareersScraper(name string, client *http.Client, limiter *ratelimit.SourceLimiter, logger *slog.Logger) *HEBCareersScraper {
	return &HEBCareersScraper{
		name:    name,
		baseURL: hebBaseURL,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

func (s *HEBCareersScraper) Source() string { return s.name }

// Scrape walks the search result pages up to params.MaxPages and emits one
// record per posting, fetching each detail page for description and salary.
// A detail fetch failure falls back to the listing-page fields rather than
// dropping the posting.
func (s *HEBCareersScraper) Scrape(ctx context.Context, params model.SearchParams, emit func(model.RawJob) error) error {
	maxPages := params.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	seen := make(map[string]bool)

	for page := 1; page <= maxPages; page++ {
		searchURL := s.searchURL(params, page)

		body, err := fetch(ctx, s.client, s.limiter, s.logger, s.name, searchURL)
		if err != nil {
			return fmt.Errorf("heb listing page %d: %w", page, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("heb listing page %d: %w", page, err)
		}

		links := s.collectJobLinks(doc, seen)
		if len(links) == 0 {
			break
		}

		for _, link := range links {
			raw, err := s.scrapeDetail(ctx, link)
			if err != nil {
				return err
			}
			if err := emit(raw); err != nil {
				return err
			}
		}
	}

	return nil
}

// jobLink carries what the listing page knows about one posting.
type jobLink struct {
	url      string
	title    string
	location string
}

func (s *HEBCareersScraper) searchURL(params model.SearchParams, page int) string {
	q := url.Values{}
	if params.Location != "" {
		q.Set("location", params.Location)
	}
	if len(params.Keywords) > 0 {
		q.Set("keywords", strings.Join(params.Keywords, " "))
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	u := s.baseURL + "/jobs"
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// collectJobLinks extracts posting links from a listing page, skipping
// apply-now links and URLs already seen on earlier pages.
func (s *HEBCareersScraper) collectJobLinks(doc *goquery.Document, seen map[string]bool) []jobLink {
	var links []jobLink

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !hebJobLinkRe.MatchString(href) {
			return
		}

		text := strings.TrimSpace(sel.Text())
		switch strings.ToLower(text) {
		case "apply now", "apply":
			return
		}

		// Query params vary per session; strip them so the same posting
		// hashes to the same record.
		clean := href
		if i := strings.Index(clean, "?"); i >= 0 {
			clean = clean[:i]
		}
		full := s.baseURL + clean
		if seen[full] {
			return
		}
		seen[full] = true

		title := text
		if title == "" {
			title = "Unknown Position"
		}

		links = append(links, jobLink{
			url:      full,
			title:    title,
			location: s.cardLocation(sel),
		})
	})

	return links
}

// cardLocation looks for a location label in the link's enclosing job card.
func (s *HEBCareersScraper) cardLocation(sel *goquery.Selection) string {
	card := sel.Closest("[class*='card'], [class*='result'], [class*='item']")
	if card.Length() == 0 {
		return ""
	}
	loc := strings.TrimSpace(card.Find("[class*='location']").First().Text())
	return strings.TrimSpace(strings.TrimPrefix(loc, "Location"))
}

func (s *HEBCareersScraper) scrapeDetail(ctx context.Context, link jobLink) (model.RawJob, error) {
	raw := model.RawJob{
		URL:      link.url,
		Source:   s.name,
		Title:    link.title,
		Company:  "H-E-B",
		Location: link.location,
	}

	body, err := fetch(ctx, s.client, s.limiter, s.logger, s.name, link.url)
	if err != nil {
		if ctx.Err() != nil {
			return raw, ctx.Err()
		}
		s.logger.Warn("heb detail fetch failed, using listing fields", "url", link.url, "error", err)
		return raw, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("heb detail parse failed, using listing fields", "url", link.url, "error", err)
		return raw, nil
	}

	if title := strings.TrimSpace(doc.Find("h1").First().Text()); len(title) > 5 && !strings.Contains(title, "H-E-B") {
		raw.Title = title
	}

	if loc := strings.TrimSpace(doc.Find("[class*='location']").First().Text()); loc != "" {
		raw.Location = loc
	}

	for _, selector := range []string{".job-description", "[class*='description']", "main", "[role='main']"} {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if len(text) > len(raw.Description) {
			raw.Description = text
		}
	}

	if salary, ok := extractSalary(doc.Text()); ok {
		// A single figure is posted rather than a range.
		raw.SalaryMin = salary
		raw.SalaryMax = salary
	}

	return raw, nil
}

// extractSalary pulls an annual salary figure out of page text.
func extractSalary(text string) (int, bool) {
	m := hebSalaryRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	if i := strings.Index(digits, "."); i >= 0 {
		digits = digits[:i]
	}
	salary, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return salary, true
}
