package model

import (
	"context"
	"time"
)

// RawJob is a single posting as produced by a source scraper, before any
// classification or persistence. Immutable once produced.
type RawJob struct {
	URL          string     // apply/detail link; unique within a source
	Source       string     // scraper source name
	Title        string     // job title as published
	Company      string     // company name as published
	Location     string     // free-form location string, may be empty
	WorkType     string     // "remote", "hybrid", "onsite", or empty
	SalaryMin    int        // annual, 0 if unknown
	SalaryMax    int        // annual, 0 if unknown
	Description  string     // plain-text description, may be empty
	Requirements []string   // extracted requirement lines, may be empty
	PostedDate   *time.Time // nullable (not all sources provide this)
}

// StoredJob is a RawJob after classification, as held in the record store.
type StoredJob struct {
	RawJob

	ID          string    // content hash of URL
	DedupKey    string    // hash of normalized (title, company, city?)
	DuplicateOf string    // canonical job ID, empty for canonical records
	MatchScore  float64   // title similarity that confirmed the duplicate link
	ScrapedAt   time.Time // refreshed on every re-observation of the URL

	// Review-workflow fields, owned by downstream tooling.
	Status       string
	Notes        string
	FitScore     *float64
	FitRationale string
}

// Canonical reports whether this record represents its logical job (as
// opposed to being a cross-source duplicate link).
func (j StoredJob) Canonical() bool { return j.DuplicateOf == "" }

// SearchParams are the caller-supplied parameters forwarded to each scraper.
type SearchParams struct {
	Location string
	Keywords []string
	MaxPages int
}

// RunRequest describes one ingestion run invocation.
type RunRequest struct {
	Sources   []string // processed in this order
	Params    SearchParams
	AutoScore bool
}

// RunSummary is the append-only record of a single ingestion run.
type RunSummary struct {
	ID         string
	RunAt      time.Time
	Sources    []string
	JobsFound  int // records produced by scrapers
	NewJobs    int // canonical records created
	Duplicates int // records linked (or skipped) as cross-source duplicates
	Duration   time.Duration
	Errors     map[string]string // source name (or "scoring"/"notify") -> message
}

// Scraper produces the raw postings for one source. Scrape calls emit once
// per discovered posting, in discovery order. Individually malformed postings
// are skipped internally; a whole-source failure is returned as an error. A
// non-nil error from emit aborts the loop and is returned unchanged.
type Scraper interface {
	Source() string
	Scrape(ctx context.Context, params SearchParams, emit func(RawJob) error) error
}

// JobStore is the keyed record store consumed by the ingestion pipeline.
// Lookups that find nothing return (nil, nil) rather than an error.
type JobStore interface {
	GetByID(ctx context.Context, id string) (*StoredJob, error)
	// FindByDedupKey returns canonical records sharing key from sources other
	// than excludeSource.
	FindByDedupKey(ctx context.Context, key, excludeSource string) ([]StoredJob, error)
	// FindRecentByCompany returns up to limit of the most recently scraped
	// canonical records whose normalized company equals normCompany, from
	// sources other than excludeSource.
	FindRecentByCompany(ctx context.Context, normCompany, excludeSource string, limit int) ([]StoredJob, error)
	Insert(ctx context.Context, job StoredJob) error
	TouchScrapedAt(ctx context.Context, id string) error
	SetFitScore(ctx context.Context, id string, score float64, rationale string) error
	ListCanonical(ctx context.Context) ([]StoredJob, error)
	AppendRunSummary(ctx context.Context, run RunSummary) error
}

// ScoreResult is the outcome of scoring one job against the user's profile.
type ScoreResult struct {
	Score     float64 // 0-100
	Rationale string
}

// Scorer evaluates how well a stored job fits the user's profile.
type Scorer interface {
	Score(ctx context.Context, job StoredJob) (ScoreResult, error)
}

// Notifier reports newly created canonical jobs at the end of a run.
type Notifier interface {
	Notify(jobs []StoredJob) error
}

// RecordFilter decides whether a produced record is worth classifying.
type RecordFilter interface {
	Match(job RawJob) bool
}
