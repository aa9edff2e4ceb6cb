// Package ingest drives the ingestion runs: it pulls records out of the
// configured source scrapers, classifies each one as already-known, a
// cross-source duplicate, or a new canonical job, persists the outcome, and
// aggregates a run summary. Source failures are isolated per source and never
// abort the run.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danilopena0/canopy/internal/dedup"
	"github.com/danilopena0/canopy/internal/filter"
	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/normalize"
	"github.com/danilopena0/canopy/internal/similarity"
)

// DuplicateMode controls what happens to a record classified as a
// cross-source duplicate.
type DuplicateMode string

const (
	// ModeLink persists the duplicate with duplicate_of pointing at the
	// canonical record.
	ModeLink DuplicateMode = "link"
	// ModeSkip drops the duplicate entirely.
	ModeSkip DuplicateMode = "skip"
)

// Classification thresholds. Dedup-key agreement is corroborating evidence,
// so the key-confirmed tier accepts a lower title similarity than the fuzzy
// tier, which has only the company name to go on.
const (
	DefaultKeyThreshold   = 0.85
	DefaultFuzzyThreshold = 0.90
	DefaultRecentWindow   = 50
)

// Config tunes the classification procedure.
type Config struct {
	DuplicateMode  DuplicateMode
	KeyThreshold   float64
	FuzzyThreshold float64
	RecentWindow   int
}

// DefaultConfig returns the standard thresholds with link mode.
func DefaultConfig() Config {
	return Config{
		DuplicateMode:  ModeLink,
		KeyThreshold:   DefaultKeyThreshold,
		FuzzyThreshold: DefaultFuzzyThreshold,
		RecentWindow:   DefaultRecentWindow,
	}
}

// Orchestrator runs ingestion over a fixed set of source scrapers. It depends
// only on the scraper and store interfaces, never on concrete source types.
type Orchestrator struct {
	scrapers map[string]model.Scraper
	store    model.JobStore
	scorer   model.Scorer
	notifier model.Notifier
	cfg      Config
	keys     *keyedMutex
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an orchestrator. scorer and notifier may be nil; scoring also
// requires AutoScore on the run request.
func New(scrapers []model.Scraper, store model.JobStore, scorer model.Scorer, notifier model.Notifier, cfg Config, logger *slog.Logger) *Orchestrator {
	byName := make(map[string]model.Scraper, len(scrapers))
	for _, s := range scrapers {
		byName[s.Source()] = s
	}
	return &Orchestrator{
		scrapers: byName,
		store:    store,
		scorer:   scorer,
		notifier: notifier,
		cfg:      cfg,
		keys:     newKeyedMutex(),
		logger:   logger,
		now:      time.Now,
	}
}

// outcome is the terminal state of one record's classification.
type outcome int

const (
	outcomeKnown outcome = iota
	outcomeDuplicate
	outcomeNew
)

// Run executes one ingestion run over req.Sources in the given order and
// returns its summary. The summary is always returned, degraded or not; the
// only returned errors are context cancellation.
func (o *Orchestrator) Run(ctx context.Context, req model.RunRequest) (model.RunSummary, error) {
	start := o.now()
	summary := model.RunSummary{
		ID:      uuid.NewString(),
		RunAt:   start.UTC(),
		Sources: req.Sources,
		Errors:  make(map[string]string),
	}

	recordFilter := filter.NewSearchFilter(req.Params)
	var newJobs []model.StoredJob

	for _, name := range req.Sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		scraper, ok := o.scrapers[name]
		if !ok {
			summary.Errors[name] = fmt.Sprintf("unknown source %q", name)
			continue
		}

		o.logger.Info("scraping source", "source", name)
		sourceStart := o.now()
		found, created := 0, 0

		err := scraper.Scrape(ctx, req.Params, func(raw model.RawJob) error {
			summary.JobsFound++
			found++

			if !recordFilter.Match(raw) {
				return nil
			}

			result, stored, err := o.classify(ctx, raw)
			if err != nil {
				return err
			}
			switch result {
			case outcomeNew:
				summary.NewJobs++
				created++
				newJobs = append(newJobs, *stored)
			case outcomeDuplicate:
				summary.Duplicates++
			}
			return nil
		})
		if err != nil {
			summary.Errors[name] = err.Error()
			o.logger.Error("source failed", "source", name, "error", err)
			continue
		}

		o.logger.Info("source complete",
			"source", name,
			"found", found,
			"new", created,
			"duration", o.now().Sub(sourceStart),
		)
	}

	if req.AutoScore {
		o.scoreNewJobs(ctx, newJobs, &summary)
	}

	if o.notifier != nil && len(newJobs) > 0 {
		if err := o.notifier.Notify(newJobs); err != nil {
			summary.Errors["notify"] = err.Error()
			o.logger.Error("notification failed", "error", err)
		}
	}

	summary.Duration = o.now().Sub(start)

	if err := o.store.AppendRunSummary(ctx, summary); err != nil {
		o.logger.Error("persisting run summary failed", "run_id", summary.ID, "error", err)
	}

	o.logger.Info("run complete",
		"run_id", summary.ID,
		"found", summary.JobsFound,
		"new", summary.NewJobs,
		"duplicates", summary.Duplicates,
		"errors", len(summary.Errors),
		"duration", summary.Duration,
	)
	return summary, nil
}

// classify resolves one produced record to exactly one terminal state, in
// priority order: URL identity beats dedup-key match beats fuzzy match beats
// new. The key lookup and insert run under a per-key lock so concurrent
// records for the same logical job cannot both insert canonical rows.
func (o *Orchestrator) classify(ctx context.Context, raw model.RawJob) (outcome, *model.StoredJob, error) {
	id := dedup.JobID(raw.URL)

	existing, err := o.store.GetByID(ctx, id)
	if err != nil {
		return 0, nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	if existing != nil {
		if err := o.store.TouchScrapedAt(ctx, id); err != nil {
			return 0, nil, fmt.Errorf("touch %s: %w", id, err)
		}
		o.logger.Debug("job still listed", "id", id, "title", raw.Title)
		return outcomeKnown, existing, nil
	}

	key := dedup.Key(raw.Title, raw.Company, raw.Location)

	unlock := o.keys.Lock(key)
	defer unlock()

	// Key-confirmed tier: another source produced the same normalized
	// (title, company, city).
	candidates, err := o.store.FindByDedupKey(ctx, key, raw.Source)
	if err != nil {
		return 0, nil, fmt.Errorf("dedup key lookup: %w", err)
	}
	for _, c := range candidates {
		if sim, ok := similarity.TitleSimilarity(raw.Title, c.Title); ok && sim >= o.cfg.KeyThreshold {
			return o.recordDuplicate(ctx, raw, id, key, c, sim)
		}
	}

	// Fuzzy tier: key construction can diverge for identical jobs when city
	// extraction or abbreviation expansion differs, so cross-check recent
	// records at the same company with a stricter bar.
	if normCompany := normalize.Company(raw.Company); normCompany != "" {
		recent, err := o.store.FindRecentByCompany(ctx, normCompany, raw.Source, o.cfg.RecentWindow)
		if err != nil {
			return 0, nil, fmt.Errorf("recent company lookup: %w", err)
		}
		for _, c := range recent {
			if sim, ok := similarity.TitleSimilarity(raw.Title, c.Title); ok && sim >= o.cfg.FuzzyThreshold {
				return o.recordDuplicate(ctx, raw, id, key, c, sim)
			}
		}
	}

	stored := model.StoredJob{
		RawJob:    raw,
		ID:        id,
		DedupKey:  key,
		ScrapedAt: o.now().UTC(),
	}
	if err := o.store.Insert(ctx, stored); err != nil {
		return 0, nil, fmt.Errorf("insert %s: %w", id, err)
	}
	o.logger.Debug("new job", "id", id, "title", raw.Title, "company", raw.Company, "source", raw.Source)
	return outcomeNew, &stored, nil
}

// recordDuplicate handles a confirmed cross-source duplicate: the canonical
// record gets a still-listed refresh, and the incoming record is either
// linked to it or dropped depending on the configured mode. The confirming
// similarity is stored with the link for later audit.
func (o *Orchestrator) recordDuplicate(ctx context.Context, raw model.RawJob, id, key string, canonical model.StoredJob, sim float64) (outcome, *model.StoredJob, error) {
	if err := o.store.TouchScrapedAt(ctx, canonical.ID); err != nil {
		return 0, nil, fmt.Errorf("touch canonical %s: %w", canonical.ID, err)
	}

	o.logger.Debug("cross-source duplicate",
		"id", id,
		"canonical", canonical.ID,
		"title", raw.Title,
		"similarity", sim,
		"mode", o.cfg.DuplicateMode,
	)

	if o.cfg.DuplicateMode == ModeSkip {
		return outcomeDuplicate, nil, nil
	}

	stored := model.StoredJob{
		RawJob:      raw,
		ID:          id,
		DedupKey:    key,
		DuplicateOf: canonical.ID,
		MatchScore:  sim,
		ScrapedAt:   o.now().UTC(),
	}
	if err := o.store.Insert(ctx, stored); err != nil {
		return 0, nil, fmt.Errorf("insert duplicate %s: %w", id, err)
	}
	return outcomeDuplicate, &stored, nil
}

// scoreNewJobs runs the scoring hook over this run's canonical creations.
// Failures are collected into a single "scoring" error entry and never block
// the remaining jobs.
func (o *Orchestrator) scoreNewJobs(ctx context.Context, jobs []model.StoredJob, summary *model.RunSummary) {
	if o.scorer == nil {
		return
	}

	var failures []string
	for i := range jobs {
		result, err := o.scorer.Score(ctx, jobs[i])
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", jobs[i].Title, err))
			continue
		}
		if err := o.store.SetFitScore(ctx, jobs[i].ID, result.Score, result.Rationale); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", jobs[i].Title, err))
			continue
		}
		score := result.Score
		jobs[i].FitScore = &score
		jobs[i].FitRationale = result.Rationale
	}

	if len(failures) > 0 {
		summary.Errors["scoring"] = strings.Join(failures, "; ")
		o.logger.Warn("scoring finished with failures", "failed", len(failures), "total", len(jobs))
	}
}
