package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/normalize"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScraper emits a fixed set of records, or fails outright.
type fakeScraper struct {
	name string
	jobs []model.RawJob
	err  error
}

func (f *fakeScraper) Source() string { return f.name }

func (f *fakeScraper) Scrape(_ context.Context, _ model.SearchParams, emit func(model.RawJob) error) error {
	if f.err != nil {
		return f.err
	}
	for _, j := range f.jobs {
		if err := emit(j); err != nil {
			return err
		}
	}
	return nil
}

// memStore is an in-memory JobStore for orchestrator tests.
type memStore struct {
	mu        sync.Mutex
	jobs      map[string]model.StoredJob
	order     []string
	touches   map[string]int
	runs      []model.RunSummary
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    make(map[string]model.StoredJob),
		touches: make(map[string]int),
	}
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.StoredJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, nil
}

func (m *memStore) FindByDedupKey(_ context.Context, key, excludeSource string) ([]model.StoredJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StoredJob
	for _, id := range m.order {
		j := m.jobs[id]
		if j.DedupKey == key && j.Source != excludeSource && j.Canonical() {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) FindRecentByCompany(_ context.Context, normCompany, excludeSource string, limit int) ([]model.StoredJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StoredJob
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		j := m.jobs[m.order[i]]
		if j.Source != excludeSource && j.Canonical() && normalize.Company(j.Company) == normCompany {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, job model.StoredJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("duplicate id %s", job.ID)
	}
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	return nil
}

func (m *memStore) TouchScrapedAt(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("no job %s", id)
	}
	j.ScrapedAt = time.Now().UTC()
	m.jobs[id] = j
	m.touches[id]++
	return nil
}

func (m *memStore) SetFitScore(_ context.Context, id string, score float64, rationale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("no job %s", id)
	}
	j.FitScore = &score
	j.FitRationale = rationale
	m.jobs[id] = j
	return nil
}

func (m *memStore) ListCanonical(_ context.Context) ([]model.StoredJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StoredJob
	for _, id := range m.order {
		if j := m.jobs[id]; j.Canonical() {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) AppendRunSummary(_ context.Context, run model.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *memStore) get(id string) (model.StoredJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return j, ok
}

// fakeScorer scores every job with a fixed result, optionally failing for
// specific titles.
type fakeScorer struct {
	score     float64
	failTitle string
	calls     int
}

func (f *fakeScorer) Score(_ context.Context, job model.StoredJob) (model.ScoreResult, error) {
	f.calls++
	if f.failTitle != "" && job.Title == f.failTitle {
		return model.ScoreResult{}, errors.New("llm unavailable")
	}
	return model.ScoreResult{Score: f.score, Rationale: "fits"}, nil
}

// fakeNotifier records what it was asked to deliver.
type fakeNotifier struct {
	jobs []model.StoredJob
	err  error
}

func (f *fakeNotifier) Notify(jobs []model.StoredJob) error {
	f.jobs = append(f.jobs, jobs...)
	return f.err
}

func rawJob(url, source, title, company, location string) model.RawJob {
	return model.RawJob{URL: url, Source: source, Title: title, Company: company, Location: location}
}

func newTestOrchestrator(store model.JobStore, scrapers ...model.Scraper) *Orchestrator {
	return New(scrapers, store, nil, nil, DefaultConfig(), discardLogger())
}

func TestRun_SameURLTwice_OnlyTouchesScrapedAt(t *testing.T) {
	job := rawJob("https://acme.example.com/jobs/1", "greenhouse", "Data Scientist", "Acme", "Austin, TX")
	store := newMemStore()
	orch := newTestOrchestrator(store, &fakeScraper{name: "greenhouse", jobs: []model.RawJob{job, job}})

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"greenhouse"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.count() != 1 {
		t.Fatalf("expected exactly 1 stored job, got %d", store.count())
	}
	if summary.JobsFound != 2 {
		t.Errorf("expected jobs_found 2, got %d", summary.JobsFound)
	}
	if summary.NewJobs != 1 {
		t.Errorf("expected new_jobs 1, got %d", summary.NewJobs)
	}
	if summary.Duplicates != 0 {
		t.Errorf("expected 0 duplicates, got %d", summary.Duplicates)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for id, n := range store.touches {
		if n != 1 {
			t.Errorf("expected 1 touch for %s, got %d", id, n)
		}
	}
	if len(store.touches) != 1 {
		t.Errorf("expected the re-observed job to be touched once")
	}
}

func TestRun_CrossSourceDuplicate_LinkMode(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "greenhouse", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "greenhouse", "Machine Learning Engineer", "Acme Inc", "Austin, TX"),
		}},
		&fakeScraper{name: "lever", jobs: []model.RawJob{
			rawJob("https://b.example.com/2", "lever", "ML Engineer", "Acme", "Austin"),
		}},
	)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"greenhouse", "lever"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.NewJobs != 1 {
		t.Errorf("expected 1 new job, got %d", summary.NewJobs)
	}
	if summary.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", summary.Duplicates)
	}
	if store.count() != 2 {
		t.Fatalf("expected 2 stored records in link mode, got %d", store.count())
	}

	canonical, err := store.ListCanonical(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(canonical) != 1 {
		t.Fatalf("expected exactly 1 canonical record, got %d", len(canonical))
	}
	if canonical[0].Source != "greenhouse" {
		t.Errorf("expected first-seen source to be canonical, got %s", canonical[0].Source)
	}

	store.mu.Lock()
	var link *model.StoredJob
	for _, id := range store.order {
		j := store.jobs[id]
		if !j.Canonical() {
			link = &j
		}
	}
	store.mu.Unlock()

	if link == nil {
		t.Fatal("expected a linked duplicate record")
	}
	if link.DuplicateOf != canonical[0].ID {
		t.Errorf("duplicate_of = %s, want %s", link.DuplicateOf, canonical[0].ID)
	}
	if link.MatchScore <= 0 {
		t.Errorf("expected confirming similarity stored on the link, got %v", link.MatchScore)
	}
	if store.touches[canonical[0].ID] != 1 {
		t.Errorf("expected canonical record refreshed on duplicate, got %d touches", store.touches[canonical[0].ID])
	}
}

func TestRun_CrossSourceDuplicate_SkipMode(t *testing.T) {
	store := newMemStore()
	cfg := DefaultConfig()
	cfg.DuplicateMode = ModeSkip
	orch := New([]model.Scraper{
		&fakeScraper{name: "greenhouse", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "greenhouse", "Machine Learning Engineer", "Acme", "Austin, TX"),
		}},
		&fakeScraper{name: "lever", jobs: []model.RawJob{
			rawJob("https://b.example.com/2", "lever", "ML Engineer", "Acme", "Austin, TX"),
		}},
	}, store, nil, nil, cfg, discardLogger())

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"greenhouse", "lever"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.count() != 1 {
		t.Fatalf("expected 1 stored record in skip mode, got %d", store.count())
	}
	if summary.Duplicates != 1 {
		t.Errorf("expected 1 duplicate counted, got %d", summary.Duplicates)
	}
}

func TestRun_FuzzyTier_CatchesDivergedKeys(t *testing.T) {
	// Identical normalized titles, but different cities give the records
	// different dedup keys. The same-company fuzzy cross-check still links.
	store := newMemStore()
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "greenhouse", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "greenhouse", "Senior Data Scientist", "Acme", "Austin, TX"),
		}},
		&fakeScraper{name: "lever", jobs: []model.RawJob{
			rawJob("https://b.example.com/2", "lever", "Sr. Data Scientist", "Acme", "Dallas, TX"),
		}},
	)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"greenhouse", "lever"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NewJobs != 1 || summary.Duplicates != 1 {
		t.Errorf("expected 1 new + 1 duplicate, got %d new, %d duplicates", summary.NewJobs, summary.Duplicates)
	}
}

func TestRun_DifferentJobsSameCompany_NotMerged(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "greenhouse", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "greenhouse", "Data Scientist", "Acme", "Austin, TX"),
		}},
		&fakeScraper{name: "lever", jobs: []model.RawJob{
			rawJob("https://b.example.com/2", "lever", "Product Manager", "Acme", "Austin, TX"),
		}},
	)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"greenhouse", "lever"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NewJobs != 2 {
		t.Errorf("expected 2 independent canonical jobs, got %d new", summary.NewJobs)
	}
	if summary.Duplicates != 0 {
		t.Errorf("expected 0 duplicates, got %d", summary.Duplicates)
	}
}

func TestRun_SourceFailureIsIsolated(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "broken", err: errors.New("connection refused")},
		&fakeScraper{name: "greenhouse", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "greenhouse", "Data Scientist", "Acme", ""),
		}},
	)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"broken", "greenhouse"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.NewJobs != 1 {
		t.Errorf("expected healthy source to still ingest, got %d new", summary.NewJobs)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("expected exactly 1 error entry, got %v", summary.Errors)
	}
	if _, ok := summary.Errors["broken"]; !ok {
		t.Errorf("expected error keyed by failed source name, got %v", summary.Errors)
	}
}

func TestRun_ThreeJobsThenFailingSource(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", ""),
			rawJob("https://a.example.com/2", "A", "Data Engineer", "Beta", ""),
			rawJob("https://a.example.com/3", "A", "ML Engineer", "Gamma", ""),
		}},
		&fakeScraper{name: "B", err: errors.New("boom")},
	)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.JobsFound != 3 {
		t.Errorf("expected jobs_found 3, got %d", summary.JobsFound)
	}
	if summary.NewJobs != 3 {
		t.Errorf("expected new_jobs 3, got %d", summary.NewJobs)
	}
	if len(summary.Errors) != 1 || summary.Errors["B"] == "" {
		t.Errorf("expected single error for source B, got %v", summary.Errors)
	}
}

func TestRun_UnknownSourceRecorded(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"nope"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Errors["nope"] == "" {
		t.Errorf("expected error entry for unknown source, got %v", summary.Errors)
	}
}

func TestRun_StoreFailureAbortsSourceButNotRun(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("disk full")
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", ""),
		}},
		&fakeScraper{name: "B", jobs: []model.RawJob{
			rawJob("https://b.example.com/1", "B", "Data Engineer", "Beta", ""),
		}},
	)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Errors) != 2 {
		t.Errorf("expected both sources to record the store failure, got %v", summary.Errors)
	}
	if summary.NewJobs != 0 {
		t.Errorf("expected 0 new jobs, got %d", summary.NewJobs)
	}
}

func TestRun_FilterSkipsNonMatchingRecords(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", "Austin, TX"),
			rawJob("https://a.example.com/2", "A", "Account Executive", "Acme", "Austin, TX"),
		}},
	)

	req := model.RunRequest{
		Sources: []string{"A"},
		Params:  model.SearchParams{Keywords: []string{"data"}},
	}
	summary, err := orch.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.JobsFound != 2 {
		t.Errorf("expected both produced records counted, got %d", summary.JobsFound)
	}
	if summary.NewJobs != 1 {
		t.Errorf("expected only the matching record ingested, got %d", summary.NewJobs)
	}
}

func TestRun_AutoScore(t *testing.T) {
	store := newMemStore()
	scorer := &fakeScorer{score: 82}
	orch := New([]model.Scraper{
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", ""),
			rawJob("https://a.example.com/2", "A", "Data Engineer", "Beta", ""),
		}},
	}, store, scorer, nil, DefaultConfig(), discardLogger())

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"A"}, AutoScore: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scorer.calls != 2 {
		t.Errorf("expected 2 scoring calls, got %d", scorer.calls)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("expected no errors, got %v", summary.Errors)
	}

	canonical, _ := store.ListCanonical(context.Background())
	for _, j := range canonical {
		if j.FitScore == nil || *j.FitScore != 82 {
			t.Errorf("expected fit score 82 persisted for %s", j.Title)
		}
	}
}

func TestRun_ScoringFailureRecordedNotFatal(t *testing.T) {
	store := newMemStore()
	scorer := &fakeScorer{score: 60, failTitle: "Data Engineer"}
	orch := New([]model.Scraper{
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", ""),
			rawJob("https://a.example.com/2", "A", "Data Engineer", "Beta", ""),
		}},
	}, store, scorer, nil, DefaultConfig(), discardLogger())

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"A"}, AutoScore: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Errors["scoring"] == "" {
		t.Errorf("expected a scoring error entry, got %v", summary.Errors)
	}
	if summary.NewJobs != 2 {
		t.Errorf("scoring failure must not affect ingestion counts, got %d", summary.NewJobs)
	}

	canonical, _ := store.ListCanonical(context.Background())
	scored := 0
	for _, j := range canonical {
		if j.FitScore != nil {
			scored++
		}
	}
	if scored != 1 {
		t.Errorf("expected the non-failing job still scored, got %d scored", scored)
	}
}

func TestRun_NotifierReceivesNewJobsOnly(t *testing.T) {
	store := newMemStore()
	notifier := &fakeNotifier{}
	orch := New([]model.Scraper{
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", "Austin, TX"),
		}},
		&fakeScraper{name: "B", jobs: []model.RawJob{
			rawJob("https://b.example.com/2", "B", "Data Scientist", "Acme", "Austin, TX"),
		}},
	}, store, nil, notifier, DefaultConfig(), discardLogger())

	if _, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"A", "B"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.jobs) != 1 {
		t.Fatalf("expected only the canonical creation notified, got %d", len(notifier.jobs))
	}
	if notifier.jobs[0].Source != "A" {
		t.Errorf("expected the first-seen record notified, got %s", notifier.jobs[0].Source)
	}
}

func TestRun_NotifyFailureRecorded(t *testing.T) {
	store := newMemStore()
	notifier := &fakeNotifier{err: errors.New("webhook down")}
	orch := New([]model.Scraper{
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", ""),
		}},
	}, store, nil, notifier, DefaultConfig(), discardLogger())

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"A"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Errors["notify"] == "" {
		t.Errorf("expected notify error entry, got %v", summary.Errors)
	}
}

func TestRun_AppendsRunSummary(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store,
		&fakeScraper{name: "A", jobs: []model.RawJob{
			rawJob("https://a.example.com/1", "A", "Data Scientist", "Acme", ""),
		}},
	)

	summary, err := orch.Run(context.Background(), model.RunRequest{Sources: []string{"A"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ID == "" {
		t.Error("expected a run ID")
	}
	if len(store.runs) != 1 {
		t.Fatalf("expected 1 persisted run summary, got %d", len(store.runs))
	}
	if store.runs[0].ID != summary.ID {
		t.Errorf("persisted summary ID %s, want %s", store.runs[0].ID, summary.ID)
	}
}
