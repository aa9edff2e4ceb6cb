package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/normalize"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	url           TEXT UNIQUE NOT NULL,
	source        TEXT NOT NULL,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL,
	norm_company  TEXT NOT NULL,
	location      TEXT NOT NULL DEFAULT '',
	work_type     TEXT NOT NULL DEFAULT '',
	salary_min    INTEGER NOT NULL DEFAULT 0,
	salary_max    INTEGER NOT NULL DEFAULT 0,
	description   TEXT NOT NULL DEFAULT '',
	requirements  TEXT NOT NULL DEFAULT '[]',
	posted_date   TIMESTAMP,
	scraped_at    TIMESTAMP NOT NULL,
	dedup_key     TEXT NOT NULL,
	duplicate_of  TEXT REFERENCES jobs(id),
	match_score   REAL NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'new',
	notes         TEXT NOT NULL DEFAULT '',
	fit_score     REAL,
	fit_rationale TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_jobs_dedup_key    ON jobs(dedup_key);
CREATE INDEX IF NOT EXISTS idx_jobs_norm_company ON jobs(norm_company);
CREATE INDEX IF NOT EXISTS idx_jobs_scraped_at   ON jobs(scraped_at);
CREATE INDEX IF NOT EXISTS idx_jobs_duplicate_of ON jobs(duplicate_of);

CREATE TABLE IF NOT EXISTS search_runs (
	id               TEXT PRIMARY KEY,
	run_at           TIMESTAMP NOT NULL,
	sources          TEXT NOT NULL,
	jobs_found       INTEGER NOT NULL,
	new_jobs         INTEGER NOT NULL,
	duplicates       INTEGER NOT NULL,
	duration_seconds REAL NOT NULL,
	errors           TEXT NOT NULL DEFAULT '{}'
);`

// Ensure SQLiteStore implements model.JobStore.
var _ model.JobStore = (*SQLiteStore)(nil)

// SQLiteStore persists jobs and run summaries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const jobColumns = `id, url, source, title, company, location, work_type,
	salary_min, salary_max, description, requirements, posted_date, scraped_at,
	dedup_key, duplicate_of, match_score, status, notes, fit_score, fit_rationale`

// GetByID returns the job with the given ID, or (nil, nil) if absent.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.StoredJob, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job %s: %w", id, err)
	}
	return &job, nil
}

// FindByDedupKey returns canonical records sharing key, excluding the given
// source. These are the high-confidence duplicate candidates.
func (s *SQLiteStore) FindByDedupKey(ctx context.Context, key, excludeSource string) ([]model.StoredJob, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+` FROM jobs
		WHERE dedup_key = ? AND source != ? AND duplicate_of IS NULL`,
		key, excludeSource,
	)
	if err != nil {
		return nil, fmt.Errorf("finding by dedup key: %w", err)
	}
	return collectJobs(rows)
}

// FindRecentByCompany returns up to limit of the most recently scraped
// canonical records whose normalized company equals normCompany, excluding
// the given source. This backs the fuzzy cross-check window.
func (s *SQLiteStore) FindRecentByCompany(ctx context.Context, normCompany, excludeSource string, limit int) ([]model.StoredJob, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+` FROM jobs
		WHERE norm_company = ? AND source != ? AND duplicate_of IS NULL
		ORDER BY scraped_at DESC LIMIT ?`,
		normCompany, excludeSource, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("finding recent by company: %w", err)
	}
	return collectJobs(rows)
}

// Insert persists a new job record in a single transaction. Inserting an
// existing ID is an error; re-observations go through TouchScrapedAt instead.
func (s *SQLiteStore) Insert(ctx context.Context, job model.StoredJob) error {
	reqs, err := json.Marshal(job.Requirements)
	if err != nil {
		return fmt.Errorf("marshal requirements: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, url, source, title, company, norm_company, location,
			work_type, salary_min, salary_max, description, requirements, posted_date,
			scraped_at, dedup_key, duplicate_of, match_score, status, notes, fit_rationale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.URL, job.Source, job.Title, job.Company,
		normalize.Company(job.Company), job.Location, job.WorkType,
		job.SalaryMin, job.SalaryMax, job.Description, string(reqs),
		nullableTime(job.PostedDate), job.ScrapedAt, job.DedupKey,
		nullableString(job.DuplicateOf), job.MatchScore,
		defaultString(job.Status, "new"), job.Notes, job.FitRationale,
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	return nil
}

// TouchScrapedAt refreshes a job's scraped_at to now: the "still listed"
// signal for re-observed URLs.
func (s *SQLiteStore) TouchScrapedAt(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE jobs SET scraped_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touching scraped_at for %s: %w", id, err)
	}
	return nil
}

// SetFitScore records the scoring hook's result on a job.
func (s *SQLiteStore) SetFitScore(ctx context.Context, id string, score float64, rationale string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET fit_score = ?, fit_rationale = ? WHERE id = ?",
		score, rationale, id,
	)
	if err != nil {
		return fmt.Errorf("setting fit score for %s: %w", id, err)
	}
	return nil
}

// ListCanonical returns all canonical records, most recently scraped first.
func (s *SQLiteStore) ListCanonical(ctx context.Context) ([]model.StoredJob, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE duplicate_of IS NULL ORDER BY scraped_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing canonical jobs: %w", err)
	}
	return collectJobs(rows)
}

// AppendRunSummary records one completed ingestion run.
func (s *SQLiteStore) AppendRunSummary(ctx context.Context, run model.RunSummary) error {
	errsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_runs (id, run_at, sources, jobs_found, new_jobs, duplicates, duration_seconds, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunAt, strings.Join(run.Sources, ","),
		run.JobsFound, run.NewJobs, run.Duplicates,
		run.Duration.Seconds(), string(errsJSON),
	)
	if err != nil {
		return fmt.Errorf("appending run summary: %w", err)
	}
	return nil
}

// ListRunSummaries returns the most recent run summaries, newest first.
func (s *SQLiteStore) ListRunSummaries(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_at, sources, jobs_found, new_jobs, duplicates, duration_seconds, errors
		FROM search_runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run summaries: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var (
			r        model.RunSummary
			sources  string
			seconds  float64
			errsJSON string
		)
		if err := rows.Scan(&r.ID, &r.RunAt, &sources, &r.JobsFound, &r.NewJobs, &r.Duplicates, &seconds, &errsJSON); err != nil {
			return nil, fmt.Errorf("scanning run summary: %w", err)
		}
		if sources != "" {
			r.Sources = strings.Split(sources, ",")
		}
		r.Duration = time.Duration(seconds * float64(time.Second))
		if err := json.Unmarshal([]byte(errsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal run errors: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.StoredJob, error) {
	var (
		j           model.StoredJob
		reqs        string
		postedDate  sql.NullTime
		duplicateOf sql.NullString
		fitScore    sql.NullFloat64
	)
	err := row.Scan(
		&j.ID, &j.URL, &j.Source, &j.Title, &j.Company, &j.Location, &j.WorkType,
		&j.SalaryMin, &j.SalaryMax, &j.Description, &reqs, &postedDate, &j.ScrapedAt,
		&j.DedupKey, &duplicateOf, &j.MatchScore, &j.Status, &j.Notes, &fitScore, &j.FitRationale,
	)
	if err != nil {
		return model.StoredJob{}, err
	}

	if err := json.Unmarshal([]byte(reqs), &j.Requirements); err != nil {
		return model.StoredJob{}, fmt.Errorf("unmarshal requirements: %w", err)
	}
	if postedDate.Valid {
		t := postedDate.Time
		j.PostedDate = &t
	}
	j.DuplicateOf = duplicateOf.String
	if fitScore.Valid {
		v := fitScore.Float64
		j.FitScore = &v
	}
	return j, nil
}

func collectJobs(rows *sql.Rows) ([]model.StoredJob, error) {
	defer rows.Close()

	var jobs []model.StoredJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
