// Package config loads and validates the YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danilopena0/canopy/internal/ingest"
)

// Config is the root configuration for the Canopy pipeline.
type Config struct {
	Database     DatabaseConfig
	Sources      []SourceConfig
	Search       SearchConfig
	Dedup        DedupConfig
	RateLimit    RateLimitConfig
	Scoring      ScoringConfig
	Notification NotificationConfig
	Schedule     ScheduleConfig
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SourceConfig describes a single scrape source. Type selects the scraper
// implementation; the remaining fields are type-specific.
type SourceConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`         // "greenhouse", "lever", "hebcareers", "jobfeed"
	Company     string `yaml:"company"`      // display company name
	BoardToken  string `yaml:"board_token"`  // greenhouse
	CompanySlug string `yaml:"company_slug"` // lever
	FeedURL     string `yaml:"feed_url"`     // jobfeed
	Enabled     bool   `yaml:"enabled"`
}

// SearchConfig holds the default search params for runs.
type SearchConfig struct {
	Location string   `yaml:"location"`
	Keywords []string `yaml:"keywords"`
	MaxPages int      `yaml:"max_pages"`
}

// DedupConfig tunes the duplicate classification.
type DedupConfig struct {
	Mode           string  `yaml:"mode"` // "link" or "skip"
	KeyThreshold   float64 `yaml:"key_threshold"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	RecentWindow   int     `yaml:"recent_window"`
}

// IngestConfig converts the dedup settings into the orchestrator's config.
func (d DedupConfig) IngestConfig() ingest.Config {
	return ingest.Config{
		DuplicateMode:  ingest.DuplicateMode(d.Mode),
		KeyThreshold:   d.KeyThreshold,
		FuzzyThreshold: d.FuzzyThreshold,
		RecentWindow:   d.RecentWindow,
	}
}

// RateLimitConfig controls per-source request pacing.
type RateLimitConfig struct {
	MinDelay        time.Duration            // minimum gap between requests to the same source
	SourceOverrides map[string]time.Duration // per-source overrides
}

// ScoringConfig controls the optional LLM fit-scoring layer.
type ScoringConfig struct {
	Enabled     bool
	BaseURL     string        // defaults to https://api.openai.com/v1
	Model       string        // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey      string        // expanded from env var by Load
	ProfilePath string        // defaults to profile.json next to the database
	Timeout     time.Duration // per-request timeout
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// ScheduleConfig drives daemon mode.
type ScheduleConfig struct {
	Spec string `yaml:"spec"` // cron spec, e.g. "@every 6h"
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultDatabasePath  = "canopy.db"
	defaultScheduleSpec  = "@every 6h"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	Database     DatabaseConfig     `yaml:"database"`
	Sources      []SourceConfig     `yaml:"sources"`
	Search       SearchConfig       `yaml:"search"`
	Dedup        rawDedupConfig     `yaml:"dedup"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Scoring      rawScoringConfig   `yaml:"scoring"`
	Notification NotificationConfig `yaml:"notification"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
}

type rawDedupConfig struct {
	Mode           string   `yaml:"mode"`
	KeyThreshold   *float64 `yaml:"key_threshold"`
	FuzzyThreshold *float64 `yaml:"fuzzy_threshold"`
	RecentWindow   *int     `yaml:"recent_window"`
}

type rawRateLimitConfig struct {
	MinDelay        string            `yaml:"min_delay"`
	SourceOverrides map[string]string `yaml:"source_overrides"`
}

type rawScoringConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	ProfilePath string `yaml:"profile_path"`
	Timeout     string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Environment variable references like ${OPENAI_API_KEY} are
// expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	dedupMode := raw.Dedup.Mode
	if dedupMode == "" {
		dedupMode = string(ingest.ModeLink)
	}

	keyThreshold := ingest.DefaultKeyThreshold
	if raw.Dedup.KeyThreshold != nil {
		keyThreshold = *raw.Dedup.KeyThreshold
	}
	fuzzyThreshold := ingest.DefaultFuzzyThreshold
	if raw.Dedup.FuzzyThreshold != nil {
		fuzzyThreshold = *raw.Dedup.FuzzyThreshold
	}
	recentWindow := ingest.DefaultRecentWindow
	if raw.Dedup.RecentWindow != nil {
		recentWindow = *raw.Dedup.RecentWindow
	}

	minDelay := 5 * time.Second
	if raw.RateLimit.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.RateLimit.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.min_delay %q: %w", raw.RateLimit.MinDelay, err)
		}
	}

	sourceOverrides := make(map[string]time.Duration)
	for source, rawDelay := range raw.RateLimit.SourceOverrides {
		d, err := time.ParseDuration(rawDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.source_overrides[%q]: %w", source, err)
		}
		sourceOverrides[source] = d
	}

	scoringTimeout := 30 * time.Second
	if raw.Scoring.Timeout != "" {
		scoringTimeout, err = time.ParseDuration(raw.Scoring.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse scoring.timeout %q: %w", raw.Scoring.Timeout, err)
		}
	}

	scoringBaseURL := raw.Scoring.BaseURL
	if scoringBaseURL == "" {
		scoringBaseURL = defaultOpenAIBaseURL
	}

	dbPath := raw.Database.Path
	if dbPath == "" {
		dbPath = defaultDatabasePath
	}

	scheduleSpec := raw.Schedule.Spec
	if scheduleSpec == "" {
		scheduleSpec = defaultScheduleSpec
	}

	cfg := &Config{
		Database: DatabaseConfig{Path: dbPath},
		Sources:  raw.Sources,
		Search:   raw.Search,
		Dedup: DedupConfig{
			Mode:           dedupMode,
			KeyThreshold:   keyThreshold,
			FuzzyThreshold: fuzzyThreshold,
			RecentWindow:   recentWindow,
		},
		RateLimit: RateLimitConfig{
			MinDelay:        minDelay,
			SourceOverrides: sourceOverrides,
		},
		Scoring: ScoringConfig{
			Enabled:     raw.Scoring.Enabled,
			BaseURL:     scoringBaseURL,
			Model:       raw.Scoring.Model,
			APIKey:      raw.Scoring.APIKey,
			ProfilePath: raw.Scoring.ProfilePath,
			Timeout:     scoringTimeout,
		},
		Notification: raw.Notification,
		Schedule:     ScheduleConfig{Spec: scheduleSpec},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnabledSources returns the enabled source configs in file order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func validate(cfg *Config) error {
	enabled := 0
	seen := make(map[string]bool)
	for _, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("every source needs a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true

		switch s.Type {
		case "greenhouse":
			if s.BoardToken == "" {
				return fmt.Errorf("source %q: board_token is required for greenhouse", s.Name)
			}
		case "lever":
			if s.CompanySlug == "" {
				return fmt.Errorf("source %q: company_slug is required for lever", s.Name)
			}
		case "jobfeed":
			if s.FeedURL == "" {
				return fmt.Errorf("source %q: feed_url is required for jobfeed", s.Name)
			}
		case "hebcareers":
		default:
			return fmt.Errorf("source %q: unknown type %q", s.Name, s.Type)
		}

		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	switch cfg.Dedup.Mode {
	case string(ingest.ModeLink), string(ingest.ModeSkip):
	default:
		return fmt.Errorf("dedup.mode must be %q or %q, got %q", ingest.ModeLink, ingest.ModeSkip, cfg.Dedup.Mode)
	}
	if cfg.Dedup.KeyThreshold <= 0 || cfg.Dedup.KeyThreshold > 1 {
		return fmt.Errorf("dedup.key_threshold must be in (0, 1], got %v", cfg.Dedup.KeyThreshold)
	}
	if cfg.Dedup.FuzzyThreshold < cfg.Dedup.KeyThreshold || cfg.Dedup.FuzzyThreshold > 1 {
		return fmt.Errorf("dedup.fuzzy_threshold must be in [key_threshold, 1], got %v", cfg.Dedup.FuzzyThreshold)
	}
	if cfg.Dedup.RecentWindow <= 0 {
		return fmt.Errorf("dedup.recent_window must be positive, got %d", cfg.Dedup.RecentWindow)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
	}

	if cfg.Scoring.Enabled {
		if cfg.Scoring.APIKey == "" {
			return fmt.Errorf("scoring.api_key is required when scoring.enabled is true")
		}
		if cfg.Scoring.Model == "" {
			return fmt.Errorf("scoring.model is required when scoring.enabled is true")
		}
	}

	return nil
}
