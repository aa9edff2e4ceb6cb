package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
database:
  path: /tmp/canopy-test.db

sources:
  - name: acme-greenhouse
    type: greenhouse
    company: Acme Corp
    board_token: acme
    enabled: true
  - name: acme-lever
    type: lever
    company: Acme Corp
    company_slug: acme
    enabled: true
  - name: heb
    type: hebcareers
    enabled: false
  - name: beta-feed
    type: jobfeed
    company: Beta
    feed_url: https://beta.example.com/jobs.rss
    enabled: true

search:
  location: Austin, TX
  keywords: [data, machine learning]
  max_pages: 3

dedup:
  mode: link

rate_limit:
  min_delay: 2s
  source_overrides:
    heb: 10s

notification:
  type: log

schedule:
  spec: "@every 4h"
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Path != "/tmp/canopy-test.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if len(cfg.Sources) != 4 {
		t.Fatalf("expected 4 sources, got %d", len(cfg.Sources))
	}
	if got := cfg.EnabledSources(); len(got) != 3 {
		t.Errorf("expected 3 enabled sources, got %d", len(got))
	}
	if cfg.Search.Location != "Austin, TX" || len(cfg.Search.Keywords) != 2 || cfg.Search.MaxPages != 3 {
		t.Errorf("unexpected search config %+v", cfg.Search)
	}
	if cfg.RateLimit.MinDelay != 2*time.Second {
		t.Errorf("min_delay = %v", cfg.RateLimit.MinDelay)
	}
	if cfg.RateLimit.SourceOverrides["heb"] != 10*time.Second {
		t.Errorf("heb override = %v", cfg.RateLimit.SourceOverrides["heb"])
	}
	if cfg.Schedule.Spec != "@every 4h" {
		t.Errorf("schedule spec = %q", cfg.Schedule.Spec)
	}
}

func TestLoad_DedupDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dedup.KeyThreshold != 0.85 {
		t.Errorf("key_threshold default = %v, want 0.85", cfg.Dedup.KeyThreshold)
	}
	if cfg.Dedup.FuzzyThreshold != 0.90 {
		t.Errorf("fuzzy_threshold default = %v, want 0.90", cfg.Dedup.FuzzyThreshold)
	}
	if cfg.Dedup.RecentWindow != 50 {
		t.Errorf("recent_window default = %d, want 50", cfg.Dedup.RecentWindow)
	}

	ic := cfg.Dedup.IngestConfig()
	if string(ic.DuplicateMode) != "link" {
		t.Errorf("ingest mode = %q", ic.DuplicateMode)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("CANOPY_TEST_KEY", "sk-secret")
	content := validConfig + `
scoring:
  enabled: true
  model: gpt-4o-mini
  api_key: ${CANOPY_TEST_KEY}
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scoring.APIKey != "sk-secret" {
		t.Errorf("api_key = %q, want expanded env var", cfg.Scoring.APIKey)
	}
	if cfg.Scoring.BaseURL != defaultOpenAIBaseURL {
		t.Errorf("base_url = %q, want default", cfg.Scoring.BaseURL)
	}
	if cfg.Scoring.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", cfg.Scoring.Timeout)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "no enabled sources",
			mutate:  func(c string) string { return strings.ReplaceAll(c, "enabled: true", "enabled: false") },
			wantErr: "at least one source",
		},
		{
			name:    "bad dedup mode",
			mutate:  func(c string) string { return strings.ReplaceAll(c, "mode: link", "mode: merge") },
			wantErr: "dedup.mode",
		},
		{
			name:    "greenhouse without token",
			mutate:  func(c string) string { return strings.ReplaceAll(c, "    board_token: acme\n", "") },
			wantErr: "board_token",
		},
		{
			name:    "slack without webhook",
			mutate:  func(c string) string { return strings.ReplaceAll(c, "type: log", "type: slack") },
			wantErr: "webhook_url",
		},
		{
			name: "scoring without key",
			mutate: func(c string) string {
				return c + "\nscoring:\n  enabled: true\n  model: gpt-4o-mini\n"
			},
			wantErr: "api_key",
		},
		{
			name:    "bad duration",
			mutate:  func(c string) string { return strings.ReplaceAll(c, "min_delay: 2s", "min_delay: soon") },
			wantErr: "min_delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mutate(validConfig)))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
