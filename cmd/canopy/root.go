package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danilopena0/canopy/internal/config"
	"github.com/danilopena0/canopy/internal/ingest"
	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/notify"
	"github.com/danilopena0/canopy/internal/ratelimit"
	"github.com/danilopena0/canopy/internal/score"
	"github.com/danilopena0/canopy/internal/scraper"
	"github.com/danilopena0/canopy/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Job posting ingestion and deduplication",
	Long:  "Canopy scrapes job postings from configured sources, deduplicates them across sources, and keeps one canonical record per logical job.",
	// Default to `run` so that `canopy` with no args does a one-shot ingestion.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: CANOPY_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > CANOPY_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("CANOPY_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notify.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notify.NewLogNotifier(logger)
	}
}

// setupScorer builds the LLM scorer, or nil when scoring is disabled.
func setupScorer(cfg *config.Config, logger *slog.Logger) (model.Scorer, error) {
	if !cfg.Scoring.Enabled {
		return nil, nil
	}

	profilePath := cfg.Scoring.ProfilePath
	if profilePath == "" {
		profilePath = score.ProfilePathNear(cfg.Database.Path)
	}
	profile, err := score.LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}

	provider := score.NewOpenAIProvider(
		cfg.Scoring.BaseURL,
		cfg.Scoring.APIKey,
		cfg.Scoring.Model,
		&http.Client{Timeout: cfg.Scoring.Timeout},
	)
	logger.Info("scoring enabled", "model", cfg.Scoring.Model, "profile", profilePath)
	return score.NewLLMScorer(provider, profile, score.FitScoreTemplate, logger), nil
}

func createScraper(src config.SourceConfig, httpClient *http.Client, limiter *ratelimit.SourceLimiter, logger *slog.Logger) (model.Scraper, bool) {
	switch src.Type {
	case "greenhouse":
		return scraper.NewGreenhouseScraper(src.Name, src.BoardToken, src.Company, httpClient, limiter, logger), true
	case "lever":
		return scraper.NewLeverScraper(src.Name, src.CompanySlug, src.Company, httpClient, limiter, logger), true
	case "hebcareers":
		return scraper.NewHEBCareersScraper(src.Name, httpClient, limiter, logger), true
	case "jobfeed":
		return scraper.NewJobFeedScraper(src.Name, src.FeedURL, src.Company, httpClient, limiter, logger), true
	default:
		logger.Warn("unsupported source type, skipping", "source", src.Name, "type", src.Type)
		return nil, false
	}
}

// buildScrapers instantiates one scraper per enabled source, all sharing the
// rate limiter, and returns them with the source names in config order.
func buildScrapers(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.Scraper, []string) {
	limiter := ratelimit.NewSourceLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.SourceOverrides)
	logger.Info("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	var scrapers []model.Scraper
	var names []string
	for _, src := range cfg.EnabledSources() {
		s, ok := createScraper(src, httpClient, limiter, logger)
		if !ok {
			continue
		}
		scrapers = append(scrapers, s)
		names = append(names, src.Name)
		logger.Info("registered source", "name", src.Name, "type", src.Type)
	}
	return scrapers, names
}

// buildOrchestrator wires the full pipeline from config. The returned store
// must be closed by the caller.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger) (*ingest.Orchestrator, *store.SQLiteStore, []string, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	scorer, err := setupScorer(cfg, logger)
	if err != nil {
		sqlStore.Close()
		return nil, nil, nil, err
	}

	notifier := setupNotifier(cfg, httpClient, logger)
	scrapers, names := buildScrapers(cfg, httpClient, logger)

	orch := ingest.New(scrapers, sqlStore, scorer, notifier, cfg.Dedup.IngestConfig(), logger)
	return orch, sqlStore, names, nil
}
