package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danilopena0/canopy/internal/model"
)

var (
	runSources   []string
	runAutoScore bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass across all enabled sources",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runSources, "sources", nil, "only run these sources (default: all enabled)")
	runCmd.Flags().BoolVar(&runAutoScore, "score", false, "score new jobs against the fit profile after ingestion")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(debug)

	orch, sqlStore, names, err := buildOrchestrator(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := model.RunRequest{
		Sources: names,
		Params: model.SearchParams{
			Location: cfg.Search.Location,
			Keywords: cfg.Search.Keywords,
			MaxPages: cfg.Search.MaxPages,
		},
		AutoScore: runAutoScore || cfg.Scoring.Enabled,
	}
	if len(runSources) > 0 {
		req.Sources = runSources
	}

	summary, err := orch.Run(ctx, req)
	if err != nil {
		logger.Error("run aborted", "error", err)
		os.Exit(1)
	}

	printSummary(summary)
	return nil
}

func printSummary(s model.RunSummary) {
	fmt.Printf("run %s finished in %s\n", s.ID, s.Duration.Round(time.Millisecond))
	fmt.Printf("  sources:    %d\n", len(s.Sources))
	fmt.Printf("  found:      %d\n", s.JobsFound)
	fmt.Printf("  new:        %d\n", s.NewJobs)
	fmt.Printf("  duplicates: %d\n", s.Duplicates)
	if len(s.Errors) > 0 {
		fmt.Printf("  errors:\n")
		for name, msg := range s.Errors {
			fmt.Printf("    %s: %s\n", name, msg)
		}
	}
}
