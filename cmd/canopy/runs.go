package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danilopena0/canopy/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent ingestion run summaries",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(debug)

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	summaries, err := sqlStore.ListRunSummaries(cmd.Context(), runsLimit)
	if err != nil {
		logger.Error("failed to list runs", "error", err)
		os.Exit(1)
	}
	if len(summaries) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("%s  found=%d new=%d dup=%d errors=%d  (%s, %d sources)\n",
			s.RunAt.Local().Format(time.DateTime),
			s.JobsFound, s.NewJobs, s.Duplicates, len(s.Errors),
			s.Duration.Round(time.Millisecond), len(s.Sources))
	}
	return nil
}
