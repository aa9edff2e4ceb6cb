package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danilopena0/canopy/internal/ingest"
	"github.com/danilopena0/canopy/internal/review"
	"github.com/danilopena0/canopy/internal/store"
)

var (
	dupesThreshold float64
	dupesPlain     bool
)

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Find duplicate candidates among stored canonical jobs",
	Long:  "Scans canonical jobs for groups sharing a dedup key and for similar titles within a company, without modifying anything.",
	RunE:  runDupes,
}

func init() {
	dupesCmd.Flags().Float64Var(&dupesThreshold, "threshold", ingest.DefaultFuzzyThreshold, "title similarity threshold for fuzzy candidates")
	dupesCmd.Flags().BoolVar(&dupesPlain, "plain", false, "print a plain-text summary instead of the interactive browser")
	rootCmd.AddCommand(dupesCmd)
}

func runDupes(cmd *cobra.Command, args []string) error {
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

	groups, err := ingest.FindDuplicates(cmd.Context(), sqlStore, dupesThreshold)
	if err != nil {
		logger.Error("duplicate scan failed", "error", err)
		os.Exit(1)
	}

	if dupesPlain {
		fmt.Print(review.Summarize(groups))
		return nil
	}
	return review.Run(groups)
}
