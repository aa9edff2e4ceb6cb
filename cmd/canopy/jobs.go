package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danilopena0/canopy/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List canonical jobs in the database",
	RunE:  runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
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

	jobs, err := sqlStore.ListCanonical(cmd.Context())
	if err != nil {
		logger.Error("failed to list jobs", "error", err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs stored yet")
		return nil
	}

	for _, j := range jobs {
		fit := "-"
		if j.FitScore != nil {
			fit = fmt.Sprintf("%.0f", *j.FitScore)
		}
		fmt.Printf("%-30s %-20s %-20s fit=%-4s %s\n", truncate(j.Title, 30), truncate(j.Company, 20), truncate(j.Location, 20), fit, j.URL)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
