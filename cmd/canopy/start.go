package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/schedule"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the ingestion pipeline on a schedule until interrupted",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
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

	req := model.RunRequest{
		Sources: names,
		Params: model.SearchParams{
			Location: cfg.Search.Location,
			Keywords: cfg.Search.Keywords,
			MaxPages: cfg.Search.MaxPages,
		},
		AutoScore: cfg.Scoring.Enabled,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := schedule.New(orch, req, cfg.Schedule.Spec, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("canopy started", "schedule", cfg.Schedule.Spec, "sources", len(names))

	<-ctx.Done()

	logger.Info("shutting down")
	sched.Stop()
	logger.Info("goodbye")
	return nil
}
