package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danilopena0/canopy/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a test notification to verify the notifier setup",
	RunE:  runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(debug)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	notifier := setupNotifier(cfg, httpClient, logger)

	if err := notify.SendTestMessage(notifier); err != nil {
		logger.Error("test notification failed", "error", err)
		os.Exit(1)
	}
	logger.Info("test notification sent", "type", cfg.Notification.Type)
	return nil
}
