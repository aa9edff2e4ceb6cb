package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	RunE:  listSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func listSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	for _, s := range cfg.Sources {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-20s %-12s %-10s %s\n", s.Name, s.Type, state, s.Company)
	}
	return nil
}
