package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "epi",
	Short: "SIR model fitting and incident analysis pipeline",
	Long:  "Imports public COVID-19 and NYPD incident datasets, fits an SIR compartment model to weekly case counts, projects forward, and renders reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
