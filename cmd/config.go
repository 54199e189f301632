package cmd

import (
	"github.com/bnema/lagmon/internal/config"
	"github.com/bnema/lagmon/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage lagmon configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Tracking]")
		logger.Infof("  Dispatch Timeout: %d ms", cfg.Tracking.DispatchTimeoutMs)
		logger.Infof("  Timeout Multiplier: %.2f", cfg.Tracking.TimeoutMultiplier)
		logger.Infof("  Maturity Threshold: %s", cfg.Tracking.MaturityThreshold())

		logger.Info("\n[Resample]")
		logger.Infof("  Min Delta: %d ms", cfg.Resample.MinDeltaMs)
		logger.Infof("  Max Delta: %d ms", cfg.Resample.MaxDeltaMs)
		logger.Infof("  Max Prediction: %d ms", cfg.Resample.MaxPredictionMs)
		logger.Infof("  Latency Offset: %d ms", cfg.Resample.LatencyOffsetMs)

		logger.Info("\n[Store]")
		logger.Infof("  Path: %s", cfg.Store.Path)

		logger.Info("\n[Logging]")
		logger.Infof("  Log Level: %s", cfg.Logging.LogLevel)

		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	rootCmd.AddCommand(configCmd)
}
