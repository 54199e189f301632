package cmd

import (
	"github.com/bnema/lagmon/internal/config"
	"github.com/bnema/lagmon/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "lagmon",
		Short: "Lagmon - input latency tracking and motion resampling",
		Long: `Lagmon tracks input events from dispatch through their application and
graphics completion signals to measure end-to-end latency, and resamples
motion streams against display refresh timing. Traces can be replayed
through the pipeline and the resulting timelines summarized.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			if err := config.Init(); err != nil {
				return err
			}
			if level := config.Get().Logging.LogLevel; level != "" {
				logger.SetLevel(level)
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}
