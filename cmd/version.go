package cmd

import (
	"github.com/bnema/lagmon/internal/logger"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		logger.Infof("lagmon %s", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
