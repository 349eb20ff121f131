package main

import (
	"github.com/okian/taixiu/pkg/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taixiuctl",
		Short:         "Tools for the TAI/XIU prediction service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			return logger.SetLevelString(level)
		},
	}
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newPredictCmd())
	root.AddCommand(newFeedCmd())
	root.AddCommand(newWatchCmd())
	return root
}
