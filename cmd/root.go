package cmd

import (
	"fmt"
	"os"

	"glass-tracker/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "glass-tracker",
	Short: "Glass pane reconciliation service",
	Long: `Glass Tracker reconciles glass orders and deliveries against production orders.
It derives per-order glass counters and keeps a worklist of discrepancies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format at debug level: CLI errors should be readable, not JSON.
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
