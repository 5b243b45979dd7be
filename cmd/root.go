package cmd

import (
	"fmt"
	"os"

	"waypoint-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "waypoint-sync",
	Short: "Waypoint UGC Sync Service",
	Long: `Waypoint Sync mirrors community-created maps, prefabs and modes from
the Halo Waypoint catalogue into a relational store.
It runs incremental syncs on a schedule and reconciles deleted assets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with development timestamps for CLI failures
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
