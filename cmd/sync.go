package cmd

import (
	"fmt"

	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncKinds           []string
	syncSkipRecommended bool
)

// syncCmd runs one sync in the foreground.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one incremental sync",
	Long: `Walks the newest assets of each kind down to the stored watermark,
ingests them and refreshes the recommended flag.

Examples:
  # Every kind plus the recommended project
  sync

  # Maps only
  sync --kind map --skip-recommended`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncKinds, "kind", nil, "Asset kinds to sync (map, prefab, mode)")
	syncCmd.Flags().BoolVar(&syncSkipRecommended, "skip-recommended", false, "Skip the recommended project phase")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts := ugcsync.Options{SkipRecommended: syncSkipRecommended}
	for _, raw := range syncKinds {
		kind, err := waypoint.ParseAssetKind(raw)
		if err != nil {
			return err
		}
		opts.Kinds = append(opts.Kinds, kind)
	}

	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	p, err := e.pipeline(ctx)
	if err != nil {
		return fmt.Errorf("failed to build sync pipeline: %w", err)
	}

	report, err := p.Service.RunSync(ctx, opts)
	if report != nil {
		printSyncReport(e.logger, report)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// printSyncReport logs one line per phase.
func printSyncReport(l *zap.Logger, report *ugcsync.RunReport) {
	if report.Aborted != "" {
		l.Warn("Sync aborted", zap.String("run_id", report.RunID), zap.String("reason", report.Aborted))
		return
	}

	for _, p := range report.Phases {
		fields := []zap.Field{
			zap.String("phase", p.Phase),
			zap.String("outcome", string(p.Outcome)),
			zap.Int("pages", p.Pages),
			zap.Int("items", p.Items),
			zap.Int("ingested", p.Ingested),
			zap.Int("skipped", p.Skipped),
			zap.String("duration", p.Duration),
		}
		if p.Reason != "" {
			fields = append(fields, zap.String("reason", p.Reason))
		}
		if p.Error != nil {
			fields = append(fields, zap.String("error", p.Error.Message))
		}
		l.Info("Sync phase", fields...)
	}

	l.Info("Sync report",
		zap.String("run_id", report.RunID),
		zap.String("profile", report.Profile),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
}
