package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"waypoint-sync/core/reconcile"
	"waypoint-sync/feature/waypoint"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dryRunReconcile bool
	yesConfirm      bool
)

// reconcileCmd removes assets that no longer exist upstream.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <kind>",
	Short: "Reconcile stored assets of one kind against the upstream listing",
	Long: `Lists every upstream asset of the kind, probes stored assets missing
from the listing and deletes those the probe confirms are gone.
Assets whose probe fails are kept.

Examples:
  # Report only
  reconcile map --dry-run

  # Delete with interactive confirmation
  reconcile map

  # Delete with auto-confirm (non-interactive)
  reconcile prefab --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&dryRunReconcile, "dry-run", false, "Plan only, never delete")
	reconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind, err := waypoint.ParseAssetKind(args[0])
	if err != nil {
		return err
	}

	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()
	l := e.logger.With(zap.String("kind", kind.String()))

	p, err := e.pipeline(ctx)
	if err != nil {
		return fmt.Errorf("failed to build sync pipeline: %w", err)
	}

	// Step 1: Plan (always a dry run)
	l.Info("Planning reconciliation...")
	report, err := p.Service.RunReconcile(ctx, kind, reconcile.ReconcileOptions{DryRun: true})
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}
	plan := report.Plan

	// Step 2: Print report
	printReconcileReport(l, plan)

	if dryRunReconcile {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if len(plan.Actions) == 0 {
		l.Info("No actions required.")
		return nil
	}

	// Step 3: Confirm and apply
	if !confirmDestructiveAction(os.Stdin) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	l.Info("Applying actions...")
	executed, err := reconcile.ApplyPlan(ctx, p.Reconciler.Spec(kind), plan, reconcile.ReconcileOptions{Confirmed: true})
	if err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}

	l.Info("Successfully executed actions", zap.Int("count", executed))
	return nil
}

// printReconcileReport prints a formatted reconciliation report using logger.
func printReconcileReport(l *zap.Logger, plan *reconcile.ReconcilePlan) {
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.Int("store_items", s.StoreItems),
		zap.Int("upstream_items", s.UpstreamItems),
		zap.Int("candidates", s.Candidates),
		zap.Int("gone", s.Gone),
		zap.Int("exists", s.Exists),
		zap.Int("unverified", s.Unverified),
	)

	if len(plan.Actions) == 0 {
		return
	}

	l.Info("Planned actions", zap.Int("delete_actions", s.DeleteActions))

	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(in io.Reader) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
