package cmd

import (
	"context"
	"fmt"

	"waypoint-sync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the database and the storage bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, true, true)
	},
}

// structureCmd represents the integrity structure command
var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Check and fix the report folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, false, false)
	},
}

// skiplistCmd represents the integrity skiplist command
var skiplistCmd = &cobra.Command{
	Use:   "skiplist",
	Short: "Check the skip list object",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, true, false)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the database schema against the sync models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(structureCmd, skiplistCmd, schemaCmd)

	structureCmd.Flags().BoolVar(&fixFlag, "fix", false, "Fix missing folders")
}

func runIntegrityChecks(ctx context.Context, runStructure, runSkipList, runSchema bool) error {
	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()
	logg := e.logger

	svc := integrity.NewService(e.storage, e.db, integrity.Options{
		Bucket:         e.cfg.Storage.Bucket,
		Folders:        []string{e.cfg.UGC.ReportPrefix},
		SkipListObject: e.cfg.UGC.SkipListObject,
	}, logg)

	storageEnabled := e.storage != nil
	if (runStructure || runSkipList) && !storageEnabled {
		logg.Info("Object storage disabled, skipping bucket checks")
	}

	if runStructure && storageEnabled {
		logg.Info("Checking folder structure...")
		missing, err := svc.CheckStructure(ctx)
		if err != nil {
			return fmt.Errorf("structure check failed: %w", err)
		}

		if len(missing) == 0 {
			logg.Info("Structure is intact.")
		} else {
			logg.Warn("Missing folders detected", zap.Strings("missing", missing))

			if fixFlag {
				logg.Info("Fixing missing folders...")
				if err := svc.FixStructure(ctx, missing); err != nil {
					return fmt.Errorf("failed to fix structure: %w", err)
				}
				logg.Info("Structure fixed successfully.")
			} else {
				logg.Info("Run 'integrity structure --fix' to create missing folders.")
			}
		}
	}

	if runSkipList && storageEnabled {
		logg.Info("Checking skip list...")
		report, err := svc.CheckSkipList(ctx)
		if err != nil {
			return fmt.Errorf("skip list check failed: %w", err)
		}
		if report.Found {
			logg.Info("Skip list is readable.", zap.String("object", report.Object), zap.Int("assets", report.Assets))
			if len(report.Invalid) > 0 {
				logg.Warn("Skip list has entries that are not asset IDs.", zap.Strings("invalid", report.Invalid))
			}
		} else {
			logg.Warn("Skip list object not found", zap.String("object", report.Object))
		}
	}

	if runSchema {
		logg.Info("Checking database schema...")
		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if report.Matched {
			logg.Info("Database schema matches the sync models.")
		} else {
			logg.Warn("Database schema mismatches found. Run 'migrate' to fix them.")
			for table, tblReport := range report.Tables {
				if tblReport.Status == "ok" {
					continue
				}
				if !tblReport.Exists {
					logg.Warn("Missing Table", zap.String("table", table))
					continue
				}
				if len(tblReport.MissingColumns) > 0 {
					logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tblReport.MissingColumns))
				}
				if len(tblReport.TypeMismatches) > 0 {
					logg.Warn("Type Mismatches", zap.String("table", table), zap.Strings("mismatches", tblReport.TypeMismatches))
				}
			}
			for _, msg := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", msg))
			}
		}
	}

	return nil
}
