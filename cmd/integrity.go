package cmd

import (
	"fmt"
	"time"

	"glass-tracker/core/storage"
	"glass-tracker/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fixFlag     bool
	archiveFlag bool
)

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check schema, counter drift and duplicate line items",
	Long: `Runs every integrity check: the live schema against the models, duplicate line
items in import batches, and order counters against their matched items.

With --fix, duplicates are removed and drifted orders are recomputed.
With --archive, the report is uploaded to the configured bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()

		rt, err := bootstrap()
		if err != nil {
			return err
		}
		logg := rt.logger
		defer logg.Sync()

		var archive *storage.Archive
		if archiveFlag {
			client, err := storage.NewClient(rt.cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to create storage client: %w", err)
			}
			archive = storage.NewArchive(client, rt.cfg.Storage, logg)
			if err := archive.EnsureBucket(cmd.Context()); err != nil {
				return err
			}
		}

		svc := integrity.NewService(rt.engine, rt.db, archive, logg)
		logg.Info("Running integrity checks (this might take a while)...", zap.Bool("fix", fixFlag))

		report := svc.RunAll(cmd.Context(), fixFlag)
		if archive != nil {
			name, err := svc.Archive(cmd.Context(), "full", report)
			if err != nil {
				return fmt.Errorf("failed to archive report: %w", err)
			}
			report.Archived = name
		}

		if err := printJSON(cmd, report); err != nil {
			return err
		}

		logg.Info("Integrity check completed",
			zap.Bool("healthy", report.Healthy),
			zap.Duration("execution_time", time.Since(startTime)),
		)
		if !report.Healthy {
			return fmt.Errorf("integrity check found problems")
		}
		return nil
	},
}

func init() {
	integrityCmd.Flags().BoolVar(&fixFlag, "fix", false, "Remove duplicates and repair drifted counters")
	integrityCmd.Flags().BoolVar(&archiveFlag, "archive", false, "Upload the report to object storage")
	RootCmd.AddCommand(integrityCmd)
}
