package cmd

import (
	"encoding/json"
	"fmt"

	"glass-tracker/feature/glass/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dedupKind   string
	dedupDryRun bool
)

// reconcileCmd is the parent command for all reconcile operations.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run reconciliation sweeps against the database",
	Long: `Rematch the pending and unmatched backlog, recompute order counters,
or remove duplicate line items from import batches.`,
}

// rematchCmd sweeps the whole backlog once.
var rematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Rematch every pending and unmatched line item",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		res, err := rt.engine.Rematch(cmd.Context())
		if err != nil {
			return fmt.Errorf("rematch failed: %w", err)
		}
		rt.logger.Info("Rematch completed",
			zap.Int("rows", res.Summary.Rows),
			zap.Int("matched", res.Match.Matched),
			zap.Int("conflict", res.Match.Conflict),
			zap.Int("unmatched", res.Match.Unmatched),
			zap.Int("recomputed", res.Settle.Recomputed),
		)
		return printJSON(cmd, res)
	},
}

// recomputeCmd rederives counters for the named orders.
var recomputeCmd = &cobra.Command{
	Use:   "recompute <order-number>...",
	Short: "Recompute glass counters and status for orders",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		report := rt.engine.RecomputeMany(cmd.Context(), args)
		rt.logger.Info("Recompute completed",
			zap.Int("processed", report.Processed),
			zap.Int("failed", len(report.Failed)),
			zap.Int("skipped", report.Skipped),
		)
		if !report.OK() {
			return fmt.Errorf("recompute failed for %v", report.FailedKeys())
		}
		return nil
	},
}

// dedupCmd removes duplicate line items from every live batch of a kind.
var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicate line items from import batches",
	Long: `Removes rows that repeat an earlier row of the same batch. The earliest row of
each group is kept and the affected orders are recomputed.

Examples:
  # Report only
  reconcile dedup --kind delivery --dry-run

  # Remove duplicate glass order lines
  reconcile dedup --kind order`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := models.ItemKind(dedupKind)
		if !kind.Valid() {
			return fmt.Errorf("unknown kind %q (want order or delivery)", dedupKind)
		}

		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		res, err := rt.engine.DedupAll(cmd.Context(), kind, dedupDryRun)
		if err != nil {
			return fmt.Errorf("dedup failed: %w", err)
		}
		rt.logger.Info("Dedup completed",
			zap.String("kind", string(kind)),
			zap.Bool("dry_run", dedupDryRun),
			zap.Int("batches", res.Batches),
			zap.Int("duplicates", res.Duplicates),
			zap.Int("deleted", res.Deleted),
		)
		return printJSON(cmd, res)
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func init() {
	dedupCmd.Flags().StringVar(&dedupKind, "kind", string(models.KindDeliveryItem), "Item kind to deduplicate (order, delivery)")
	dedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "Report duplicates without deleting them")

	reconcileCmd.AddCommand(rematchCmd, recomputeCmd, dedupCmd)
	RootCmd.AddCommand(reconcileCmd)
}
