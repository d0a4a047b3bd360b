package checks

import (
	"context"
	"fmt"

	"glass-tracker/feature/glass/models"
	"glass-tracker/feature/glass/reconcile"
)

// Deduper sweeps every batch of a kind for duplicate line items.
type Deduper interface {
	DedupAll(ctx context.Context, kind models.ItemKind, dryRun bool) (reconcile.DedupAllResult, error)
}

// DuplicateReport counts duplicate line items per kind.
type DuplicateReport struct {
	Kinds      map[models.ItemKind]reconcile.DedupAllResult `json:"kinds"`
	Duplicates int                                          `json:"duplicates"`
	Deleted    int                                          `json:"deleted"`
	Fixed      bool                                         `json:"fixed"`
}

// CheckDuplicates runs the dedup sweep over both item kinds. Without fix it only counts.
func CheckDuplicates(ctx context.Context, d Deduper, fix bool) (*DuplicateReport, error) {
	report := &DuplicateReport{
		Kinds: make(map[models.ItemKind]reconcile.DedupAllResult, 2),
		Fixed: fix,
	}
	for _, kind := range []models.ItemKind{models.KindOrderItem, models.KindDeliveryItem} {
		res, err := d.DedupAll(ctx, kind, !fix)
		report.Kinds[kind] = res
		report.Duplicates += res.Duplicates
		report.Deleted += res.Deleted
		if err != nil {
			return report, fmt.Errorf("duplicate sweep over %s items: %w", kind, err)
		}
	}
	return report, nil
}
