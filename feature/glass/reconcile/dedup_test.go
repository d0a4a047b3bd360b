package reconcile

import (
	"context"
	"testing"
	"time"

	"glass-tracker/feature/glass/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_RemovesDuplicatesWithinBatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53100")

	res, err := e.IngestDeliveryBatch(ctx, delivery("rack",
		dline("53100", "1", 1000, 2),
		dline("53100", "1", 1000, 2),
		dline("53100", "2", 1000, 2),
		dline("53100", "1", 1001, 2),
	))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Inserted)
	assert.Equal(t, 1, res.DuplicatesRemoved)
	assert.Equal(t, 6, mustOrder(t, e, "53100").DeliveredGlassCount)

	// Converged: a second pass finds nothing.
	again, err := e.DedupBatch(ctx, models.KindDeliveryItem, res.BatchID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Duplicates)
	assert.Equal(t, 0, again.Deleted)
}

func TestDedupBatch_OrderItemKeyIgnoresPosition(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.IngestGlassOrderBatch(ctx, glassOrder("po",
		GlassOrderItemInput{OrderNumber: "53200", Position: "1", WidthMm: 500, HeightMm: 500, Composition: "4/16/4", Quantity: 1},
		GlassOrderItemInput{OrderNumber: "53200", Position: "2", WidthMm: 500, HeightMm: 500, Composition: "4/16/4", Quantity: 1},
		GlassOrderItemInput{OrderNumber: "53200", Position: "3", WidthMm: 500, HeightMm: 500, Composition: "6/12/6", Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, res.DuplicatesRemoved)
	assert.Equal(t, int64(2), countRows(t, e.db, &models.GlassOrderItem{}, ""))
}

func TestDedupBatch_KeepsEarliestAndRecomputes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53300")

	batch := models.GlassDelivery{SourceRef: "manual"}
	require.NoError(t, e.db.Create(&batch).Error)

	t0 := time.Now().Add(-time.Hour)
	rows := []models.GlassDeliveryItem{
		{GlassDeliveryID: batch.ID, OrderNumber: "53300", Position: "1", WidthMm: 10, HeightMm: 10, Quantity: 3,
			MatchStatus: models.MatchMatched, MatchedOrderNumber: "53300", MatchReason: ReasonExact, CreatedAt: t0.Add(2 * time.Minute)},
		{GlassDeliveryID: batch.ID, OrderNumber: "53300", Position: "1", WidthMm: 10, HeightMm: 10, Quantity: 3,
			MatchStatus: models.MatchMatched, MatchedOrderNumber: "53300", MatchReason: ReasonExact, CreatedAt: t0},
		{GlassDeliveryID: batch.ID, OrderNumber: "53300", Position: "1", WidthMm: 10, HeightMm: 10, Quantity: 3,
			MatchStatus: models.MatchMatched, MatchedOrderNumber: "53300", MatchReason: ReasonExact, CreatedAt: t0},
	}
	require.NoError(t, e.db.Create(&rows).Error)

	_, err := e.Recompute(ctx, "53300")
	require.NoError(t, err)
	require.Equal(t, 9, mustOrder(t, e, "53300").DeliveredGlassCount)

	dry, err := e.DedupBatch(ctx, models.KindDeliveryItem, batch.ID, true)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 1, dry.Groups)
	assert.Equal(t, 2, dry.Duplicates)
	assert.Equal(t, 0, dry.Deleted)
	assert.Equal(t, int64(3), countRows(t, e.db, &models.GlassDeliveryItem{}, ""))

	res, err := e.DedupBatch(ctx, models.KindDeliveryItem, batch.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, []string{"53300"}, res.Orders())
	assert.Equal(t, 1, res.Settle.Recomputed)

	var kept models.GlassDeliveryItem
	require.NoError(t, e.db.First(&kept).Error)
	assert.Equal(t, rows[1].ID, kept.ID, "earliest created, lowest id wins")
	assert.Equal(t, 3, mustOrder(t, e, "53300").DeliveredGlassCount)
}

func TestDedupBatch_Errors(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.DedupBatch(context.Background(), models.KindDeliveryItem, 42, false)
	assert.ErrorIs(t, err, ErrBatchNotFound)

	_, err = e.DedupBatch(context.Background(), models.ItemKind("pallet"), 1, false)
	assert.ErrorIs(t, err, ErrInvalidFact)
}

func TestDedupAll(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for _, ref := range []string{"a", "b", "c"} {
		batch := models.GlassDelivery{SourceRef: ref}
		require.NoError(t, e.db.Create(&batch).Error)
		require.NoError(t, e.db.Create(&[]models.GlassDeliveryItem{
			{GlassDeliveryID: batch.ID, OrderNumber: "53400", Position: "1", Quantity: 1, MatchStatus: models.MatchPending},
			{GlassDeliveryID: batch.ID, OrderNumber: "53400", Position: "1", Quantity: 1, MatchStatus: models.MatchPending},
		}).Error)
	}

	res, err := e.DedupAll(ctx, models.KindDeliveryItem, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 3, res.Deleted)
	assert.Equal(t, int64(3), countRows(t, e.db, &models.GlassDeliveryItem{}, ""))

	res, err = e.DedupAll(ctx, models.KindDeliveryItem, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deleted)
}
