package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"glass-tracker/feature/glass/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Suffixed delivery for an order that only exists without the suffix.
func TestScenario_SuffixedDeliveryWithoutOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "54222")

	res, err := e.IngestDeliveryBatch(ctx, delivery("rack-54222a", dline("54222-a", "1", 1000, 4)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unmatched)

	var item models.GlassDeliveryItem
	require.NoError(t, e.db.First(&item).Error)
	assert.Equal(t, models.MatchUnmatched, item.MatchStatus)
	assert.Equal(t, ReasonNotFound, item.MatchReason)

	open := openValidations(t, e.db, "54222-a", models.ValidationMissingOrder)
	require.Len(t, open, 1)
	assert.Equal(t, 4, open[0].DeliveredQuantity)
	assert.Equal(t, models.SeverityError, open[0].Severity)

	assert.Equal(t, int64(1), countRows(t, e.db, &models.Order{}, ""), "no order may be created automatically")
	base := mustOrder(t, e, "54222")
	assert.Equal(t, 0, base.DeliveredGlassCount)
	assert.Equal(t, models.StatusNotOrdered, base.GlassOrderStatus)
}

// Re-importing the same delivery batch.
func TestScenario_ReimportedDelivery(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53896")

	var olines []GlassOrderItemInput
	var dlines []DeliveryItemInput
	for i := 0; i < 12; i++ {
		olines = append(olines, oline("53896", 1000+i, 1))
		dlines = append(dlines, dline("53896", fmt.Sprint(i+1), 1000+i, 1))
	}
	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po-53896", olines...))
	require.NoError(t, err)

	first, err := e.IngestDeliveryBatch(ctx, delivery("rack-53896", dlines...))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, 12, first.Matched)

	before := mustOrder(t, e, "53896")
	assert.Equal(t, 12, before.OrderedGlassCount)
	assert.Equal(t, 12, before.DeliveredGlassCount)
	assert.Equal(t, models.StatusDelivered, before.GlassOrderStatus)
	require.NotNil(t, before.GlassDeliveryDate)

	again, err := e.IngestDeliveryBatch(ctx, delivery("rack-53896", dlines...))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.BatchID, again.BatchID)
	assert.Equal(t, 12, again.DuplicatesRemoved)
	assert.Equal(t, 0, again.Matched)

	after := mustOrder(t, e, "53896")
	assert.Equal(t, 12, after.DeliveredGlassCount)
	assert.Equal(t, models.StatusDelivered, after.GlassOrderStatus)
	assert.True(t, before.GlassDeliveryDate.Equal(*after.GlassDeliveryDate))
	assert.Equal(t, int64(12), countRows(t, e.db, &models.GlassDeliveryItem{}, ""))
}

// Partial delivery opens a shortage that the completing delivery resolves.
func TestScenario_ShortageResolvesOnCompletion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53714")

	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po-53714", oline("53714", 1200, 20)))
	require.NoError(t, err)
	assert.Equal(t, models.StatusOrdered, mustOrder(t, e, "53714").GlassOrderStatus)

	_, err = e.IngestDeliveryBatch(ctx, delivery("rack-a", dline("53714", "1", 1200, 15)))
	require.NoError(t, err)

	o := mustOrder(t, e, "53714")
	assert.Equal(t, 15, o.DeliveredGlassCount)
	assert.Equal(t, models.StatusPartiallyDelivered, o.GlassOrderStatus)

	shortage := openValidations(t, e.db, "53714", models.ValidationShortage)
	require.Len(t, shortage, 1)
	assert.Equal(t, 20, shortage[0].OrderedQuantity)
	assert.Equal(t, 15, shortage[0].DeliveredQuantity)
	assert.Equal(t, 20, shortage[0].ExpectedQuantity)
	assert.Equal(t, models.SeverityWarning, shortage[0].Severity)
	assert.Contains(t, shortage[0].Message, "5 outstanding")

	_, err = e.IngestDeliveryBatch(ctx, delivery("rack-b", dline("53714", "1", 1200, 5)))
	require.NoError(t, err)

	o = mustOrder(t, e, "53714")
	assert.Equal(t, 20, o.DeliveredGlassCount)
	assert.Equal(t, models.StatusDelivered, o.GlassOrderStatus)
	assert.Empty(t, openValidations(t, e.db, "53714", models.ValidationShortage))

	var resolved models.GlassOrderValidation
	require.NoError(t, e.db.First(&resolved, shortage[0].ID).Error)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, ResolvedByRecompute, resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.True(t, shortage[0].CreatedAt.Equal(resolved.CreatedAt), "detection time is preserved")
}

// A duplicate rack scan over-delivers.
func TestScenario_SurplusFromDuplicateScan(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53627")

	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po-53627", oline("53627", 900, 10)))
	require.NoError(t, err)
	_, err = e.IngestDeliveryBatch(ctx, delivery("scan-1", dline("53627", "1", 900, 10)))
	require.NoError(t, err)
	_, err = e.IngestDeliveryBatch(ctx, delivery("scan-2", dline("53627", "1", 900, 3)))
	require.NoError(t, err)

	o := mustOrder(t, e, "53627")
	assert.Equal(t, 13, o.DeliveredGlassCount)
	assert.Equal(t, models.StatusOverDelivered, o.GlassOrderStatus)

	surplus := openValidations(t, e.db, "53627", models.ValidationSurplus)
	require.Len(t, surplus, 1)
	assert.Equal(t, 10, surplus[0].OrderedQuantity)
	assert.Equal(t, 13, surplus[0].DeliveredQuantity)
	assert.Equal(t, models.SeverityWarning, surplus[0].Severity)
	assert.Contains(t, surplus[0].Message, "3 surplus")
}

func TestOutOfOrderFactsSelfHeal(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.IngestDeliveryBatch(ctx, delivery("early", dline("55555", "1", 700, 6)))
	require.NoError(t, err)
	require.Len(t, openValidations(t, e.db, "55555", models.ValidationMissingOrder), 1)

	order, created, err := e.UpsertOrder(ctx, "55555")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "55555", order.OrderNumberBase)
	assert.Equal(t, 6, order.DeliveredGlassCount)

	assert.Empty(t, openValidations(t, e.db, "55555", models.ValidationMissingOrder))
	var v models.GlassOrderValidation
	require.NoError(t, e.db.Where("validation_type = ?", models.ValidationMissingOrder).First(&v).Error)
	assert.Equal(t, ResolvedByRematch, v.ResolvedBy)
}

func TestRecompute_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53714")
	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po", oline("53714", 1000, 8)))
	require.NoError(t, err)
	_, err = e.IngestDeliveryBatch(ctx, delivery("rack", dline("53714", "1", 1000, 3)))
	require.NoError(t, err)

	first, err := e.Recompute(ctx, "53714")
	require.NoError(t, err)
	second, err := e.Recompute(ctx, "53714")
	require.NoError(t, err)

	assert.True(t, first.Found)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Ordered, second.Ordered)
	assert.Equal(t, first.Delivered, second.Delivered)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, models.StatusPartiallyDelivered, second.Status)
}

func TestRecompute_UnknownOrder(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Recompute(context.Background(), "00000")
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestRecompute_ConsistencyErrorKeepsLastGoodState(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53000")
	res, err := e.IngestDeliveryBatch(ctx, delivery("rack", dline("53000", "1", 1000, 2)))
	require.NoError(t, err)

	// A hand-edited row with a negative quantity.
	require.NoError(t, e.db.Create(&models.GlassDeliveryItem{
		GlassDeliveryID:    res.BatchID,
		OrderNumber:        "53000",
		Position:           "9",
		Quantity:           -5,
		MatchStatus:        models.MatchMatched,
		MatchedOrderNumber: "53000",
	}).Error)

	_, err = e.Recompute(ctx, "53000")
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, -3, ce.Delivered)

	o := mustOrder(t, e, "53000")
	assert.Equal(t, 2, o.DeliveredGlassCount)

	report := e.RecomputeMany(ctx, []string{"53000", "53000", "unknown"})
	assert.Equal(t, []string{"53000"}, report.FailedKeys())
	assert.Equal(t, 1, report.Processed)
}

func TestValidationUniqueness(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53714")
	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po", oline("53714", 1000, 8)))
	require.NoError(t, err)
	_, err = e.IngestDeliveryBatch(ctx, delivery("rack", dline("53714", "1", 1000, 3), dline("99999", "2", 1000, 1)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.Recompute(ctx, "53714")
		}()
		go func() {
			defer wg.Done()
			_ = e.RefreshMissing(ctx, "99999")
		}()
	}
	wg.Wait()

	assert.Len(t, openValidations(t, e.db, "53714", models.ValidationShortage), 1)
	assert.Len(t, openValidations(t, e.db, "99999", models.ValidationMissingOrder), 1)
	assert.Equal(t, int64(2), countRows(t, e.db, &models.GlassOrderValidation{}, ""))
}

func TestValidation_RecurrenceOpensNewRow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "53714")
	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po", oline("53714", 1000, 8)))
	require.NoError(t, err)

	partial, err := e.IngestDeliveryBatch(ctx, delivery("rack-1", dline("53714", "1", 1000, 3)))
	require.NoError(t, err)
	_, err = e.DeleteDeliveryBatch(ctx, partial.BatchID)
	require.NoError(t, err)
	assert.Empty(t, openValidations(t, e.db, "53714", models.ValidationShortage))

	_, err = e.IngestDeliveryBatch(ctx, delivery("rack-2", dline("53714", "1", 1000, 4)))
	require.NoError(t, err)

	assert.Len(t, openValidations(t, e.db, "53714", models.ValidationShortage), 1)
	assert.Equal(t, int64(2), countRows(t, e.db, &models.GlassOrderValidation{}, "validation_type = ?", models.ValidationShortage))
}

func TestRematchSafety(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po-early",
		oline("56000", 1000, 4),
		oline("56000", 1100, 3),
		oline("57000", 1000, 1),
	))
	require.NoError(t, err)
	require.Len(t, openValidations(t, e.db, "56000", models.ValidationMissingOrder), 1)

	// The order appears without going through UpsertOrder, so only sweeps can heal.
	require.NoError(t, e.db.Create(&models.Order{
		OrderNumber:      "56000",
		OrderNumberBase:  "56000",
		GlassOrderStatus: models.StatusNotOrdered,
	}).Error)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Rematch(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err = e.Rematch(ctx)
	require.NoError(t, err)

	o := mustOrder(t, e, "56000")
	assert.Equal(t, 7, o.OrderedGlassCount)
	assert.Equal(t, models.StatusOrdered, o.GlassOrderStatus)
	assert.Empty(t, openValidations(t, e.db, "56000", models.ValidationMissingOrder))
	assert.Equal(t, int64(1), countRows(t, e.db, &models.GlassOrderValidation{}, "order_number = ?", "56000"))
	assert.Len(t, openValidations(t, e.db, "57000", models.ValidationMissingOrder), 1)
}

func TestRematch_CancelledStopsEarly(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Rematch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Summary.Cancelled)
}

func TestTriggerForOrders_Scope(t *testing.T) {
	scope := scopeFor([]string{"54222-a", "54222", "LEGACY-7", "53714"})
	assert.Equal(t, []string{"LEGACY-7"}, scope.exact)
	assert.Equal(t, []string{"53714", "54222"}, scope.prefixes)
	assert.Equal(t, "rematch:LEGACY-7|53714,54222", scope.key())
	assert.Equal(t, "rematch:all", rematchScope{}.key())

	e := newTestEngine(t)
	res, err := e.TriggerForOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Summary.Chunks)
}

func TestConservationAndDriftRepair(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	for _, n := range []string{"53001", "53002", "53003"} {
		mustUpsertOrder(t, e, n)
	}
	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po",
		oline("53001", 1000, 5), oline("53002", 1000, 2), oline("53003", 1000, 9)))
	require.NoError(t, err)
	del, err := e.IngestDeliveryBatch(ctx, delivery("rack",
		dline("53001", "1", 1000, 5), dline("53002", "1", 1000, 1), dline("53003", "1", 1000, 12)))
	require.NoError(t, err)
	_, err = e.DeleteDeliveryBatch(ctx, del.BatchID)
	require.NoError(t, err)
	_, err = e.IngestDeliveryBatch(ctx, delivery("rack-2", dline("53003", "1", 1000, 4)))
	require.NoError(t, err)

	report, err := e.AuditDrift(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Empty(t, report.Drifted)

	// Hand-edit a counter behind the engine's back.
	require.NoError(t, e.db.Model(&models.Order{}).Where("order_number = ?", "53002").
		Update("delivered_glass_count", 40).Error)

	report, err = e.AuditDrift(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.Drifted, 1)
	assert.Equal(t, "53002", report.Drifted[0].OrderNumber)
	assert.Equal(t, 40, report.Drifted[0].StoredDelivered)
	assert.Equal(t, 0, report.Drifted[0].ExpectedDelivered)
	assert.False(t, report.Drifted[0].Repaired)

	report, err = e.AuditDrift(ctx, true)
	require.NoError(t, err)
	require.Len(t, report.Drifted, 1)
	assert.True(t, report.Drifted[0].Repaired)
	assert.Equal(t, 0, mustOrder(t, e, "53002").DeliveredGlassCount)

	report, err = e.AuditDrift(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Drifted)
}

func TestConcurrentIngest_SameOrderConserves(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	mustUpsertOrder(t, e, "58000")

	_, err := e.IngestGlassOrderBatch(ctx, glassOrder("po-58000", oline("58000", 1000, 16)))
	require.NoError(t, err)

	const racks = 8
	var wg sync.WaitGroup
	for i := 0; i < racks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.IngestDeliveryBatch(ctx, delivery(fmt.Sprintf("rack-%d", i),
				dline("58000", fmt.Sprint(i+1), 1000+i, 2)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(racks), countRows(t, e.db, &models.GlassDeliveryItem{}, "match_status = ?", models.MatchMatched))

	o := mustOrder(t, e, "58000")
	assert.Equal(t, 16, o.OrderedGlassCount)
	assert.Equal(t, 2*racks, o.DeliveredGlassCount)
	assert.Equal(t, models.StatusDelivered, o.GlassOrderStatus)
	assert.Empty(t, openValidations(t, e.db, "58000", models.ValidationShortage))
	assert.Empty(t, openValidations(t, e.db, "58000", models.ValidationSurplus))

	audit, err := e.AuditDrift(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, audit.Drifted)
}
