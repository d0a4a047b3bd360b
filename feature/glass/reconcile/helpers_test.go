package reconcile

import (
	"context"
	"testing"
	"time"

	"glass-tracker/core/database"
	"glass-tracker/core/lock"
	sweep "glass-tracker/core/reconcile"
	"glass-tracker/feature/glass/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, models.All()...))

	// Small chunks so every sweep crosses chunk boundaries.
	return NewEngine(db, lock.NewLocal(5*time.Second), zap.NewNop(), sweep.Config{ChunkSize: 2, Workers: 4})
}

func mustUpsertOrder(t *testing.T, e *Engine, number string) models.Order {
	t.Helper()
	o, _, err := e.UpsertOrder(context.Background(), number)
	require.NoError(t, err)
	return o
}

func mustOrder(t *testing.T, e *Engine, number string) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, e.db.Where("order_number = ?", number).First(&o).Error)
	return o
}

func delivery(ref string, lines ...DeliveryItemInput) DeliveryBatchInput {
	return DeliveryBatchInput{SourceRef: ref, RackNumber: "R-" + ref, Items: lines}
}

func dline(number, position string, width, qty int) DeliveryItemInput {
	return DeliveryItemInput{OrderNumber: number, Position: position, WidthMm: width, HeightMm: 800, Quantity: qty}
}

func glassOrder(ref string, lines ...GlassOrderItemInput) GlassOrderBatchInput {
	return GlassOrderBatchInput{SourceRef: ref, Supplier: "Float Glass GmbH", Items: lines}
}

func oline(number string, width, qty int) GlassOrderItemInput {
	return GlassOrderItemInput{OrderNumber: number, Position: "1", WidthMm: width, HeightMm: 800, Composition: "4/16/4", Quantity: qty}
}

func openValidations(t *testing.T, db *gorm.DB, number string, vt models.ValidationType) []models.GlassOrderValidation {
	t.Helper()
	var rows []models.GlassOrderValidation
	require.NoError(t, db.Where("order_number = ? AND validation_type = ? AND resolved = ?", number, vt, false).Find(&rows).Error)
	return rows
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
