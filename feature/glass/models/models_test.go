package models

import (
	"testing"

	"glass-tracker/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedColumnsMatchMigratedSchema(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, All()...))

	for table, expected := range ExpectedColumns {
		t.Run(table, func(t *testing.T) {
			report, err := database.CompareTable(db, table, expected)
			require.NoError(t, err)
			assert.True(t, report.OK(), "missing: %v", report.Missing)
			assert.Empty(t, report.Extra)
		})
	}
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, MatchConflict.Valid())
	assert.False(t, MatchStatus("maybe").Valid())
	assert.True(t, ValidationMissingOrder.Valid())
	assert.False(t, ValidationType("late").Valid())
	assert.True(t, KindDeliveryItem.Valid())
	assert.False(t, ItemKind("pallet").Valid())
}
