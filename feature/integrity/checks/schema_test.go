package checks

import (
	"testing"

	"glass-tracker/core/database"
	"glass-tracker/feature/glass/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestCheckSchema_NilDB(t *testing.T) {
	report, err := CheckSchema(nil, models.ExpectedColumns)
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckSchema_MigratedSQLite(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, models.All()...))

	report, err := CheckSchema(db, models.ExpectedColumns)
	require.NoError(t, err)
	assert.True(t, report.Matched, "%+v", report.Tables)
	assert.Len(t, report.Tables, len(models.ExpectedColumns))
	assert.Empty(t, report.Errors)
}

func TestCheckSchema_MySQLMissingColumn(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("id", "bigint unsigned", "NO", "PRI", nil, "auto_increment").
		AddRow("order_number", "varchar(32)", "NO", "UNI", nil, "").
		AddRow("legacy_flag", "tinyint(1)", "YES", "", "0", "")
	mock.ExpectQuery("SHOW COLUMNS FROM `orders`").WillReturnRows(rows)

	report, err := CheckSchema(db, map[string][]string{
		"orders": {"id", "order_number", "glass_order_status"},
	})
	require.NoError(t, err)
	assert.False(t, report.Matched)

	tbl := report.Tables["orders"]
	assert.True(t, tbl.Exists)
	assert.Equal(t, []string{"glass_order_status"}, tbl.Missing)
	assert.Equal(t, []string{"legacy_flag"}, tbl.Extra)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSchema_InspectError(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SHOW COLUMNS FROM `orders`").WillReturnError(assert.AnError)

	report, err := CheckSchema(db, map[string][]string{"orders": {"id"}})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "orders")
}
