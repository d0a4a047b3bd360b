package checks

import (
	"fmt"
	"sort"

	"glass-tracker/core/database"

	"gorm.io/gorm"
)

// SchemaReport strictly types the result of a schema integrity check.
type SchemaReport struct {
	Matched bool                            `json:"matched"`
	Tables  map[string]database.TableReport `json:"tables"`
	Errors  []string                        `json:"errors"`
}

// CheckSchema compares the live database with the expected columns of each table.
// Extra columns are reported but do not fail the check.
func CheckSchema(db *gorm.DB, expected map[string][]string) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Matched: true,
		Tables:  make(map[string]database.TableReport, len(expected)),
		Errors:  []string{},
	}

	tables := make([]string, 0, len(expected))
	for t := range expected {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, table := range tables {
		tbl, err := database.CompareTable(db, table, expected[table])
		if err != nil {
			// Partial fail: keep checking the other tables.
			report.Errors = append(report.Errors, fmt.Sprintf("failed to inspect table %s: %v", table, err))
			report.Matched = false
			continue
		}
		if !tbl.OK() {
			report.Matched = false
		}
		report.Tables[table] = tbl
	}

	return report, nil
}
