package database

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// TableReport describes how a live table compares with the expected column set.
type TableReport struct {
	Table   string   `json:"table"`
	Exists  bool     `json:"exists"`
	Missing []string `json:"missing,omitempty"`
	Extra   []string `json:"extra,omitempty"`
}

// OK reports whether the table exists with every expected column.
func (r TableReport) OK() bool {
	return r.Exists && len(r.Missing) == 0
}

// GetTableColumns retrieves the column definitions for a given table.
// Field and Type are lower-cased on both dialects.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo

	if db.Dialector.Name() == "sqlite" {
		type sqliteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string `gorm:"column:dflt_value"`
			Pk         int
		}
		var sqliteCols []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			null := "YES"
			if col.Notnull == 1 {
				null = "NO"
			}
			key := ""
			if col.Pk > 0 {
				key = "PRI"
			}
			columns = append(columns, ColumnInfo{
				Field:   strings.ToLower(col.Name),
				Type:    strings.ToLower(col.Type),
				Null:    null,
				Key:     key,
				Default: col.DefaultVal,
			})
		}
		return columns, nil
	}

	// Raw SHOW COLUMNS keeps the exact MySQL type strings.
	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// CompareTable checks the live columns of table against expected.
// A table with no columns is reported as missing.
func CompareTable(db *gorm.DB, table string, expected []string) (TableReport, error) {
	report := TableReport{Table: table}

	columns, err := GetTableColumns(db, table)
	if err != nil {
		return report, err
	}
	if len(columns) == 0 {
		report.Missing = append([]string(nil), expected...)
		sort.Strings(report.Missing)
		return report, nil
	}
	report.Exists = true

	live := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		live[c.Field] = struct{}{}
	}
	want := make(map[string]struct{}, len(expected))
	for _, e := range expected {
		e = strings.ToLower(e)
		want[e] = struct{}{}
		if _, ok := live[e]; !ok {
			report.Missing = append(report.Missing, e)
		}
	}
	for f := range live {
		if _, ok := want[f]; !ok {
			report.Extra = append(report.Extra, f)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Extra)
	return report, nil
}
