// Package database handles database connections and schema inspection.
//
// It wraps GORM and configures either MySQL (production) or SQLite (single-node
// deployments and tests) from the application's configuration.
//
// # Connect
//
// Connect opens the configured driver, applies pool settings and pings the server
// within the configured timeout. SQLite connections are pinned to one open connection.
//
// # Schema Inspection
//
// GetTableColumns reads the live column list of a table on either dialect. The
// integrity feature compares it with the columns the glass models expect.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	if err := database.Migrate(db, models.All()...); err != nil {
//	    return err
//	}
//
//	columns, err := database.GetTableColumns(db, "glass_delivery_items")
package database
