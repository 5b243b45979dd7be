// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL (production) or SQLite
// (local runs and tests) connections from the application's configuration.
//
// # Connect
//
// Connect opens the connection, applies pool settings and verifies it with a
// bounded ping.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table. The integrity check uses it to
// compare the UGC tables against the GORM models before a sync is trusted.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "ugc_assets")
package database
