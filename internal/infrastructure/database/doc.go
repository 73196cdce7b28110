// Package database provides SQLite connectivity for the item registry.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations (applied in filename order)
//   - Health checks and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
