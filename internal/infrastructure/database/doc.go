// Package database provides SQLite connectivity for the tsbuffer flush journal.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations read from an fs.FS (normally the embedded migrations package)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Journal)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Migrations are additive-only: new columns must be
// NULLABLE or have DEFAULT values.
package database
