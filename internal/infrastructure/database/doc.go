// Package database provides SQLite connectivity for depthcam.
//
// It stores the device session log (open, close and source lifecycle
// events) and applies the embedded schema migrations at startup.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.{up,down}.sql and
// are applied oldest first, each in its own transaction.
package database
