// Package database provides SQLite connectivity for the BeaconWatch shared store.
//
// The shared store is the only synchronisation point between fleet agents:
// it holds the agent/lease records, the device registry, raw staging
// sightings and finalized sightings. This package manages:
//
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations (embedded, versioned up/down files)
//   - Connection pooling and lifecycle management
//   - STRICT mode tables for type safety
//
// SQLite's single-writer model gives the two atomicity guarantees the core
// relies on: upsert-on-conflict and conditional UPDATE with a matched-row
// signal (RowsAffected).
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or carry a
// DEFAULT, and each migration file has both .up.sql and .down.sql.
package database
