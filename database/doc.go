// Package database connects to a metadata backend and hands back an
// imghost.MetadataRepo.
//
// # Supported Backends
//
//   - Redis: hashes and per-owner sorted sets, using go-redis
//   - PostgreSQL: production SQL backend using a pgx connection pool
//   - SQLite: single-node backend using modernc.org/sqlite
//
// # Usage
//
//	repo, cleanup, err := database.Open(ctx, database.Config{
//	    Type:   "sqlite",
//	    DSN:    "imghost.db",
//	    Tables: imghost.Tables{Records: "image_records", Owners: "image_owners"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
// Open pings, migrates and validates before returning. Connect gives the
// unmigrated Database for callers such as the migrate command.
package database
