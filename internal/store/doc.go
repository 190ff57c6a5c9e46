// Package store owns the database handle shared by the content store, the
// stage log, and the intake records table.
//
// Two dialects are supported: SQLite through modernc.org/sqlite (the default,
// a single file under the data directory) and PostgreSQL through the pgx
// stdlib driver. Each dialect has an embedded schema guarded by a
// schema_version row. Statements are built with squirrel using the dialect's
// placeholder format, and SQLITE_BUSY is retried with bounded backoff.
package store
