// Package database provides the connection pool for the optional
// PostgreSQL audit journal. All engine state is in-memory; the journal
// is append-only and never read back by the sync client.
package database
