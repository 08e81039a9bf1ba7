// Package history persists one row per received snapshot in SQLite so the
// API can show how a subscriber's stability score moved over time.
//
// The database is opened with the pure-Go modernc.org/sqlite driver in WAL
// mode. Prune and Run delete rows older than the configured retention.
package history
