// Package store keeps the latest snapshot per subscriber in memory, with TTL
// eviction of subscribers whose agent has stopped reporting.
package store
