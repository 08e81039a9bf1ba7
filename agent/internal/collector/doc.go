// Package collector turns fetched entries into a clean, ascending timeline
// with no two adjacent entries sharing a status.
package collector
