// Package poller runs the fetch → clean → analyze pipeline for every
// configured subscriber on a fixed interval.
//
// Subscribers are processed one at a time so at most one page request is
// outstanding against the upstream. Each run produces a Report that is handed
// to the configured callback (normally the shipper).
//
// Update swaps the subscriber list, scoring constants and window settings
// between runs; the next cycle picks them up. Source settings require a
// restart.
package poller
