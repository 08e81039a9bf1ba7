// Package report renders PNG charts from a subscriber snapshot: disconnects
// by hour of day, the rolling 7-day disconnect series, and the session-length
// distribution.
package report
