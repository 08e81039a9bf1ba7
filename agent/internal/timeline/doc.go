// Package timeline defines the canonical connectivity event (Entry) that flows
// through the collector and analyzer, and the normalization that turns an
// upstream row's timestamp and status text into one.
//
// Normalize accepts several timestamp layouts (RFC3339, ISO without zone,
// US and European date orders). Layouts without a zone offset are read in the
// caller's location. Rows whose timestamp or status cannot be interpreted are
// rejected; callers drop them.
package timeline
