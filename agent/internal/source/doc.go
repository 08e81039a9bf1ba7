// Package source fetches pages of raw session-log rows from the upstream
// accounting system.
//
// Implemented sources: the paginated HTTP/JSON endpoint (http.go) and a local
// JSON file served in pages (file.go). Factory: New(config.Source) returns the
// correct Source, wrapped in a circuit breaker when one is configured
// (breaker.go).
//
// Authentication (API key, bearer token, basic, mTLS) is handled by the shared
// authRoundTripper in http.go.
package source
