// Package api implements the HTTP REST API for linkpulse-server.
//
// New(store, deps) returns an http.Handler that serves:
//
//	GET /api/v1/health                               overall score, state, per-state counts
//	GET /api/v1/subscribers                          all live subscribers ([]SubscriberResponse)
//	GET /api/v1/subscribers/{id}                     one subscriber with full metrics; 404 if unknown or stale
//	GET /api/v1/subscribers/{id}/history?limit=N     persisted runs, newest first
//	GET /api/v1/subscribers/{id}/charts/{name}.png   hourly | rolling | sessions chart
//	GET /api/v1/alerts                               firing and recently resolved alerts
//	GET /api/v1/certs                                upstream source certificate status
//	GET /api/v1/snapshot                             all live subscribers + generated_at
//	GET /metrics                                     Prometheus text exposition
//
// JSON endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. Lists read live entries from the store; stale entries
// are excluded. No external HTTP framework is used.
package api
