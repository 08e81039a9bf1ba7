// Package shipper sends subscriber snapshots to linkpulse-server via gRPC
// (linkpulse.v1.SnapshotService/SendSnapshot, see pkg/rpc).
//
// Shipper.Ship() is non-blocking: reports are converted to types.Snapshot and
// placed in an in-memory channel (default capacity 1000). When the buffer is
// full the oldest entry is evicted so the latest analysis is always preserved.
//
// Shipper.Run() drains the buffer in a loop, reconnecting with truncated
// exponential backoff (1s→60s, ±25% jitter) on connection or send errors.
// Permanent gRPC errors (Unauthenticated, PermissionDenied, InvalidArgument)
// discard the snapshot immediately rather than retrying.
//
// Auth: mTLS via credentials.NewTLS(), API key via gRPC metadata header,
// or insecure (plaintext) for local development.
package shipper
