// Package receiver implements rpc.SnapshotServiceServer, the gRPC endpoint
// that accepts subscriber snapshots from linkpulse-agent instances.
//
// Receiver.SendSnapshot validates the snapshot (codes.InvalidArgument when
// subscriber_id, timestamp or fetch outcome is missing), stores it as the
// subscriber's latest, evaluates alert rules and appends it to run history.
// Authentication is enforced upstream by the gRPC server interceptor (see
// package auth), so the receiver itself only performs structural validation.
package receiver
