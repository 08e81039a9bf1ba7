// Package rpc defines the linkpulse.v1.SnapshotService gRPC service.
//
// Messages are the JSON types from package types, carried by a gRPC codec
// registered under the "json" content subtype. Clients created by
// NewSnapshotServiceClient select that codec on every call; servers pick it
// up from the request's content type once this package is imported.
package rpc
