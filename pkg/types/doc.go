// Package types defines the wire types shared by linkpulse-agent and
// linkpulse-server. They are the JSON payloads carried by the gRPC snapshot
// service (see package rpc) and served by the server's REST API.
package types
