// Package ws streams the live subscriber table to dashboards over WebSocket.
//
// The server mounts a Hub at /ws/stream. Each frame is a Message:
//
//	{
//	  "event":         "snapshot" | "update",
//	  "seq":           42,
//	  "firing_alerts": 1,
//	  "data":          { /* same body as GET /api/v1/snapshot */ }
//	}
//
// A client receives a "snapshot" frame on connect and every
// server.stream.interval while it is connected. An "update" frame follows
// each snapshot an agent delivers (Hub.Notify). Clients that fall
// behind are disconnected.
package ws
