// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - GRPCPort          port for the gRPC receiver (default 50051)
//   - HTTPPort          port for the REST API, charts and WebSocket hub (default 8080)
//   - Auth.Mode         "apikey" or "none"
//   - Auth.KeyEnv       environment variable holding the expected API key
//   - Auth.Header       gRPC metadata/HTTP header name (default "x-api-key")
//   - Snapshot.TTL      how long a subscriber snapshot remains live (default 2h)
//   - History.Path      SQLite file for run history (default linkpulse.db)
//   - History.Retention how long runs are kept (default 30 days)
//   - Charts.Width/Height  PNG chart size (default 800x300)
//   - Stream.Interval   WebSocket push interval (default 5s)
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
