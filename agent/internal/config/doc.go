// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: full config tree parsed from YAML
//   - AgentConfig: server_endpoint, poll_interval, lookback, page_size,
//     max_pages, timezone, buffer_size, source, subscribers [], scoring,
//     server_auth
//   - Source: type (http|file), endpoint, path, timeout, auth, tls, breaker
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none); Key(), Token() and
//     Password() resolve secrets from environment variables
//   - Scoring: optional overrides for the stability score constants
//
// Load(path) reads the YAML file, applies defaults (15m poll, 30d lookback,
// 100-row pages, UTC), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after each event
// so atomic-save editors (rename then create) keep being tracked.
package config
