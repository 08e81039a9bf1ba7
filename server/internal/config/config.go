package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "mean_score < 60", "uptime_pct < 95",
	// "disconnects_per_day > 12", "state == critical".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultGRPCPort         = 50051
	DefaultHTTPPort         = 8080
	DefaultSnapshotTTL      = 2 * time.Hour
	DefaultHistoryPath      = "linkpulse.db"
	DefaultHistoryRetention = 30 * 24 * time.Hour
	DefaultPruneInterval    = time.Hour
	DefaultStreamInterval   = 5 * time.Second
	DefaultChartWidth       = 800
	DefaultChartHeight      = 300
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// GRPCPort is the port the gRPC receiver listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming gRPC and REST clients.
	Auth AuthConfig `yaml:"auth"`

	// Snapshot controls in-memory snapshot retention.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`

	// History controls the SQLite run history.
	History HistoryConfig `yaml:"history"`

	// Charts sets the size of rendered PNG charts.
	Charts ChartsConfig `yaml:"charts"`

	// Stream controls the WebSocket broadcast.
	Stream StreamConfig `yaml:"stream"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// SnapshotConfig controls in-memory snapshot retention.
type SnapshotConfig struct {
	// TTL is how long a subscriber's snapshot remains in the store after its
	// last update. Default: 2h.
	TTL time.Duration `yaml:"ttl"`
}

// HistoryConfig controls the persisted run history.
type HistoryConfig struct {
	// Path is the SQLite database file. ":memory:" keeps history in memory.
	Path string `yaml:"path"`

	// Retention is how long runs are kept. Zero disables pruning.
	Retention time.Duration `yaml:"retention"`

	// PruneInterval is how often expired runs are deleted (default 1h).
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// ChartsConfig sets the rendered chart size in pixels.
type ChartsConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// StreamConfig controls the WebSocket hub.
type StreamConfig struct {
	// Interval is how often the snapshot list is pushed (default 5s).
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
			Snapshot: SnapshotConfig{
				TTL: DefaultSnapshotTTL,
			},
			History: HistoryConfig{
				Path:          DefaultHistoryPath,
				Retention:     DefaultHistoryRetention,
				PruneInterval: DefaultPruneInterval,
			},
			Charts: ChartsConfig{
				Width:  DefaultChartWidth,
				Height: DefaultChartHeight,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := &cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Auth.Mode == "apikey" && s.Auth.KeyEnv == "" {
		return fmt.Errorf("server.auth.key_env is required when mode is apikey")
	}
	if s.Snapshot.TTL < 0 {
		return fmt.Errorf("server.snapshot.ttl must not be negative")
	}
	if s.History.Path == "" {
		return fmt.Errorf("server.history.path must not be empty")
	}
	if s.History.Retention < 0 {
		return fmt.Errorf("server.history.retention must not be negative")
	}
	if s.History.PruneInterval <= 0 {
		s.History.PruneInterval = DefaultPruneInterval
	}
	if s.Charts.Width < 100 || s.Charts.Height < 100 {
		return fmt.Errorf("server.charts: width and height must be at least 100")
	}
	if s.Stream.Interval <= 0 {
		s.Stream.Interval = DefaultStreamInterval
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] (%s): condition is required", i, r.Name)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}
