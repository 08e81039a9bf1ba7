package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval = 15 * time.Minute
	DefaultLookback     = 30 * 24 * time.Hour
	DefaultPageSize     = 100
	DefaultMaxPages     = 1000
	DefaultBufferSize   = 1000
	DefaultTimezone     = "UTC"

	DefaultBreakerFailures = 5
	DefaultBreakerDelay    = time.Minute
)

// Config is the top-level agent configuration.
// Fields map 1:1 to the `agent:` section of config.yaml.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerEndpoint is the gRPC address of linkpulse-server (host:port).
	ServerEndpoint string `yaml:"server_endpoint"`

	// PollInterval controls how often the full subscriber list is analysed.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Lookback is the width of the log window requested for every run,
	// ending at the moment the run starts.
	Lookback time.Duration `yaml:"lookback"`

	// PageSize is the number of log rows requested per upstream page.
	PageSize int `yaml:"page_size"`

	// MaxPages stops a run after this many pages even if the upstream keeps
	// returning full pages. Zero disables the limit.
	MaxPages int `yaml:"max_pages"`

	// Timezone is the IANA zone used for timestamps without an offset and
	// for hour-of-day / calendar-day bucketing.
	Timezone string `yaml:"timezone"`

	// BufferSize is the maximum number of snapshots held in memory when
	// the server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// Source describes the upstream session log.
	Source Source `yaml:"source"`

	// Subscribers is the list of accounts analysed on every poll.
	Subscribers []Subscriber `yaml:"subscribers"`

	// Scoring overrides individual stability score constants.
	Scoring Scoring `yaml:"scoring"`

	// ServerAuth configures how the agent authenticates to linkpulse-server.
	ServerAuth AuthConfig `yaml:"server_auth"`
}

// Location resolves Timezone. An empty or unknown zone falls back to UTC;
// validate rejects unknown zones at load time.
func (a AgentConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Source describes the upstream log endpoint.
type Source struct {
	// Type is one of: http | file.
	Type string `yaml:"type"`

	// Endpoint is the URL of the paginated session-log API (type http).
	Endpoint string `yaml:"endpoint"`

	// Path is a JSON file of rows served in pages (type file).
	Path string `yaml:"path"`

	// Timeout bounds a single page request. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how the agent authenticates to the source.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`

	// Breaker configures the circuit breaker around page requests.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig controls when the upstream circuit opens.
type BreakerConfig struct {
	// Failures is the number of consecutive failed page requests that opens
	// the circuit.
	Failures int `yaml:"failures"`

	// Delay is how long the circuit stays open before a trial request.
	Delay time.Duration `yaml:"delay"`
}

// Subscriber is one account whose session log is analysed.
type Subscriber struct {
	// Username is the upstream account identifier.
	Username string `yaml:"username"`

	// Label is an optional display name.
	Label string `yaml:"label"`
}

// Scoring overrides the stability score constants. Zero fields keep the
// built-in defaults.
type Scoring struct {
	UptimeWeight        float64       `yaml:"uptime_weight"`
	SessionBonusCap     float64       `yaml:"session_bonus_cap"`
	SessionBonusScale   float64       `yaml:"session_bonus_scale"`
	SessionScaleHours   float64       `yaml:"session_scale_hours"`
	SessionRefDays      float64       `yaml:"session_reference_days"`
	FastBonusCap        float64       `yaml:"fast_bonus_cap"`
	FastBonusScale      float64       `yaml:"fast_bonus_scale"`
	FlappingCap         float64       `yaml:"flapping_cap"`
	FlappingExponent    float64       `yaml:"flapping_exponent"`
	FlappingScale       float64       `yaml:"flapping_scale"`
	LongOutageCap       float64       `yaml:"long_outage_cap"`
	LongOutageScale     float64       `yaml:"long_outage_scale"`
	FloorUptimePct      float64       `yaml:"floor_uptime_pct"`
	FloorScore          float64       `yaml:"floor_score"`
	LongDisconnectAfter time.Duration `yaml:"long_disconnect_after"`
}

// AuthConfig specifies an authentication mode.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header (or gRPC metadata key) the API key is sent in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username.
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// EffectiveHeader returns Header, or "x-api-key" when unset.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			PollInterval: DefaultPollInterval,
			Lookback:     DefaultLookback,
			PageSize:     DefaultPageSize,
			MaxPages:     DefaultMaxPages,
			BufferSize:   DefaultBufferSize,
			Timezone:     DefaultTimezone,
			Source: Source{
				Type: "http",
				Breaker: BreakerConfig{
					Failures: DefaultBreakerFailures,
					Delay:    DefaultBreakerDelay,
				},
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.PollInterval <= 0 {
		return fmt.Errorf("agent.poll_interval must be positive")
	}
	if a.Lookback <= 0 {
		return fmt.Errorf("agent.lookback must be positive")
	}
	if a.PageSize <= 0 {
		return fmt.Errorf("agent.page_size must be positive")
	}
	if a.MaxPages < 0 {
		return fmt.Errorf("agent.max_pages must not be negative")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return fmt.Errorf("agent.timezone %q: %w", a.Timezone, err)
	}

	switch a.Source.Type {
	case "http":
		if a.Source.Endpoint == "" {
			return fmt.Errorf("agent.source.endpoint is required for type http")
		}
	case "file":
		if a.Source.Path == "" {
			return fmt.Errorf("agent.source.path is required for type file")
		}
	default:
		return fmt.Errorf("agent.source: unknown type %q", a.Source.Type)
	}
	if err := validateAuthMode("agent.source.auth", a.Source.Auth.Mode); err != nil {
		return err
	}
	if err := validateAuthMode("agent.server_auth", a.ServerAuth.Mode); err != nil {
		return err
	}
	if a.Source.Breaker.Failures < 0 {
		return fmt.Errorf("agent.source.breaker.failures must not be negative")
	}

	seen := make(map[string]bool, len(a.Subscribers))
	for i, sub := range a.Subscribers {
		if sub.Username == "" {
			return fmt.Errorf("subscribers[%d]: username is required", i)
		}
		if seen[sub.Username] {
			return fmt.Errorf("subscribers[%d]: duplicate username %q", i, sub.Username)
		}
		seen[sub.Username] = true
	}
	return nil
}

func validateAuthMode(field, mode string) error {
	switch mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
		return nil
	default:
		return fmt.Errorf("%s: unknown auth mode %q", field, mode)
	}
}
