// ABOUTME: Configuration loading and parsing for pacman-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Transport names accepted in server.transport.
const (
	TransportGRPC      = "grpc"
	TransportWebSocket = "websocket"
)

// DefaultPort is the port adapters connect to when none is configured.
const DefaultPort = 5555

// Config represents the complete pacman-gateway configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Game    GameConfig    `yaml:"game" toml:"game"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds listener and transport configuration
type ServerConfig struct {
	Host      string `yaml:"host" toml:"host"`
	Port      int    `yaml:"port" toml:"port"`
	Transport string `yaml:"transport" toml:"transport"`
	HTTPAddr  string `yaml:"http_addr" toml:"http_addr"`

	// ReplaySize bounds the replay cache; zero disables replays.
	ReplaySize int `yaml:"replay_size" toml:"replay_size"`

	ReplayTTL       time.Duration `yaml:"-" toml:"-"`
	ShutdownTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	ReplayTTLRaw       string `yaml:"replay_ttl" toml:"replay_ttl"`
	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// Addr returns the transport listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// GameConfig holds game rules the router needs
type GameConfig struct {
	// EaterTeam is the team whose agents consume food.
	EaterTeam string `yaml:"eater_team" toml:"eater_team"`

	// FirstIteration is the iteration number of an agent's first session.
	FirstIteration int `yaml:"first_iteration" toml:"first_iteration"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns a complete configuration that passes Validate.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:               DefaultPort,
			Transport:          TransportGRPC,
			HTTPAddr:           "localhost:8080",
			ReplaySize:         10_000,
			ReplayTTLRaw:       "5m",
			ShutdownTimeoutRaw: "5s",
		},
		Game: GameConfig{
			EaterTeam: "pacman",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
	// Defaults are constants; parsing cannot fail.
	_ = parseDurations(cfg)
	return cfg
}

// Load reads a configuration file from the given path and overlays it on Default.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Server.Transport {
	case TransportGRPC, TransportWebSocket:
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q", TransportGRPC, TransportWebSocket, c.Server.Transport)
	}

	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Server.ReplaySize < 0 {
		return fmt.Errorf("server.replay_size must not be negative")
	}
	if c.Server.ReplaySize > 0 && c.Server.ReplayTTL <= 0 {
		return fmt.Errorf("server.replay_ttl must be positive when replays are enabled")
	}

	if c.Game.EaterTeam == "" {
		return fmt.Errorf("game.eater_team is required")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Server.ReplayTTLRaw != "" {
		cfg.Server.ReplayTTL, err = time.ParseDuration(cfg.Server.ReplayTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing replay_ttl %q: %w", cfg.Server.ReplayTTLRaw, err)
		}
	}

	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
	}

	return nil
}
