package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/locsync/internal/errors"
	"github.com/vango-dev/locsync/pkg/location"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "locsync.json"

	// DefaultPort is the default listening port.
	DefaultPort = 8080

	// DefaultHost is the default listening host.
	DefaultHost = "localhost"
)

// Journal backends.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalS3     = "s3"
)

// Config represents the complete locsync.json configuration.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Session SessionConfig `json:"session"`

	// History is "push" or "replace" for soft updates.
	History string `json:"history,omitempty"`

	Metrics MetricsConfig `json:"metrics"`
	Tracing TracingConfig `json:"tracing"`
	Journal JournalConfig `json:"journal"`
	Log     LogConfig     `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	ReadBufferSize  int `json:"readBufferSize,omitempty"`
	WriteBufferSize int `json:"writeBufferSize,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "30s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists origins allowed to open a WebSocket. Empty means
	// same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// SessionConfig contains per-session settings.
type SessionConfig struct {
	ReadTimeout       string `json:"readTimeout,omitempty"`
	WriteTimeout      string `json:"writeTimeout,omitempty"`
	HandshakeTimeout  string `json:"handshakeTimeout,omitempty"`
	HeartbeatInterval string `json:"heartbeatInterval,omitempty"`
	MaxMessageSize    int64  `json:"maxMessageSize,omitempty"`
	MaxEventQueue     int    `json:"maxEventQueue,omitempty"`

	// MaxSessions caps concurrent sessions; 0 means no limit.
	MaxSessions int `json:"maxSessions,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled"`
	TracerName string `json:"tracerName,omitempty"`
	IncludeURL *bool  `json:"includeUrl,omitempty"`
}

// JournalConfig selects where session journals are kept.
type JournalConfig struct {
	// Backend is "none", "memory" or "s3".
	Backend    string `json:"backend,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	Prefix     string `json:"prefix,omitempty"`
	Region     string `json:"region,omitempty"`
	MaxEntries int    `json:"maxEntries,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// Load reads locsync.json from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("L100").
				WithDetail("No " + ConfigFileName + " found at " + path)
		}
		return nil, errors.New("L101").Wrap(err)
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("L101").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("L103").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("L103").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = 4096
	}
	if c.Server.WriteBufferSize == 0 {
		c.Server.WriteBufferSize = 4096
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "30s"
	}

	// Session
	if c.Session.ReadTimeout == "" {
		c.Session.ReadTimeout = "60s"
	}
	if c.Session.WriteTimeout == "" {
		c.Session.WriteTimeout = "10s"
	}
	if c.Session.HandshakeTimeout == "" {
		c.Session.HandshakeTimeout = "10s"
	}
	if c.Session.HeartbeatInterval == "" {
		c.Session.HeartbeatInterval = "30s"
	}
	if c.Session.MaxMessageSize == 0 {
		c.Session.MaxMessageSize = 64 * 1024
	}
	if c.Session.MaxEventQueue == 0 {
		c.Session.MaxEventQueue = 256
	}

	if c.History == "" {
		c.History = location.ModePush.String()
	}

	// Observability
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "locsync"
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "locsync"
	}

	// Journal
	if c.Journal.Backend == "" {
		c.Journal.Backend = JournalMemory
	}
	if c.Journal.MaxEntries == 0 {
		c.Journal.MaxEntries = 256
	}
	if c.Journal.Backend == JournalS3 && c.Journal.Prefix == "" {
		c.Journal.Prefix = "locsync/journals/"
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("L102").
			WithDetailf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Session.MaxSessions < 0 {
		return errors.New("L102").WithDetail("session.maxSessions must not be negative")
	}

	for name, value := range map[string]string{
		"server.shutdownTimeout":    c.Server.ShutdownTimeout,
		"session.readTimeout":       c.Session.ReadTimeout,
		"session.writeTimeout":      c.Session.WriteTimeout,
		"session.handshakeTimeout":  c.Session.HandshakeTimeout,
		"session.heartbeatInterval": c.Session.HeartbeatInterval,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.New("L101").WithDetailf("%q: %v", name, err)
		}
		if d <= 0 {
			return errors.New("L102").WithDetailf("%s must be positive, got %s", name, value)
		}
	}

	if _, err := location.ParseHistoryMode(c.History); err != nil {
		return errors.New("L102").
			WithDetailf(`history must be "push" or "replace", got %q`, c.History)
	}

	switch c.Journal.Backend {
	case JournalNone, JournalMemory:
	case JournalS3:
		if c.Journal.Bucket == "" {
			return errors.New("L401")
		}
	default:
		return errors.New("L400").WithDetailf("journal.backend = %q", c.Journal.Backend)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return errors.New("L102").Wrap(err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("L102").
			WithDetailf(`log.format must be "text" or "json", got %q`, c.Log.Format)
	}
	return nil
}

// Address returns host:port for the listener.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// SetAddress parses host:port (host may be empty) into the server fields.
func (c *Config) SetAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.New("L500").WithDetailf("--addr %q", addr).Wrap(err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return errors.New("L500").WithDetailf("--addr %q: invalid port", addr)
	}
	c.Server.Host = host
	c.Server.Port = p
	return nil
}

// HistoryMode returns the parsed history mode.
func (c *Config) HistoryMode() location.HistoryMode {
	mode, _ := location.ParseHistoryMode(c.History)
	return mode
}

// ShutdownTimeout returns the parsed shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return mustDuration(c.Server.ShutdownTimeout, 30*time.Second)
}

// Durations returns the parsed session timeouts: read, write, handshake,
// heartbeat.
func (s SessionConfig) Durations() (read, write, handshake, heartbeat time.Duration) {
	return mustDuration(s.ReadTimeout, 60*time.Second),
		mustDuration(s.WriteTimeout, 10*time.Second),
		mustDuration(s.HandshakeTimeout, 10*time.Second),
		mustDuration(s.HeartbeatInterval, 30*time.Second)
}

// IncludeURLs reports whether spans carry URLs (default true).
func (t TracingConfig) IncludeURLs() bool {
	return t.IncludeURL == nil || *t.IncludeURL
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.ToUpper(s)))
	return level, err
}

// mustDuration parses s, falling back to def. Validate rejects bad values
// before this is reached.
func mustDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
