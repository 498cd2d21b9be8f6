package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/listdiff/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "listdiff.json"

	// EnvAddr overrides Server.Addr when set.
	EnvAddr = "LISTDIFF_ADDR"

	// DefaultAddr is the default listen address.
	DefaultAddr = "localhost:7070"

	// DefaultMaxDocumentBytes is the default size limit of one snapshot document.
	DefaultMaxDocumentBytes = 4 << 20

	// MaxDocumentBytesLimit is the largest allowed MaxDocumentBytes.
	MaxDocumentBytesLimit = 16 << 20

	// DefaultMetricsNamespace prefixes every metric name.
	DefaultMetricsNamespace = "listdiff"

	// DefaultTracerName is the OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/listdiff"
)

// Config represents the complete listdiff.json configuration.
type Config struct {
	// Server contains HTTP and websocket settings.
	Server ServerConfig `json:"server,omitempty"`

	// Diff contains the default differ options.
	Diff DiffConfig `json:"diff,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// S3 configures loading snapshots from s3:// locations.
	S3 S3Config `json:"s3,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains server settings. Durations use time.ParseDuration
// syntax ("10s", "1m").
type ServerConfig struct {
	Addr             string   `json:"addr,omitempty"`
	ReadTimeout      string   `json:"readTimeout,omitempty"`
	WriteTimeout     string   `json:"writeTimeout,omitempty"`
	AckTimeout       string   `json:"ackTimeout,omitempty"`
	MaxDocumentBytes int64    `json:"maxDocumentBytes,omitempty"`
	AllowedOrigins   []string `json:"allowedOrigins,omitempty"`
}

// DiffConfig contains differ defaults. Nil means the differ default.
type DiffConfig struct {
	CrossSectionMoves *bool `json:"crossSectionMoves,omitempty"`
	Verify            *bool `json:"verify,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
	Path      string `json:"path,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled"`
	TracerName string `json:"tracerName,omitempty"`
}

// S3Config contains S3 client settings.
type S3Config struct {
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             DefaultAddr,
			ReadTimeout:      "10s",
			WriteTimeout:     "10s",
			AckTimeout:       "30s",
			MaxDocumentBytes: DefaultMaxDocumentBytes,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultMetricsNamespace,
			Path:      "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:    true,
			TracerName: DefaultTracerName,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for listdiff.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		cfg := New()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path, applies the
// environment and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E131").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or omit --config to use the defaults")
		}
		return nil, errors.New("E131").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E131").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E131").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E131").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for fields set to empty strings.
func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.AckTimeout == "" {
		c.Server.AckTimeout = d.Server.AckTimeout
	}
	if c.Server.MaxDocumentBytes == 0 {
		c.Server.MaxDocumentBytes = d.Server.MaxDocumentBytes
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = d.Metrics.Path
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if addr := strings.TrimSpace(os.Getenv(EnvAddr)); addr != "" {
		c.Server.Addr = addr
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"server.readTimeout":  c.Server.ReadTimeout,
		"server.writeTimeout": c.Server.WriteTimeout,
		"server.ackTimeout":   c.Server.AckTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return errors.New("E130").
				WithDetailf("%s must be a positive duration, got %q", name, v)
		}
	}
	if c.Server.MaxDocumentBytes <= 0 || c.Server.MaxDocumentBytes > MaxDocumentBytesLimit {
		return errors.New("E130").
			WithDetailf("server.maxDocumentBytes must be between 1 and %d", MaxDocumentBytesLimit)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("E130").WithDetail("metrics.path must start with /")
	}
	if c.S3.Endpoint != "" && !strings.HasPrefix(c.S3.Endpoint, "http://") && !strings.HasPrefix(c.S3.Endpoint, "https://") {
		return errors.New("E130").WithDetail("s3.endpoint must be an http or https URL")
	}
	return nil
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout, 10*time.Second)
}

// WriteTimeout returns the parsed server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout, 10*time.Second)
}

// AckTimeout returns how long the server waits for a stage Ack.
func (c *Config) AckTimeout() time.Duration {
	return mustDuration(c.Server.AckTimeout, 30*time.Second)
}

// CrossSectionMoves returns the configured cross-section move mode.
func (c *Config) CrossSectionMoves() bool {
	return c.Diff.CrossSectionMoves == nil || *c.Diff.CrossSectionMoves
}

// Verify returns whether stages are verified while diffing.
func (c *Config) Verify() bool {
	return c.Diff.Verify == nil || *c.Diff.Verify
}

// Exists returns true if a listdiff.json exists in the directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
