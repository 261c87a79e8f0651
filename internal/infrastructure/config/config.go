package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/depthcam-core/internal/source"
)

// Sensor backends.
const (
	BackendSimulated = "simulated"
	BackendNetstream = "netstream"
)

// Config is the root configuration structure for depthcam.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Sources   SourcesConfig   `yaml:"sources"`
	Render    RenderConfig    `yaml:"render"`
	Tick      TickConfig      `yaml:"tick"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DeviceConfig identifies this camera installation.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SensorConfig selects and configures the sensor SDK backend.
type SensorConfig struct {
	// Backend is "simulated" or "netstream".
	Backend   string          `yaml:"backend"`
	Simulated SimulatedConfig `yaml:"simulated"`
	Netstream NetstreamConfig `yaml:"netstream"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// SimulatedConfig contains synthetic sensor settings.
type SimulatedConfig struct {
	FPS         int  `yaml:"fps"`
	DepthWidth  int  `yaml:"depth_width"`
	DepthHeight int  `yaml:"depth_height"`
	ColorWidth  int  `yaml:"color_width"`
	ColorHeight int  `yaml:"color_height"`
	FailOpen    bool `yaml:"fail_open"`
}

// NetstreamConfig contains network frame receiver settings.
type NetstreamConfig struct {
	// Group is the multicast (or unicast) address:port frames arrive on.
	Group     string `yaml:"group"`
	Interface string `yaml:"interface"`
	// PollBudgetMS bounds the socket read time per stream poll.
	PollBudgetMS int `yaml:"poll_budget_ms"`
}

// DaemonConfig contains settings for supervising an external capture daemon
// that feeds the netstream backend.
type DaemonConfig struct {
	// Managed indicates whether depthcam should start and restart the daemon.
	// If false, the daemon is expected to run externally.
	Managed bool     `yaml:"managed"`
	Binary  string   `yaml:"binary"`
	Args    []string `yaml:"args"`

	// RestartOnFailure enables automatic restart if the daemon exits.
	// Default: true
	RestartOnFailure bool `yaml:"restart_on_failure"`

	// RestartDelaySeconds is the time to wait before restarting.
	// Default: 5
	RestartDelaySeconds int `yaml:"restart_delay_seconds"`

	// MaxRestartAttempts limits restart attempts. 0 means unlimited.
	// Default: 10
	MaxRestartAttempts int `yaml:"max_restart_attempts"`

	// FrameTimeoutSeconds is how long the open sensor may go without a new
	// frame before the daemon counts as unhealthy. 0 disables the check.
	// Default: 10
	FrameTimeoutSeconds int `yaml:"frame_timeout_seconds"`
}

// SourcesConfig lists the sources initialised after the sensor opens.
type SourcesConfig struct {
	Init []string `yaml:"init"`
}

// RenderConfig controls the per-tick world render.
type RenderConfig struct {
	Enabled bool `yaml:"enabled"`
	// GLMajor is the GL major version reported to the renderer. 0 means no window.
	GLMajor     int  `yaml:"gl_major"`
	UseTextures bool `yaml:"use_textures"`
}

// TickConfig controls the update loop.
type TickConfig struct {
	IntervalMS int `yaml:"interval_ms"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	// StatsInterval is how often frame statistics are published, in seconds.
	StatsInterval int `yaml:"stats_interval"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DEPTHCAM_SECTION_KEY
// For example: DEPTHCAM_DATABASE_PATH, DEPTHCAM_SENSOR_BACKEND
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:   "depthcam-01",
			Name: "Depth Camera",
		},
		Sensor: SensorConfig{
			Backend: BackendSimulated,
			Simulated: SimulatedConfig{
				FPS:         30,
				DepthWidth:  512,
				DepthHeight: 424,
				ColorWidth:  960,
				ColorHeight: 540,
			},
			Netstream: NetstreamConfig{
				Group:        "239.0.0.77:5600",
				PollBudgetMS: 1,
			},
			Daemon: DaemonConfig{
				RestartOnFailure:    true,
				RestartDelaySeconds: 5,
				MaxRestartAttempts:  10,
				FrameTimeoutSeconds: 10,
			},
		},
		Sources: SourcesConfig{
			Init: []string{"depth", "color", "body"},
		},
		Render: RenderConfig{
			Enabled:     true,
			GLMajor:     3,
			UseTextures: true,
		},
		Tick: TickConfig{
			IntervalMS: 33,
		},
		Database: DatabaseConfig{
			Path:        "./data/depthcam.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "depthcam-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			StatsInterval: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DEPTHCAM_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("DEPTHCAM_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	// Sensor
	if v := os.Getenv("DEPTHCAM_SENSOR_BACKEND"); v != "" {
		cfg.Sensor.Backend = v
	}
	if v := os.Getenv("DEPTHCAM_NETSTREAM_GROUP"); v != "" {
		cfg.Sensor.Netstream.Group = v
	}
	if v := os.Getenv("DEPTHCAM_NETSTREAM_INTERFACE"); v != "" {
		cfg.Sensor.Netstream.Interface = v
	}

	// Database
	if v := os.Getenv("DEPTHCAM_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DEPTHCAM_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DEPTHCAM_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DEPTHCAM_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("DEPTHCAM_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("DEPTHCAM_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("DEPTHCAM_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("DEPTHCAM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}

	// Sensor validation
	switch c.Sensor.Backend {
	case BackendSimulated:
		if c.Sensor.Simulated.FPS < 1 || c.Sensor.Simulated.FPS > 120 {
			errs = append(errs, "sensor.simulated.fps must be between 1 and 120")
		}
	case BackendNetstream:
		if _, err := netip.ParseAddrPort(c.Sensor.Netstream.Group); err != nil {
			errs = append(errs, fmt.Sprintf("sensor.netstream.group is invalid: %v", err))
		}
	default:
		errs = append(errs, fmt.Sprintf("sensor.backend must be %q or %q", BackendSimulated, BackendNetstream))
	}
	if c.Sensor.Daemon.Managed && c.Sensor.Daemon.Binary == "" {
		errs = append(errs, "sensor.daemon.binary is required when the daemon is managed")
	}

	for _, name := range c.Sources.Init {
		if _, err := source.ParseKind(name); err != nil {
			errs = append(errs, fmt.Sprintf("sources.init: unknown kind %q", name))
		}
	}

	if c.Tick.IntervalMS < 1 {
		errs = append(errs, "tick.interval_ms must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SourceKinds returns the parsed startup source kinds. Call after Validate.
func (c *Config) SourceKinds() []source.Kind {
	kinds := make([]source.Kind, 0, len(c.Sources.Init))
	for _, name := range c.Sources.Init {
		if k, err := source.ParseKind(name); err == nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// GetTickInterval returns the update loop period.
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Tick.IntervalMS) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
