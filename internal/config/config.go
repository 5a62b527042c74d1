package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBinID           = "h1"
	DefaultBinHeight       = 100.0
	DefaultIntervalSeconds = 5.0
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultTopicPrefix     = "smartbin"
)

// Config holds the application configuration
type Config struct {
	Endpoint           string        `yaml:"endpoint"`                       // e.g., "https://example-default-rtdb.firebaseio.com"
	BinID              string        `yaml:"bin_id,omitempty"`               // fallback: "h1"
	BinHeight          float64       `yaml:"bin_height,omitempty"`           // centimeters, fallback: 100
	IntervalSeconds    float64       `yaml:"interval_seconds,omitempty"`     // fallback: 5
	HTTPTimeoutSeconds float64       `yaml:"http_timeout_seconds,omitempty"` // fallback: 10
	Sensor             SensorConfig  `yaml:"sensor,omitempty"`
	MQTT               MQTTConfig    `yaml:"mqtt,omitempty"`
	Journal            JournalConfig `yaml:"journal,omitempty"`
	Log                LogConfig     `yaml:"log,omitempty"`
}

// SensorConfig bounds the readings produced by the mock sensors
type SensorConfig struct {
	MinDistance float64 `yaml:"min_distance,omitempty"` // cm, fallback: 10
	MaxDistance float64 `yaml:"max_distance,omitempty"` // cm, fallback: 100
	MaxWeight   float64 `yaml:"max_weight,omitempty"`   // kg, fallback: 5
	Seed        int64   `yaml:"seed,omitempty"`         // 0 seeds from the clock
}

// MQTTConfig holds the optional MQTT mirror configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // fallback: "smartbin"
}

// JournalConfig holds the optional local cycle journal configuration
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // fallback: "binpusher.db"
}

// LogConfig enables a rotating log file alongside stdout
type LogConfig struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

// Load reads the config file and applies environment overrides
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Missing file means defaults plus environment
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Default returns a config populated with every fallback value
func Default() *Config {
	return &Config{
		BinID:              DefaultBinID,
		BinHeight:          DefaultBinHeight,
		IntervalSeconds:    DefaultIntervalSeconds,
		HTTPTimeoutSeconds: DefaultHTTPTimeout.Seconds(),
		Sensor: SensorConfig{
			MinDistance: 10,
			MaxDistance: 100,
			MaxWeight:   5,
		},
		MQTT: MQTTConfig{
			TopicPrefix: DefaultTopicPrefix,
		},
		Journal: JournalConfig{
			Path: "binpusher.db",
		},
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BINPUSHER_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("BINPUSHER_BIN_ID"); v != "" {
		c.BinID = v
	}
	if v := os.Getenv("BINPUSHER_BIN_HEIGHT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing BINPUSHER_BIN_HEIGHT: %w", err)
		}
		c.BinHeight = f
	}
	if v := os.Getenv("BINPUSHER_INTERVAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing BINPUSHER_INTERVAL: %w", err)
		}
		c.IntervalSeconds = f
	}
	return nil
}

// Validate checks the settings that would otherwise fail every cycle
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required (set it in the config file or BINPUSHER_ENDPOINT)")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be an http or https URL, got %q", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host: %q", c.Endpoint)
	}
	if !nonNegative(c.BinHeight) {
		return fmt.Errorf("bin_height must be a non-negative number, got %v", c.BinHeight)
	}
	if !nonNegative(c.IntervalSeconds) {
		return fmt.Errorf("interval_seconds must be a non-negative number, got %v", c.IntervalSeconds)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("MQTT broker address is required when enabled")
	}
	return nil
}

// zero means "use the default"; NaN and infinities are never accepted
func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// GetBinID returns the bin identifier with a default of "h1"
func (c *Config) GetBinID() string {
	if c.BinID == "" {
		return DefaultBinID
	}
	return c.BinID
}

// GetBinHeight returns the bin height in centimeters with a default of 100
func (c *Config) GetBinHeight() float64 {
	if !positive(c.BinHeight) {
		return DefaultBinHeight
	}
	return c.BinHeight
}

// GetInterval returns the wait between cycles with a default of 5 seconds
func (c *Config) GetInterval() time.Duration {
	if !positive(c.IntervalSeconds) {
		return time.Duration(DefaultIntervalSeconds * float64(time.Second))
	}
	return time.Duration(c.IntervalSeconds * float64(time.Second))
}

// GetHTTPTimeout returns the per-request timeout for the remote store
func (c *Config) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return DefaultHTTPTimeout
	}
	return time.Duration(c.HTTPTimeoutSeconds * float64(time.Second))
}

// GetTopicPrefix returns the MQTT topic prefix, falling back to "smartbin"
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return DefaultTopicPrefix
	}
	return c.MQTT.TopicPrefix
}

// GetJournalPath returns the journal database path
func (c *Config) GetJournalPath() string {
	if c.Journal.Path == "" {
		return "binpusher.db"
	}
	return c.Journal.Path
}

// GetDistanceRange returns the mock distance bounds in centimeters
func (c *Config) GetDistanceRange() (min, max float64) {
	min, max = c.Sensor.MinDistance, c.Sensor.MaxDistance
	if max <= 0 {
		max = 100
	}
	if min <= 0 {
		min = 10
	}
	if min >= max {
		min = 0
	}
	return min, max
}

// GetMaxWeight returns the upper bound of the mock weight reading in kilograms
func (c *Config) GetMaxWeight() float64 {
	if c.Sensor.MaxWeight <= 0 {
		return 5
	}
	return c.Sensor.MaxWeight
}
