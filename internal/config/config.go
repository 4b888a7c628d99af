// Package config provides configuration management for locastarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSourceTimeout   = 30 * time.Second
	defaultGeoTimeout      = 10 * time.Second
	defaultGuideSchedule   = "@every 8h"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Geo      GeoConfig      `mapstructure:"geo" yaml:"geo"`
	Guide    GuideConfig    `mapstructure:"guide" yaml:"guide"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SourceConfig holds the upstream locast endpoint configuration.
type SourceConfig struct {
	// BaseURL is the origin used for Origin/Referer headers.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// APIPath is the admin-ajax RPC path appended to BaseURL.
	APIPath string `mapstructure:"api_path" yaml:"api_path"`
	// Timeout bounds every outbound call. Zero falls back to the default
	// at load time; an unbounded call is never allowed.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// APIURL returns the full RPC endpoint URL.
func (c *SourceConfig) APIURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.APIPath
}

// SessionConfig holds user credentials and session persistence settings.
// Email, Password, and Token are secrets and are redacted from logs.
type SessionConfig struct {
	Email     string `mapstructure:"email" yaml:"email" masq:"secret"`
	Password  string `mapstructure:"password" yaml:"password" masq:"secret"`
	Token     string `mapstructure:"token" yaml:"token" masq:"secret"`
	StorePath string `mapstructure:"store_path" yaml:"store_path"`
}

// GeoConfig holds location resolution configuration.
type GeoConfig struct {
	// Lookup enables IP-based coordinate lookup at startup. When disabled
	// (the default), the static coordinates below are used directly.
	Lookup    bool          `mapstructure:"lookup" yaml:"lookup"`
	LookupURL string        `mapstructure:"lookup_url" yaml:"lookup_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Latitude  float64       `mapstructure:"latitude" yaml:"latitude"`
	Longitude float64       `mapstructure:"longitude" yaml:"longitude"`
}

// GuideConfig holds guide refresh and hand-off configuration.
type GuideConfig struct {
	// OutputPath is where the XMLTV document is persisted on every
	// successful refresh.
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	// HandoffSocket is the unix socket the written document is streamed
	// into after each refresh. Empty disables the hand-off.
	HandoffSocket string `mapstructure:"handoff_socket" yaml:"handoff_socket"`
	// Schedule is a cron expression or descriptor for refresh cycles.
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	// Timezone is the IANA zone programme times are formatted in.
	// Empty means the process-local zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
	// HistoryRetention is how long refresh run records are kept before
	// being pruned. Zero keeps history forever.
	HistoryRetention time.Duration `mapstructure:"history_retention" yaml:"history_retention"`
}

// DatabaseConfig holds the refresh-history database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source" yaml:"add_source"`
	TimeFormat string `mapstructure:"time_format" yaml:"time_format"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with LOCASTARR_, using underscores for nesting.
// Example: LOCASTARR_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/locastarr")
		v.AddConfigPath("$HOME/.locastarr")
	}

	v.SetEnvPrefix("LOCASTARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	return FromViper(v)
}

// FromViper unmarshals and validates configuration from an already
// prepared viper instance (defaults set, config read, env bound).
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Source.Timeout <= 0 {
		cfg.Source.Timeout = defaultSourceTimeout
	}
	if cfg.Geo.Timeout <= 0 {
		cfg.Geo.Timeout = defaultGeoTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	// Source defaults
	v.SetDefault("source.base_url", "https://www.locast.org")
	v.SetDefault("source.api_path", "/wp/wp-admin/admin-ajax.php")
	v.SetDefault("source.timeout", defaultSourceTimeout)

	// Session defaults
	v.SetDefault("session.email", "")
	v.SetDefault("session.password", "")
	v.SetDefault("session.token", "")
	v.SetDefault("session.store_path", "./data/locast.json")

	// Geo defaults
	v.SetDefault("geo.lookup", false)
	v.SetDefault("geo.lookup_url", "http://ip-api.com/json")
	v.SetDefault("geo.timeout", defaultGeoTimeout)
	v.SetDefault("geo.latitude", 38.9885)
	v.SetDefault("geo.longitude", -76.791)

	// Guide defaults
	v.SetDefault("guide.output_path", "./data/locast-epg.xml")
	v.SetDefault("guide.handoff_socket", "/tvhconfig/epggrab/xmltv.sock")
	v.SetDefault("guide.schedule", defaultGuideSchedule)
	v.SetDefault("guide.timezone", "")
	v.SetDefault("guide.history_retention", 30*24*time.Hour)

	// Database defaults
	v.SetDefault("database.path", "./data/locastarr.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
}

// BindLegacyEnv binds the credential environment variables used by earlier
// deployments (LCST_USER_EMAIL, LCST_USER_PSWRD, LCST_TOKEN) alongside the
// LOCASTARR_-prefixed names.
func BindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("session.email", "LOCASTARR_SESSION_EMAIL", "LCST_USER_EMAIL")
	_ = v.BindEnv("session.password", "LOCASTARR_SESSION_PASSWORD", "LCST_USER_PSWRD")
	_ = v.BindEnv("session.token", "LOCASTARR_SESSION_TOKEN", "LCST_TOKEN")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.APIPath == "" {
		return fmt.Errorf("source.api_path is required")
	}

	if c.Session.StorePath == "" {
		return fmt.Errorf("session.store_path is required")
	}

	if c.Guide.OutputPath == "" {
		return fmt.Errorf("guide.output_path is required")
	}
	if _, err := cron.ParseStandard(c.Guide.Schedule); err != nil {
		return fmt.Errorf("guide.schedule is not a valid cron expression: %w", err)
	}
	if c.Guide.Timezone != "" {
		if _, err := time.LoadLocation(c.Guide.Timezone); err != nil {
			return fmt.Errorf("guide.timezone is not a valid IANA zone: %w", err)
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location returns the time.Location programme times are formatted in.
func (c *GuideConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading guide timezone: %w", err)
	}
	return loc, nil
}
