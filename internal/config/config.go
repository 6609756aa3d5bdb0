package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	pkgdatabase "clubattend/pkg/database"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "CLUBATTEND_"

// Rotation interval bounds for the live attendance code
const (
	MinRotationInterval = 5 * time.Second
	MaxRotationInterval = 15 * time.Second
)

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings coordinator
// Clean separation between configuration management and business logic
type Config struct {
	Database   *DatabaseConfig   `envPrefix:"DATABASE_"`
	HTTP       *HTTPConfig       `envPrefix:"HTTP_"`
	WebSocket  *WebSocketConfig  `envPrefix:"WEBSOCKET_"`
	Attendance *AttendanceConfig `envPrefix:"ATTENDANCE_"`
	Auth       *AuthConfig       `envPrefix:"AUTH_"`
}

// FUNCTIONAL DISCOVERY: sqlite3 for a single club server, mysql when the
// club system shares an existing database server
type DatabaseConfig struct {
	Driver         string        `env:"DRIVER"`
	Path           string        `env:"PATH"`
	Host           string        `env:"HOST"`
	Port           int           `env:"PORT"`
	User           string        `env:"USER"`
	Password       string        `env:"PASSWORD"`
	Name           string        `env:"NAME"`
	MaxConnections int           `env:"MAX_CONNECTIONS"`
	Timeout        time.Duration `env:"TIMEOUT"`
	SeedFile       string        `env:"SEED_FILE"`
}

type HTTPConfig struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	Mode            string        `env:"MODE"` // gin mode: debug, release or test
}

// FUNCTIONAL DISCOVERY: WebSocket heartbeat keeps a leader's window alive only
// as long as the leader's screen answers pings
type WebSocketConfig struct {
	PingInterval time.Duration `env:"PING_INTERVAL"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT"`
	AuthTimeout  time.Duration `env:"AUTH_TIMEOUT"`
}

type AttendanceConfig struct {
	RotationInterval   time.Duration `env:"ROTATION_INTERVAL"`
	CodeLength         int           `env:"CODE_LENGTH"`
	MaxSessionDuration time.Duration `env:"MAX_SESSION_DURATION"` // 0 disables the cap
	Timezone           string        `env:"TIMEZONE"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"ISSUER"`
}

// DefaultConfig returns settings for a single-club development server
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Driver:         pkgdatabase.DriverSQLite,
			Path:           "./data/clubattend.db",
			Host:           "127.0.0.1",
			Port:           3306,
			MaxConnections: 10,
			Timeout:        30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Mode:            "release",
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			AuthTimeout:  10 * time.Second,
		},
		Attendance: &AttendanceConfig{
			RotationInterval: 10 * time.Second,
			CodeLength:       3,
			Timezone:         "Local",
		},
		Auth: &AuthConfig{
			Issuer: "clubattend",
		},
	}
}

// FUNCTIONAL DISCOVERY: Comprehensive validation prevents invalid system configurations
// Critical for preventing runtime failures in production deployment
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if err := c.Database.ToDBConfig().Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP shutdown timeout must be positive")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	switch c.HTTP.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("HTTP mode must be debug, release or test")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.AuthTimeout <= 0 {
		return fmt.Errorf("WebSocket auth timeout must be positive")
	}

	if c.Attendance == nil {
		return fmt.Errorf("attendance configuration is required")
	}
	// FUNCTIONAL DISCOVERY: Short enough to limit code sharing, long enough
	// for a member to read the leader's screen and type the code
	if c.Attendance.RotationInterval < MinRotationInterval || c.Attendance.RotationInterval > MaxRotationInterval {
		return fmt.Errorf("attendance rotation interval must be between %s and %s", MinRotationInterval, MaxRotationInterval)
	}
	if c.Attendance.CodeLength < 3 || c.Attendance.CodeLength > 8 {
		return fmt.Errorf("attendance code length must be between 3 and 8")
	}
	if c.Attendance.MaxSessionDuration < 0 {
		return fmt.Errorf("attendance max session duration cannot be negative")
	}
	if _, err := c.Attendance.Location(); err != nil {
		return fmt.Errorf("attendance timezone: %w", err)
	}

	if c.Auth == nil {
		return fmt.Errorf("auth configuration is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required")
	}

	return nil
}

// ToDBConfig converts to the storage layer's connection settings
func (d *DatabaseConfig) ToDBConfig() *pkgdatabase.Config {
	cfg := pkgdatabase.DefaultConfig()
	cfg.Driver = d.Driver
	cfg.DatabasePath = d.Path
	cfg.Host = d.Host
	cfg.Port = d.Port
	cfg.User = d.User
	cfg.Password = d.Password
	cfg.Name = d.Name
	if d.MaxConnections > 0 {
		cfg.MaxConnections = d.MaxConnections
	}
	if d.Timeout > 0 {
		cfg.ConnMaxLifetime = d.Timeout
		cfg.ConnMaxIdleTime = d.Timeout / 3
	}
	return cfg
}

// Location resolves the timezone used for "today"
func (a *AttendanceConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

// LoadFromEnv applies CLUBATTEND_* environment variables over cfg
// FUNCTIONAL DISCOVERY: Environment variables override only the fields they name
func LoadFromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ConfigFile represents the file structure for file-based configuration
// FUNCTIONAL DISCOVERY: Separate struct for file parsing to handle duration strings
type ConfigFile struct {
	Database   *DatabaseConfigFile   `json:"database" yaml:"database"`
	HTTP       *HTTPConfigFile       `json:"http" yaml:"http"`
	WebSocket  *WebSocketConfigFile  `json:"websocket" yaml:"websocket"`
	Attendance *AttendanceConfigFile `json:"attendance" yaml:"attendance"`
	Auth       *AuthConfigFile       `json:"auth" yaml:"auth"`
}

type DatabaseConfigFile struct {
	Driver         string `json:"driver" yaml:"driver"`
	Path           string `json:"path" yaml:"path"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	User           string `json:"user" yaml:"user"`
	Password       string `json:"password" yaml:"password"`
	Name           string `json:"name" yaml:"name"`
	MaxConnections int    `json:"max_connections" yaml:"max_connections"`
	Timeout        string `json:"timeout" yaml:"timeout"`
	SeedFile       string `json:"seed_file" yaml:"seed_file"`
}

type HTTPConfigFile struct {
	Host            string   `json:"host" yaml:"host"`
	Port            int      `json:"port" yaml:"port"`
	ReadTimeout     string   `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string   `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout string   `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string `json:"allowed_origins" yaml:"allowed_origins"`
	Mode            string   `json:"mode" yaml:"mode"`
}

type WebSocketConfigFile struct {
	PingInterval string `json:"ping_interval" yaml:"ping_interval"`
	ReadTimeout  string `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `json:"write_timeout" yaml:"write_timeout"`
	AuthTimeout  string `json:"auth_timeout" yaml:"auth_timeout"`
}

type AttendanceConfigFile struct {
	RotationInterval   string `json:"rotation_interval" yaml:"rotation_interval"`
	CodeLength         int    `json:"code_length" yaml:"code_length"`
	MaxSessionDuration string `json:"max_session_duration" yaml:"max_session_duration"`
	Timezone           string `json:"timezone" yaml:"timezone"`
}

type AuthConfigFile struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string `json:"issuer" yaml:"issuer"`
}

// LoadFromFile reads a JSON or YAML file (chosen by extension) over the defaults.
// The result is not validated; env overrides may still complete it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file ConfigFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := file.apply(config); err != nil {
		return nil, fmt.Errorf("invalid value in %s: %w", path, err)
	}
	return config, nil
}

func (f *ConfigFile) apply(c *Config) error {
	if d := f.Database; d != nil {
		setString(&c.Database.Driver, d.Driver)
		setString(&c.Database.Path, d.Path)
		setString(&c.Database.Host, d.Host)
		setInt(&c.Database.Port, d.Port)
		setString(&c.Database.User, d.User)
		setString(&c.Database.Password, d.Password)
		setString(&c.Database.Name, d.Name)
		setInt(&c.Database.MaxConnections, d.MaxConnections)
		setString(&c.Database.SeedFile, d.SeedFile)
		if err := setDuration(&c.Database.Timeout, d.Timeout, "database.timeout"); err != nil {
			return err
		}
	}

	if h := f.HTTP; h != nil {
		setString(&c.HTTP.Host, h.Host)
		setInt(&c.HTTP.Port, h.Port)
		setString(&c.HTTP.Mode, h.Mode)
		if len(h.AllowedOrigins) > 0 {
			c.HTTP.AllowedOrigins = h.AllowedOrigins
		}
		if err := setDuration(&c.HTTP.ReadTimeout, h.ReadTimeout, "http.read_timeout"); err != nil {
			return err
		}
		if err := setDuration(&c.HTTP.WriteTimeout, h.WriteTimeout, "http.write_timeout"); err != nil {
			return err
		}
		if err := setDuration(&c.HTTP.ShutdownTimeout, h.ShutdownTimeout, "http.shutdown_timeout"); err != nil {
			return err
		}
	}

	if w := f.WebSocket; w != nil {
		if err := setDuration(&c.WebSocket.PingInterval, w.PingInterval, "websocket.ping_interval"); err != nil {
			return err
		}
		if err := setDuration(&c.WebSocket.ReadTimeout, w.ReadTimeout, "websocket.read_timeout"); err != nil {
			return err
		}
		if err := setDuration(&c.WebSocket.WriteTimeout, w.WriteTimeout, "websocket.write_timeout"); err != nil {
			return err
		}
		if err := setDuration(&c.WebSocket.AuthTimeout, w.AuthTimeout, "websocket.auth_timeout"); err != nil {
			return err
		}
	}

	if a := f.Attendance; a != nil {
		setInt(&c.Attendance.CodeLength, a.CodeLength)
		setString(&c.Attendance.Timezone, a.Timezone)
		if err := setDuration(&c.Attendance.RotationInterval, a.RotationInterval, "attendance.rotation_interval"); err != nil {
			return err
		}
		if err := setDuration(&c.Attendance.MaxSessionDuration, a.MaxSessionDuration, "attendance.max_session_duration"); err != nil {
			return err
		}
	}

	if a := f.Auth; a != nil {
		setString(&c.Auth.JWTSecret, a.JWTSecret)
		setString(&c.Auth.Issuer, a.Issuer)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

// LoadConfigWithPrecedence resolves configuration as defaults < file < environment
// and validates the result. A missing file is not an error.
func LoadConfigWithPrecedence(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		switch {
		case err == nil:
			config = fileConfig
		case errors.Is(err, os.ErrNotExist):
			// defaults and environment still apply
		default:
			return nil, err
		}
	}

	if err := LoadFromEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
