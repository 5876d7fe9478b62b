package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Attendance AttendanceConfig `yaml:"attendance"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig limits requests per client IP
type RateLimitConfig struct {
	Max        int `yaml:"max"`
	Expiration int `yaml:"expiration"` // seconds
}

// AuthConfig holds auth-specific configuration
type AuthConfig struct {
	KeysPath              string `yaml:"keys_path"`
	ActiveKID             string `yaml:"active_kid"`
	Issuer                string `yaml:"issuer"`
	AccessTokenTTLMinutes int    `yaml:"access_token_ttl_minutes"`
	CookieName            string `yaml:"cookie_name"`
	CookieSecure          bool   `yaml:"cookie_secure"`
}

// AccessTokenTTL returns the lifetime of issued access tokens
func (a *AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres (default) or sqlite
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"dbname"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
}

// RedisConfig holds redis-specific configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// AttendanceConfig holds the QR claim and session housekeeping settings
type AttendanceConfig struct {
	QRWindowSeconds        int          `yaml:"qr_window_seconds"`
	SessionCacheTTLSeconds int          `yaml:"session_cache_ttl_seconds"`
	Reaper                 ReaperConfig `yaml:"reaper"`
}

// ReaperConfig controls the background job that closes stale sessions
type ReaperConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Schedule     string `yaml:"schedule"`
	GraceMinutes int    `yaml:"grace_minutes"`
}

// QRWindow is both the lifetime of an issued claim and its max accepted age
func (a *AttendanceConfig) QRWindow() time.Duration {
	return time.Duration(a.QRWindowSeconds) * time.Second
}

// SessionCacheTTL returns how long session snapshots stay in redis
func (a *AttendanceConfig) SessionCacheTTL() time.Duration {
	return time.Duration(a.SessionCacheTTLSeconds) * time.Second
}

const (
	DefaultQRWindowSeconds        = 20
	DefaultSessionCacheTTLSeconds = 30
	DefaultAccessTokenTTLMinutes  = 7 * 24 * 60
	DefaultCookieName             = "access_token"
	DefaultReaperSchedule         = "@every 1m"
	DefaultRateLimitMax           = 100
	DefaultRateLimitExpiration    = 60
)

var (
	ErrMissingKeysPath   = errors.New("auth.keys_path is required")
	ErrMissingActiveKID  = errors.New("auth.active_kid is required")
	ErrInvalidQRWindow   = errors.New("attendance.qr_window_seconds must be positive")
	ErrInvalidServerPort = errors.New("server.port must be between 1 and 65535")
	ErrUnknownDBDriver   = errors.New("database.driver must be postgres or sqlite")
)

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills in zero values that have a sensible default
func (c *Config) ApplyDefaults() {
	if c.Attendance.QRWindowSeconds == 0 {
		c.Attendance.QRWindowSeconds = DefaultQRWindowSeconds
	}
	if c.Attendance.SessionCacheTTLSeconds == 0 {
		c.Attendance.SessionCacheTTLSeconds = DefaultSessionCacheTTLSeconds
	}
	if c.Attendance.Reaper.Schedule == "" {
		c.Attendance.Reaper.Schedule = DefaultReaperSchedule
	}
	if c.Auth.AccessTokenTTLMinutes == 0 {
		c.Auth.AccessTokenTTLMinutes = DefaultAccessTokenTTLMinutes
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = DefaultCookieName
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = c.App.Name
	}
	if c.Server.RateLimit.Max == 0 {
		c.Server.RateLimit.Max = DefaultRateLimitMax
	}
	if c.Server.RateLimit.Expiration == 0 {
		c.Server.RateLimit.Expiration = DefaultRateLimitExpiration
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
}

// Validate rejects configurations the server must not start with.
// There is no fallback signing key: keys_path and active_kid are mandatory.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.KeysPath) == "" {
		return ErrMissingKeysPath
	}
	if strings.TrimSpace(c.Auth.ActiveKID) == "" {
		return ErrMissingActiveKID
	}
	if c.Attendance.QRWindowSeconds <= 0 {
		return ErrInvalidQRWindow
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidServerPort
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return ErrUnknownDBDriver
	}
	return nil
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return net.JoinHostPort(r.Host, fmt.Sprintf("%d", r.Port))
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
