package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Redis     RedisConfig     `yaml:"redis"`
	Push      PushConfig      `yaml:"push"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	Timezone        string        `yaml:"timezone" env:"SERVER_TIMEZONE"` // event dates are local to this zone
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
}

// AuthConfig describes how tokens from the identity provider are verified
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"AUTH_ISSUER"`
	Audience  string `yaml:"audience" env:"AUTH_AUDIENCE"`
}

// StorageConfig holds S3 object storage configuration
type StorageConfig struct {
	Region        string        `yaml:"region" env:"S3_REGION"`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET"`
	AccessKey     string        `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey     string        `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT"` // custom endpoint for S3-compatible providers
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL"`
}

// GeocodingConfig holds the city lookup configuration
type GeocodingConfig struct {
	Enabled       bool          `yaml:"enabled" env:"GEOCODING_ENABLED"`
	BaseURL       string        `yaml:"base_url" env:"GEOCODING_BASE_URL"`
	UserAgent     string        `yaml:"user_agent" env:"GEOCODING_USER_AGENT"`
	Country       string        `yaml:"country" env:"GEOCODING_COUNTRY"`
	Timeout       time.Duration `yaml:"timeout" env:"GEOCODING_TIMEOUT"`
	RatePerSecond float64       `yaml:"rate_per_second" env:"GEOCODING_RATE_PER_SECOND"`
}

// RedisConfig holds Redis configuration; an empty address disables Redis
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// PushConfig holds APNs configuration; an empty key file disables push
type PushConfig struct {
	KeyFile    string `yaml:"key_file" env:"APNS_KEY_FILE"`
	KeyID      string `yaml:"key_id" env:"APNS_KEY_ID"`
	TeamID     string `yaml:"team_id" env:"APNS_TEAM_ID"`
	Topic      string `yaml:"topic" env:"APNS_TOPIC"`
	Production bool   `yaml:"production" env:"APNS_PRODUCTION"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Load reads configuration from defaults, the YAML file (if present),
// a .env file (if present) and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// environment only
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Server.ShutdownTimeout = 15 * time.Second
	cfg.Server.Timezone = "Europe/Paris"

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.DBName = "entrepreneur"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 10

	cfg.Storage.Region = "eu-west-3"
	cfg.Storage.PresignTTL = 5 * time.Minute

	cfg.Geocoding.Enabled = true
	cfg.Geocoding.BaseURL = "https://nominatim.openstreetmap.org"
	cfg.Geocoding.UserAgent = "entrepreneur-connect/1.0"
	cfg.Geocoding.Country = "France"
	cfg.Geocoding.Timeout = 5 * time.Second
	cfg.Geocoding.RatePerSecond = 1

	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
}

// Validate checks the fields the server cannot start without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database.dbname is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	if c.Geocoding.RatePerSecond <= 0 {
		return fmt.Errorf("geocoding.rate_per_second must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.MaxConns)
}

// Location returns the time zone event dates are interpreted in
func (c *ServerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr returns the listen address of the HTTP server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
