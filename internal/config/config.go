// Package config reads settings from the environment, after loading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	minJWTSecretLen = 32
)

type Config struct {
	ServerPort     string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	InviteBaseURL  string
	// TrustProxy makes rate limiting key on X-Forwarded-For instead of the
	// peer address. Only enable it behind a proxy that sets the header.
	TrustProxy bool

	StorageDriver    string
	DatabaseJSONPath string
	SQLitePath       string
	Postgres         PostgresConfig

	LogLevel  string
	LogFile   string
	LogFormat string
}

type PostgresConfig struct {
	User     string
	Password string
	DB       string
	Host     string
	Port     string
	SSLMode  string
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode)
}

// Load reads a .env file from the working directory if there is one, then
// builds the config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerPort:       getenv("SERVER_PORT", "8000"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		InviteBaseURL:    strings.TrimRight(getenv("INVITE_BASE_URL", "http://localhost:8000"), "/"),
		StorageDriver:    getenv("STORAGE_DRIVER", DriverFile),
		DatabaseJSONPath: getenv("DATABASE_JSON_PATH", "data/db.json"),
		SQLitePath:       getenv("SQLITE_PATH", "data/taskgroups.db"),
		Postgres: PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			Host:     getenv("POSTGRES_HOST", "localhost"),
			Port:     getenv("POSTGRES_PORT", "5432"),
			SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		},
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFile:   os.Getenv("LOG_FILE"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}

	minutes, err := strconv.Atoi(getenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30"))
	if err != nil || minutes < 1 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be a positive integer")
	}
	cfg.TokenTTL = time.Duration(minutes) * time.Minute

	if v := os.Getenv("TRUST_PROXY"); v != "" {
		if cfg.TrustProxy, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("TRUST_PROXY must be a boolean")
		}
	}

	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateAuth checks the settings only the API server needs.
func (c *Config) ValidateAuth() error {
	if len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be set and at least %d characters long", minJWTSecretLen)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverFile, DriverSQLite:
	case DriverPostgres:
		for name, v := range map[string]string{
			"POSTGRES_USER":     c.Postgres.User,
			"POSTGRES_PASSWORD": c.Postgres.Password,
			"POSTGRES_DB":       c.Postgres.DB,
		} {
			if v == "" {
				return fmt.Errorf("environment variable %s must be set", name)
			}
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
