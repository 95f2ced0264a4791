package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Storage  StorageConfig
	Report   ReportConfig
	Rules    presence.Rules
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type StorageConfig struct {
	BasePath      string
	MaxUploadSize int64
}

// ReportConfig controls stored reports and the evaluation worker pool.
type ReportConfig struct {
	Retention     time.Duration
	PurgeInterval time.Duration
	Workers       int
	RulesFile     string
}

func Load() (*Config, error) {
	// A missing .env is fine, the environment may be set by the runtime.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "presence"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// Storage configuration
	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE", "20971520"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}

	config.Storage = StorageConfig{
		BasePath:      getEnv("STORAGE_PATH", "./storage"),
		MaxUploadSize: maxUpload,
	}

	// Report configuration
	retention, err := time.ParseDuration(getEnv("REPORT_RETENTION", "2160h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_RETENTION: %w", err)
	}
	purgeInterval, err := time.ParseDuration(getEnv("REPORT_PURGE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_PURGE_INTERVAL: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("REPORT_WORKERS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_WORKERS: %w", err)
	}

	config.Report = ReportConfig{
		Retention:     retention,
		PurgeInterval: purgeInterval,
		Workers:       workers,
		RulesFile:     getEnv("RULES_FILE", ""),
	}

	// Rule configuration
	config.Rules = presence.DefaultRules()
	if config.Report.RulesFile != "" {
		rules, err := LoadRules(config.Report.RulesFile)
		if err != nil {
			return nil, err
		}
		config.Rules = rules
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.Report.Retention < 0 {
		return fmt.Errorf("REPORT_RETENTION must not be negative")
	}
	if c.Report.Workers < 0 {
		return fmt.Errorf("REPORT_WORKERS must not be negative")
	}
	return c.Rules.Validate()
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
