// Package config loads server configuration from flags, environment variables and .env
// files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Server ServerConfig
	Sync   SyncConfig
	Query  QueryConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk locations.
type DataConfig struct {
	// Path holds the catalog database and the search index.
	Path string
	// SourcesFile is the YAML file listing metadata sources (default: {data}/sources.yaml).
	SourcesFile string
}

// DatabasePath returns the catalog database file.
func (d DataConfig) DatabasePath() string {
	return filepath.Join(d.Path, "catalog.db")
}

// SearchIndexPath returns the search index directory.
func (d DataConfig) SearchIndexPath() string {
	return filepath.Join(d.Path, "search")
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 60s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed origins (default: *)
	// SyncRequestsPerMinute bounds sync triggers per client IP (default: 10, 0 disables).
	SyncRequestsPerMinute int
}

// SyncConfig holds remote metadata sync configuration.
type SyncConfig struct {
	// BatchSize is the number of games requested per page (default: 2500).
	BatchSize int
	// FetchTimeout bounds each remote request (default: 30s).
	FetchTimeout time.Duration
	// MaxRetries is the number of retries for a failed fetch (default: 3).
	MaxRetries int
	// RateLimit is the sustained request rate per source host, in requests per second.
	// Zero disables limiting.
	RateLimit float64
}

// QueryConfig holds read path configuration.
type QueryConfig struct {
	// CacheSize is the number of keysets, totals and ranks kept (default: 256).
	CacheSize int
}

// LoadConfig loads configuration from the process arguments. See Load.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	flags := flag.NewFlagSet("playlore", flag.ContinueOnError)

	env := flags.String("env", "", "Environment (development, staging, production)")
	logLevel := flags.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flags.String("data-path", "", "Directory holding the catalog database and search index")
	sourcesFile := flags.String("sources-file", "", "YAML file listing metadata sources")

	serverPort := flags.String("port", "", "Server port (default: 8080)")
	readTimeout := flags.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flags.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := flags.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flags.String("cors-origins", "", "Comma-separated allowed CORS origins")
	syncRPM := flags.String("sync-requests-per-minute", "", "Sync triggers per client per minute (default: 10)")

	syncBatchSize := flags.String("sync-batch-size", "", "Games per remote page (default: 2500)")
	syncFetchTimeout := flags.String("sync-fetch-timeout", "", "Remote request timeout (default: 30s)")
	syncMaxRetries := flags.String("sync-max-retries", "", "Retries per failed remote request (default: 3)")
	syncRateLimit := flags.String("sync-rate-limit", "", "Remote requests per second per host (default: 5)")

	cacheSize := flags.String("query-cache-size", "", "Cached query results (default: 256)")

	envFile := flags.String("env-file", ".env", "Path to .env file")

	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	explicitEnvFile := false
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "env-file" {
			explicitEnvFile = true
		}
	})
	if err := loadEnvFile(*envFile, explicitEnvFile); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Path:        getConfigValue(*dataPath, "DATA_PATH", ""),
			SourcesFile: getConfigValue(*sourcesFile, "SOURCES_FILE", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if cfg.Server.SyncRequestsPerMinute, err = getIntConfigValue(*syncRPM, "SERVER_SYNC_REQUESTS_PER_MINUTE", 10); err != nil {
		return nil, err
	}

	if cfg.Sync.BatchSize, err = getIntConfigValue(*syncBatchSize, "SYNC_BATCH_SIZE", 2500); err != nil {
		return nil, err
	}
	if cfg.Sync.FetchTimeout, err = getDurationConfigValue(*syncFetchTimeout, "SYNC_FETCH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.Sync.MaxRetries, err = getIntConfigValue(*syncMaxRetries, "SYNC_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	rateStr := getConfigValue(*syncRateLimit, "SYNC_RATE_LIMIT", "5")
	if cfg.Sync.RateLimit, err = strconv.ParseFloat(rateStr, 64); err != nil {
		return nil, fmt.Errorf("invalid sync rate limit %q: %w", rateStr, err)
	}

	if cfg.Query.CacheSize, err = getIntConfigValue(*cacheSize, "QUERY_CACHE_SIZE", 256); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Server.SyncRequestsPerMinute < 0 {
		return fmt.Errorf("sync requests per minute cannot be negative, got %d", c.Server.SyncRequestsPerMinute)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch size must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync max retries cannot be negative, got %d", c.Sync.MaxRetries)
	}
	if c.Sync.FetchTimeout <= 0 {
		return fmt.Errorf("sync fetch timeout must be positive, got %s", c.Sync.FetchTimeout)
	}
	if c.Sync.RateLimit < 0 {
		return fmt.Errorf("sync rate limit cannot be negative, got %g", c.Sync.RateLimit)
	}
	if c.Query.CacheSize < 0 {
		return fmt.Errorf("query cache size cannot be negative, got %d", c.Query.CacheSize)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPaths resolves the data directory (default ~/Playlore) and the sources
// file inside it.
func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	c.Data.Path, err = expandPath(c.Data.Path, filepath.Join(homeDir, "Playlore"))
	if err != nil {
		return err
	}
	c.Data.SourcesFile, err = expandPath(c.Data.SourcesFile, filepath.Join(c.Data.Path, "sources.yaml"))
	return err
}

// loadEnvFile copies .env values into the environment for keys that are unset or empty,
// so an empty variable does not hide the file. The default .env may be missing; a file
// named with -env-file must exist.
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	for key, value := range values {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s from %s: %w", key, path, err)
		}
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unlike the string lookup, a malformed value is an error rather than a silent default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return v, nil
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
