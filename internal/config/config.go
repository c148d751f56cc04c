// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Data      DataConfig
	DB        DBConfig
	Policy    PolicyConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

// ServerConfig holds the identity advertised during MCP initialization.
type ServerConfig struct {
	Name    string
	Version string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// DataConfig holds on-disk storage configuration.
type DataConfig struct {
	// Dir is the base directory for the sqlite database and search index.
	Dir string
}

// DBConfig selects and configures the storage backend.
type DBConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// DSN is the postgres connection string. Ignored for sqlite,
	// which derives its path from Data.Dir.
	DSN string
}

// PolicyConfig holds lending policy overrides. All amounts are cents.
type PolicyConfig struct {
	LoanPeriodDays      int
	FinePerDayCents     int
	MaxRenewals         int
	PickupWindowDays    int
	ReservationLifeDays int
	FineThresholdCents  int
}

// RateLimitConfig holds per-session tool call limits.
type RateLimitConfig struct {
	RPS   float64 // Tool calls per second per session
	Burst int     // Burst size per session
}

// JobsConfig holds cron schedules for the circulation sweeps.
type JobsConfig struct {
	OverdueSchedule string // Cron spec for overdue marking
	ExpirySchedule  string // Cron spec for reservation expiry
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	serverName := flag.String("server-name", "", "Name advertised to MCP clients")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	dataDir := flag.String("data-dir", "", "Base directory for database and search index")
	dbDriver := flag.String("db-driver", "", "Storage backend (sqlite, postgres)")
	dbDSN := flag.String("db-dsn", "", "Postgres connection string")

	// Policy flags
	loanPeriodDays := flag.String("loan-period-days", "", "Loan period in days (default: 14)")
	finePerDay := flag.String("fine-per-day", "", "Overdue fine per day in cents (default: 25)")
	maxRenewals := flag.String("max-renewals", "", "Maximum renewals per checkout (default: 3)")
	pickupWindowDays := flag.String("pickup-window-days", "", "Reservation pickup window in days (default: 3)")
	reservationLifeDays := flag.String("reservation-life-days", "", "Default reservation lifetime in days (default: 90)")
	fineThreshold := flag.String("fine-threshold", "", "Fine balance in cents that blocks checkouts (default: 1000)")

	// Rate limit flags
	rateRPS := flag.String("rate-rps", "", "Tool calls per second per session (default: 10)")
	rateBurst := flag.String("rate-burst", "", "Tool call burst per session (default: 20)")

	// Job schedule flags
	overdueSchedule := flag.String("overdue-schedule", "", "Cron spec for overdue marking (default: @hourly)")
	expirySchedule := flag.String("expiry-schedule", "", "Cron spec for reservation expiry (default: @hourly)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		Server: ServerConfig{
			Name:    getConfigValue(*serverName, "SERVER_NAME", "OpenShelf"),
			Version: getConfigValue("", "SERVER_VERSION", "1.0.0"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", "text"),
		},
		Data: DataConfig{
			Dir: getConfigValue(*dataDir, "DATA_DIR", ""),
		},
		DB: DBConfig{
			Driver: getConfigValue(*dbDriver, "DB_DRIVER", "sqlite"),
			DSN:    getConfigValue(*dbDSN, "DB_DSN", ""),
		},
		Policy: PolicyConfig{
			LoanPeriodDays:      getIntConfigValue(*loanPeriodDays, "LOAN_PERIOD_DAYS", 14),
			FinePerDayCents:     getIntConfigValue(*finePerDay, "FINE_PER_DAY_CENTS", 25),
			MaxRenewals:         getIntConfigValue(*maxRenewals, "MAX_RENEWALS", 3),
			PickupWindowDays:    getIntConfigValue(*pickupWindowDays, "PICKUP_WINDOW_DAYS", 3),
			ReservationLifeDays: getIntConfigValue(*reservationLifeDays, "RESERVATION_LIFE_DAYS", 90),
			FineThresholdCents:  getIntConfigValue(*fineThreshold, "FINE_THRESHOLD_CENTS", 1000),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatConfigValue(*rateRPS, "RATE_LIMIT_RPS", 10),
			Burst: getIntConfigValue(*rateBurst, "RATE_LIMIT_BURST", 20),
		},
		Jobs: JobsConfig{
			OverdueSchedule: getConfigValue(*overdueSchedule, "OVERDUE_SCHEDULE", "@hourly"),
			ExpirySchedule:  getConfigValue(*expirySchedule, "EXPIRY_SCHEDULE", "@hourly"),
		},
	}

	// Expand and validate the data directory.
	if err := cfg.expandDataDir(); err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server name is required")
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

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[strings.ToLower(c.Logger.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logger.Format)
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.Data.Dir == "" {
			return errors.New("data dir cannot be empty after expansion")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return errors.New("DB_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid db driver: %s (must be sqlite or postgres)", c.DB.Driver)
	}

	if c.Policy.LoanPeriodDays <= 0 {
		return fmt.Errorf("loan period must be positive, got %d", c.Policy.LoanPeriodDays)
	}
	if c.Policy.FinePerDayCents < 0 {
		return fmt.Errorf("fine per day cannot be negative, got %d", c.Policy.FinePerDayCents)
	}
	if c.Policy.MaxRenewals < 0 {
		return fmt.Errorf("max renewals cannot be negative, got %d", c.Policy.MaxRenewals)
	}
	if c.Policy.PickupWindowDays <= 0 {
		return fmt.Errorf("pickup window must be positive, got %d", c.Policy.PickupWindowDays)
	}
	if c.Policy.ReservationLifeDays <= 0 {
		return fmt.Errorf("reservation life must be positive, got %d", c.Policy.ReservationLifeDays)
	}
	if c.Policy.FineThresholdCents < 0 {
		return fmt.Errorf("fine threshold cannot be negative, got %d", c.Policy.FineThresholdCents)
	}

	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive, got %g", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive, got %d", c.RateLimit.Burst)
	}

	return nil
}

// DatabasePath returns the sqlite database file path under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.Dir, "openshelf.db")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataDir expands ~ and makes the data dir absolute.
func (c *Config) expandDataDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "OpenShelf", "data")

	expanded, err := expandPath(c.Data.Dir, defaultPath)
	if err != nil {
		return err
	}
	c.Data.Dir = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
