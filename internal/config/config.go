package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Data backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite, BackendBolt}

type Config struct {
	// HTTP Server
	Port string
	// Mutating requests allowed per client per minute; 0 disables limiting.
	RateLimitPerMinute int
	// Extra networks, in CIDR form, allowed to set forwarding headers.
	TrustedProxies []string

	// Persistence
	DataBackend  string
	DataFile     string
	SQLiteDBPath string
	BoltDBPath   string
	SeedFile     string

	// Background loops. A zero interval disables the loop.
	AutosaveInterval   time.Duration
	AlertCheckInterval time.Duration
	GoalReminderWindow time.Duration

	// CSV import previews
	ImportPreviewTTL      time.Duration
	ImportPreviewCapacity int

	// AMQP alert publishing, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", BackendFile),
		DataFile:     getEnv("DATA_FILE", "./data/fintrack.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		BoltDBPath:   getEnv("BOLT_DB_PATH", "./data/fintrack.bolt"),
		SeedFile:     getEnv("SEED_FILE", ""),

		AutosaveInterval:   getEnvDuration("AUTOSAVE_INTERVAL", 5*time.Second),
		AlertCheckInterval: getEnvDuration("ALERT_CHECK_INTERVAL", time.Hour),
		GoalReminderWindow: getEnvDuration("GOAL_REMINDER_WINDOW", 7*24*time.Hour),

		ImportPreviewTTL:      getEnvDuration("IMPORT_PREVIEW_TTL", 15*time.Minute),
		ImportPreviewCapacity: getEnvInt("IMPORT_PREVIEW_CAPACITY", 32),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "alerts"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be 0 or positive", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 10.1.0.0/16", cidr))
		}
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendFile:
		errors = appendPathErrors(errors, "data file", c.DataFile, c.DataBackend)
	case BackendSQLite:
		errors = appendPathErrors(errors, "SQLite database path", c.SQLiteDBPath, c.DataBackend)
	case BackendBolt:
		errors = appendPathErrors(errors, "bolt database path", c.BoltDBPath, c.DataBackend)
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file '%s' is not readable: %v", c.SeedFile, err))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate loop intervals
	if c.AutosaveInterval < 0 || (c.AutosaveInterval > 0 && c.AutosaveInterval < 100*time.Millisecond) {
		errors = append(errors, fmt.Sprintf("invalid autosave interval %v: must be 0 or at least 100ms", c.AutosaveInterval))
	}
	if c.AlertCheckInterval < 0 || (c.AlertCheckInterval > 0 && c.AlertCheckInterval < time.Second) {
		errors = append(errors, fmt.Sprintf("invalid alert check interval %v: must be 0 or at least 1 second", c.AlertCheckInterval))
	} else if c.AlertCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid alert check interval %v: must be at most 24 hours", c.AlertCheckInterval))
	}
	if c.GoalReminderWindow < 0 || c.GoalReminderWindow > 366*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid goal reminder window %v: must be between 0 and 366 days", c.GoalReminderWindow))
	}

	if c.ImportPreviewTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid import preview TTL %v: must be at least 1 second", c.ImportPreviewTTL))
	}
	if c.ImportPreviewCapacity < 1 || c.ImportPreviewCapacity > 10000 {
		errors = append(errors, fmt.Sprintf("invalid import preview capacity %d: must be between 1 and 10000", c.ImportPreviewCapacity))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// appendPathErrors checks that path is set and its directory exists or can be created.
func appendPathErrors(errors []string, what, path, backend string) []string {
	if path == "" {
		return append(errors, fmt.Sprintf("%s cannot be empty when using %s backend", what, backend))
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create %s directory '%s': %v", what, dir, err))
			}
		}
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
