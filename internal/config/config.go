package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Web front-end
	Port               string
	RateLimitPerMinute int

	// Expense backend consumed by the front-end and gastosctl
	APIBaseURL     string
	RequestTimeout time.Duration
	// BreakerFailures consecutive backend failures open the circuit; 0 disables it.
	BreakerFailures int
	BreakerCooldown time.Duration

	// Logging
	LogLevel string

	// Development backend
	BackendPort string
	// Store selects the backend persistence: "sqlite" or "memory".
	Store          string
	SQLiteDBPath   string
	SeedGroupsPath string
	AMQPURL        string
	AMQPExchange   string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		APIBaseURL:     strings.TrimRight(getEnv("GASTOS_API_URL", "http://localhost:8080"), "/"),
		RequestTimeout: getEnvDuration("GASTOS_API_TIMEOUT", 15*time.Second),

		BreakerFailures: getEnvInt("GASTOS_API_BREAKER_FAILURES", 5),
		BreakerCooldown: getEnvDuration("GASTOS_API_BREAKER_COOLDOWN", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendPort:    getEnv("BACKEND_PORT", "8080"),
		Store:          getEnv("GASTOS_STORE", "sqlite"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/gastos.db"),
		SeedGroupsPath: getEnv("GASTOS_SEED_GROUPS", "./data/grupos.txt"),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "gastos"),
	}
}

// Validate checks the front-end settings and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	errors = append(errors, validatePort("port", c.Port)...)

	if parsed, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIBaseURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	} else if parsed.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': missing host", c.APIBaseURL))
	}

	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	} else if c.RequestTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at most 5 minutes", c.RequestTimeout))
	}

	if c.BreakerFailures < 0 {
		errors = append(errors, fmt.Sprintf("invalid breaker failures %d: cannot be negative", c.BreakerFailures))
	}
	if c.BreakerFailures > 0 && c.BreakerCooldown < time.Second {
		errors = append(errors, fmt.Sprintf("invalid breaker cooldown %v: must be at least 1 second", c.BreakerCooldown))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	return joinErrors(errors)
}

// ValidateBackend checks the development backend settings.
func (c *Config) ValidateBackend() error {
	var errors []string

	errors = append(errors, validatePort("backend port", c.BackendPort)...)

	switch c.Store {
	case "sqlite":
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errors = append(errors, "SQLite database path cannot be empty")
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid store '%s': must be 'sqlite' or 'memory'", c.Store))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	return joinErrors(errors)
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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
