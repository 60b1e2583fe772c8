// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Supervisor SupervisorConfig
	WeCom      WeComConfig
}

type ServerConfig struct {
	HTTPPort    string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SupervisorConfig struct {
	// ScanTimes is a comma-separated list of HH:MM times at which the
	// scheduler runs a full scan.
	ScanTimes string

	// ScanTimeout bounds a whole scan pass.
	ScanTimeout time.Duration

	// OperatorToken guards the manual trigger endpoint. Empty disables
	// the manual trigger.
	OperatorToken string
}

type WeComConfig struct {
	CorpID     string
	AgentID    string
	Secret     string
	APIBaseURL string
	AppBaseURL string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "taskwarden"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Supervisor: SupervisorConfig{
			ScanTimes:     getEnv("SCAN_TIMES", "09:00,10:00,14:00"),
			ScanTimeout:   getEnvAsDuration("SCAN_TIMEOUT", 5*time.Minute),
			OperatorToken: getEnv("OPERATOR_TOKEN", ""),
		},
		WeCom: WeComConfig{
			CorpID:     getEnv("WECOM_CORP_ID", ""),
			AgentID:    getEnv("WECOM_AGENT_ID", ""),
			Secret:     getEnv("WECOM_SECRET", ""),
			APIBaseURL: getEnv("WECOM_API_BASE_URL", "https://qyapi.weixin.qq.com"),
			AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
		},
	}, nil
}

// ValidateConfig checks settings that would otherwise fail at an awkward
// time, like a malformed schedule discovered at the first trigger.
func (c *Config) ValidateConfig() error {
	if _, err := c.ScanTimesOfDay(); err != nil {
		return err
	}
	if c.Supervisor.ScanTimeout <= 0 {
		return fmt.Errorf("SCAN_TIMEOUT must be positive, got %v", c.Supervisor.ScanTimeout)
	}
	return nil
}

// ScanTimesOfDay parses the configured HH:MM list into minute-of-day offsets.
func (c *Config) ScanTimesOfDay() ([]int, error) {
	parts := strings.Split(c.Supervisor.ScanTimes, ",")
	times := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hhmm := strings.Split(part, ":")
		if len(hhmm) != 2 {
			return nil, fmt.Errorf("invalid scan time %q: expected HH:MM", part)
		}
		hour, err := strconv.Atoi(hhmm[0])
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid scan time %q: bad hour", part)
		}
		minute, err := strconv.Atoi(hhmm[1])
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid scan time %q: bad minute", part)
		}
		times = append(times, hour*60+minute)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("SCAN_TIMES is empty")
	}
	return times, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}
