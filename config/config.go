// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/warp/leave-tracker/generic"
)

type Config struct {
	Port   int
	DBPath string
	Env    string
	// LogLevel is a zap level name; empty picks one from Env.
	LogLevel   string
	RosterFile string

	SystemStartYear   int
	AccrualMode       generic.AccrualMode
	RecomputeInterval time.Duration

	EnableEmail  bool
	LogEmail     bool
	AdminEmail   string
	NotifyEmail  string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	AdminUser         string
	AdminPasswordHash string
	AdminPassword     string
	SessionSecret     string
	SessionTTL        time.Duration

	CORSOrigins []string
}

// Load reads the environment. Malformed numbers and durations are errors;
// everything else falls back to a default.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "leave.db"),
		Env:        getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", ""),
		RosterFile: getEnv("ROSTER_FILE", ""),

		AccrualMode: generic.ParseAccrualMode(getEnv("ACCRUAL_MODE", string(generic.AccrueToDate))),

		AdminEmail:   getEnv("ADMIN_EMAIL", ""),
		NotifyEmail:  getEnv("NOTIFY_EMAIL", ""),
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		SessionSecret:     getEnv("SESSION_SECRET", ""),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SystemStartYear, err = getInt("SYSTEM_START_YEAR", 2026); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RecomputeInterval, err = getDuration("RECOMPUTE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EnableEmail, err = getBool("ENABLE_EMAIL", false); err != nil {
		return nil, err
	}
	if cfg.LogEmail, err = getBool("LOG_EMAIL", false); err != nil {
		return nil, err
	}
	if cfg.SMTPUsername == "" {
		cfg.SMTPUsername = cfg.AdminEmail
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a boolean", key, v)
	}
	return b, nil
}

// getDuration accepts Go durations ("90m") or a bare number of seconds.
// Zero disables whatever the duration drives.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
