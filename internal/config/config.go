package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"phishing-check/backend/internal/phishtank"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port           string
	PhishTank      phishtank.Config
	DBPath         string
	AllowedOrigins []string
	TrustedProxies []string
	LogLevel       logrus.Level
	// RateLimitRequests per client IP per RateLimitWindow; 0 disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// HistoryEnabled reports whether lookups are persisted.
func (c Config) HistoryEnabled() bool {
	return c.DBPath != ""
}

// Load reads configuration from the environment after applying any .env
// files found in the working directory. Variables already set win over .env.
func Load(files ...string) Config {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the supplied lookup function.
func FromEnv(getenv func(string) string) Config {
	cfg := Config{
		Port:     "2000",
		DBPath:   filepath.Join("data", "phishing-check.db"),
		LogLevel: logrus.InfoLevel,

		RateLimitRequests: 100,
		RateLimitWindow:   15 * time.Minute,
		PhishTank: phishtank.Config{
			APIKey:    strings.TrimSpace(getenv("PHISHTANK_API_KEY")),
			BaseURL:   strings.TrimSpace(getenv("PHISHTANK_API_URL")),
			UserAgent: strings.TrimSpace(getenv("PHISHTANK_USER_AGENT")),
		},
	}

	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		cfg.Port = port
	}
	if timeout := strings.TrimSpace(getenv("PHISHTANK_TIMEOUT")); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.PhishTank.Timeout = d
		} else {
			logrus.WithField("value", timeout).Warn("ignoring invalid PHISHTANK_TIMEOUT")
		}
	}
	if path, ok := lookup(getenv, "PHISHING_DB_PATH"); ok {
		if strings.EqualFold(path, "off") {
			cfg.DBPath = ""
		} else {
			cfg.DBPath = path
		}
	}
	cfg.AllowedOrigins = splitList(getenv("CORS_ALLOWED_ORIGINS"))
	cfg.TrustedProxies = splitList(getenv("TRUSTED_PROXIES"))
	if value, ok := lookup(getenv, "RATE_LIMIT_REQUESTS"); ok {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			cfg.RateLimitRequests = n
		} else {
			logrus.WithField("value", value).Warn("ignoring invalid RATE_LIMIT_REQUESTS")
		}
	}
	if value, ok := lookup(getenv, "RATE_LIMIT_WINDOW"); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			cfg.RateLimitWindow = d
		} else {
			logrus.WithField("value", value).Warn("ignoring invalid RATE_LIMIT_WINDOW")
		}
	}
	if level := strings.TrimSpace(getenv("LOG_LEVEL")); level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			cfg.LogLevel = parsed
		} else {
			logrus.WithField("value", level).Warn("ignoring invalid LOG_LEVEL")
		}
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func lookup(getenv func(string) string, key string) (string, bool) {
	value := strings.TrimSpace(getenv(key))
	return value, value != ""
}
