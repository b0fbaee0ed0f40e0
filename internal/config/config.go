package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDriver         string        `env:"DATABASE_DRIVER,default=postgres"`
	DatabaseDSN            string        `env:"DATABASE_DSN,required=true"`
	RedisURL               string        `env:"REDIS_URL,required=true"`
	SiteSecret             string        `env:"SITE_SECRET,required=true"`
	SiteName               string        `env:"SITE_NAME,default=Fitting Requests"`
	AdminEmail             string        `env:"ADMIN_EMAIL,default=admin@example.com"`
	CacheGroup             string        `env:"CACHE_GROUP,default=fitting_requests"`
	RateLimitBackend       string        `env:"RATE_LIMIT_BACKEND,default=database"`
	AlertWebhookURL        string        `env:"ALERT_WEBHOOK_URL"`
	AdminAPIKeyHash        string        `env:"ADMIN_API_KEY_HASH"`
	TrustedProxies         string        `env:"TRUSTED_PROXIES"`
	NotificationWebhookURL string        `env:"NOTIFICATION_WEBHOOK_URL"`
	DispatchBatchSize      int           `env:"DISPATCH_BATCH_SIZE,default=10"`
	DispatchInterval       time.Duration `env:"DISPATCH_INTERVAL,default=30s"`
	APIPort                int           `env:"API_PORT,default=8080"`
	LogLevel               string        `env:"LOG_LEVEL,default=info"`
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	switch cfg.DatabaseDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("failed to load config: unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	cfg.RateLimitBackend = strings.ToLower(strings.TrimSpace(cfg.RateLimitBackend))
	switch cfg.RateLimitBackend {
	case "database", "redis":
	default:
		return nil, fmt.Errorf("failed to load config: unsupported RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}

	return &cfg, nil
}

// TrustedProxyList splits TRUSTED_PROXIES on commas.
func (c *Config) TrustedProxyList() []string {
	var out []string
	for _, entry := range strings.Split(c.TrustedProxies, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
