// README: Config loader with env defaults for HTTP, storage, maps, pricing, auth, events and AI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type MapsConfig struct {
	APIKey           string
	Language         string
	Region           string
	DistanceFallback bool
	CacheTTL         time.Duration
}

type RouteConfig struct {
	LookupTimeout time.Duration
	SessionTTL    time.Duration
	SettleTimeout time.Duration
}

type Config struct {
	Env string
	Log struct {
		Level string
	}
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Maps    MapsConfig
	Route   RouteConfig
	Pricing struct {
		Model string
	}
	Location *time.Location
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	AI struct {
		GeminiKey    string
		Model        string
		MonthlyQuota int
	}
}

func Load() (Config, error) {
	var cfg Config
	cfg.Env = envOrDefault("RIDEBOOK_ENV", "development")
	cfg.Log.Level = envOrDefault("RIDEBOOK_LOG_LEVEL", "info")
	cfg.HTTP.Addr = envOrDefault("RIDEBOOK_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("RIDEBOOK_DB_DSN")
	cfg.Redis.Addr = os.Getenv("RIDEBOOK_REDIS_ADDR")

	cfg.Maps.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Maps.Language = envOrDefault("RIDEBOOK_MAPS_LANGUAGE", "th")
	cfg.Maps.Region = envOrDefault("RIDEBOOK_MAPS_REGION", "TH")
	cfg.Maps.DistanceFallback = envOrDefaultBool("RIDEBOOK_DISTANCE_FALLBACK", false)
	cfg.Maps.CacheTTL = time.Duration(envOrDefaultInt("RIDEBOOK_GEO_CACHE_TTL_SECONDS", 3600)) * time.Second

	cfg.Route.LookupTimeout = time.Duration(envOrDefaultInt("RIDEBOOK_LOOKUP_TIMEOUT_MS", 8000)) * time.Millisecond
	cfg.Route.SessionTTL = time.Duration(envOrDefaultInt("RIDEBOOK_SESSION_TTL_MINUTES", 30)) * time.Minute
	cfg.Route.SettleTimeout = time.Duration(envOrDefaultInt("RIDEBOOK_CHECKOUT_SETTLE_MS", 3000)) * time.Millisecond

	cfg.Pricing.Model = strings.ToLower(envOrDefault("RIDEBOOK_PRICING_MODEL", "flat"))

	tz := envOrDefault("RIDEBOOK_TIMEZONE", "Asia/Bangkok")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("RIDEBOOK_TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	cfg.Firebase.ProjectID = os.Getenv("RIDEBOOK_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("RIDEBOOK_FIREBASE_CREDENTIALS")

	cfg.Kafka.Brokers = envList("RIDEBOOK_KAFKA_BROKERS")
	cfg.Kafka.Topic = envOrDefault("RIDEBOOK_KAFKA_TOPIC", "booking.events")

	cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.AI.Model = envOrDefault("RIDEBOOK_GEMINI_MODEL", "gemini-2.0-flash")
	cfg.AI.MonthlyQuota = envOrDefaultInt("RIDEBOOK_ASSIST_MONTHLY_QUOTA", 100)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Pricing.Model {
	case "flat", "bracketed":
	default:
		return fmt.Errorf("RIDEBOOK_PRICING_MODEL must be flat or bracketed, got %q", c.Pricing.Model)
	}
	if c.Route.LookupTimeout <= 0 {
		return fmt.Errorf("RIDEBOOK_LOOKUP_TIMEOUT_MS must be positive")
	}
	if c.Route.SessionTTL <= 0 {
		return fmt.Errorf("RIDEBOOK_SESSION_TTL_MINUTES must be positive")
	}
	return nil
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

// envList splits a comma separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
