package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	OpenWeatherAPIKey string

	// SQLite database file for history and users.
	DBPath string

	// CacheTTL is how long a fetched observation is served from memory.
	CacheTTL time.Duration

	// PendingLoginTTL bounds how long an unconfirmed login stays valid.
	PendingLoginTTL time.Duration

	// ServiceSecret authorizes the trusted caller of the login confirm step.
	ServiceSecret string

	// FetchInterval controls how often the scheduler refreshes each city.
	FetchInterval time.Duration

	// Cities the scheduler keeps warm. May be empty.
	Cities []string

	// BotToken enables the Telegram login bot when set.
	BotToken string

	HTTPTimeout time.Duration
	Port        string
	LogLevel    string
	Env         string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.ServiceSecret = os.Getenv("SERVICE_SECRET")
	cfg.BotToken = os.Getenv("BOT_TOKEN")

	cfg.DBPath = getenvDefault("DB_PATH", "weather.db")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Env = getenvDefault("APP_ENV", "development")

	var err error
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.PendingLoginTTL, err = getenvDuration("PENDING_LOGIN_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.Cities = splitList(os.Getenv("WEATHER_CITIES"))

	if cfg.ServiceSecret == "" {
		return nil, fmt.Errorf("SERVICE_SECRET must be set")
	}

	return cfg, nil
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

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
