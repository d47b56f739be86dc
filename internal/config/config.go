package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	JWTSecret       string
	VenueCacheTTL   time.Duration
	StoreTimeout    time.Duration
	EventsChannel   string
	SSEKeepAlive    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	SeedEnabled     bool
	SeedToken       string
	CORSOrigins     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnLifetime  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AGENDA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Agenda API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("venue.cache_ttl", "2m")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("events.channel", "agenda")
	v.SetDefault("sse.keepalive", "30s")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	cacheTTL, err := parseDuration(v, "venue.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	storeTimeout, err := parseDuration(v, "store.timeout")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "sse.keepalive")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}
	connLifetime, err := parseDuration(v, "database.conn_max_lifetime")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		JWTSecret:       v.GetString("jwt.secret"),
		VenueCacheTTL:   cacheTTL,
		StoreTimeout:    storeTimeout,
		EventsChannel:   strings.TrimSpace(v.GetString("events.channel")),
		SSEKeepAlive:    keepAlive,
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
		SeedEnabled:     v.GetBool("seed.enabled"),
		SeedToken:       v.GetString("seed.token"),
		CORSOrigins:     strings.TrimSpace(v.GetString("cors.allow_origins")),
		DBMaxOpenConns:  v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:  v.GetInt("database.max_idle_conns"),
		DBConnLifetime:  connLifetime,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.EventsChannel == "" {
		cfg.EventsChannel = "agenda"
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}

	if cfg.CORSOrigins == "" {
		cfg.CORSOrigins = "*"
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return value, nil
}
