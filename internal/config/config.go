package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/agro-insight/internal/agro"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type AppConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev" validate:"oneof=dev prod"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Port     string `envconfig:"PORT" default:"10000" validate:"required,numeric"`

	// Upstream keys. An empty key disables that upstream in its fallback chain.
	OpenWeatherAPIKey string `envconfig:"OPENWEATHER_API_KEY"`
	WeatherAPIKey     string `envconfig:"WEATHERAPI_KEY"`
	AlphaVantageKey   string `envconfig:"ALPHA_VANTAGE_KEY"`
	NASAAPIKey        string `envconfig:"NASA_API_KEY" default:"DEMO_KEY"`
	SentinelHubKey    string `envconfig:"SENTINEL_HUB_KEY"`
	GeocoderAPIKey    string `envconfig:"GEOCODER_API_KEY"`

	// Identity.
	JWTSecret    string        `envconfig:"JWT_SECRET" validate:"required_if=AppEnv prod"`
	TokenTTL     time.Duration `envconfig:"TOKEN_TTL" default:"30m" validate:"gt=0"`
	AuthRequired bool          `envconfig:"AUTH_REQUIRED" default:"false"`

	// Deadlines.
	UpstreamTimeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s" validate:"gt=0"`
	AdapterTimeout    time.Duration `envconfig:"ADAPTER_TIMEOUT" default:"10s" validate:"gt=0"`
	OrchestratorSlack time.Duration `envconfig:"ORCHESTRATOR_SLACK" default:"500ms" validate:"gte=0"`

	// Cache lifetimes.
	WeatherTTL      time.Duration `envconfig:"WEATHER_TTL" default:"10m" validate:"gt=0"`
	VegetationTTL   time.Duration `envconfig:"VEGETATION_TTL" default:"1h" validate:"gt=0"`
	MarketTTL       time.Duration `envconfig:"MARKET_TTL" default:"5m" validate:"gt=0"`
	CacheMaxEntries int           `envconfig:"CACHE_MAX_ENTRIES" default:"1000" validate:"gte=0"`

	BRLRate float64 `envconfig:"BRL_RATE" default:"5.1" validate:"gt=0"`

	// Background jobs.
	WarmLocations       string        `envconfig:"WARM_LOCATIONS"`
	WarmInterval        time.Duration `envconfig:"WARM_INTERVAL" default:"15m" validate:"gt=0"`
	HealthProbeInterval time.Duration `envconfig:"HEALTH_PROBE_INTERVAL" default:"1m" validate:"gt=0"`
	CleanupInterval     time.Duration `envconfig:"CACHE_CLEANUP_INTERVAL" default:"5m" validate:"gt=0"`

	// Parsed from WarmLocations by Load.
	Warm []agro.Coordinate `ignored:"true"`
}

// Load reads configuration from the environment (and an optional .env file), applies
// defaults and validates the result.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) finish() error {
	c.AppEnv = strings.ToLower(c.AppEnv)
	c.LogLevel = strings.ToLower(c.LogLevel)

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	warm, err := parseLocations(c.WarmLocations)
	if err != nil {
		return fmt.Errorf("invalid WARM_LOCATIONS: %w", err)
	}
	c.Warm = warm

	if c.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("generate JWT secret: %w", err)
		}
		c.JWTSecret = secret
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLocations(s string) ([]agro.Coordinate, error) {
	var out []agro.Coordinate
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		c, err := agro.ParseCoordinate(pair)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
