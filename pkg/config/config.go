package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Checkout providers understood by the server bootstrap.
const (
	CheckoutProviderMidtrans = "midtrans"
	CheckoutProviderDisabled = "disabled"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Checkout CheckoutConfig
	Booking  BookingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the Redis-backed teacher profile cache.
type CacheConfig struct {
	Enabled         bool
	AvailabilityTTL time.Duration
}

// CheckoutConfig configures the hosted checkout provider and redirect URLs.
type CheckoutConfig struct {
	Provider        string
	ServerKey       string
	Production      bool
	Currency        string
	FrontendBaseURL string
	SigningSecret   string
	RedirectTTL     time.Duration
	ReplayTTL       time.Duration
}

// BookingConfig holds calendar rules for the booking engine.
type BookingConfig struct {
	Timezone string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:         v.GetBool("ENABLE_CACHE"),
		AvailabilityTTL: parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Checkout = CheckoutConfig{
		Provider:        strings.ToLower(v.GetString("CHECKOUT_PROVIDER")),
		ServerKey:       v.GetString("CHECKOUT_SERVER_KEY"),
		Production:      v.GetBool("CHECKOUT_PRODUCTION"),
		Currency:        strings.ToUpper(v.GetString("CHECKOUT_CURRENCY")),
		FrontendBaseURL: strings.TrimRight(v.GetString("FRONTEND_BASE_URL"), "/"),
		SigningSecret:   v.GetString("REDIRECT_SIGNING_SECRET"),
		RedirectTTL:     parseDuration(v.GetString("REDIRECT_TTL"), 24*time.Hour),
		ReplayTTL:       parseDuration(v.GetString("REDIRECT_REPLAY_TTL"), 24*time.Hour),
	}

	cfg.Booking = BookingConfig{
		Timezone: v.GetString("BOOKING_TIMEZONE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutor_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "tutor-booking-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "5m")

	v.SetDefault("CHECKOUT_PROVIDER", CheckoutProviderDisabled)
	v.SetDefault("CHECKOUT_SERVER_KEY", "")
	v.SetDefault("CHECKOUT_PRODUCTION", false)
	v.SetDefault("CHECKOUT_CURRENCY", "IDR")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("REDIRECT_SIGNING_SECRET", "dev_redirect_secret")
	v.SetDefault("REDIRECT_TTL", "24h")
	v.SetDefault("REDIRECT_REPLAY_TTL", "24h")

	v.SetDefault("BOOKING_TIMEZONE", "Local")
}

// Location resolves the configured booking time zone, falling back to time.Local.
func (c BookingConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func isMissingFile(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
