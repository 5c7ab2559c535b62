package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Signing key material is
// loaded here once at startup and never mutated afterwards.
type Server struct {
	Addr string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RegistryBaseURL string
	RegistryTimeout time.Duration

	// PostgresDSN points at the external account store. Empty means the
	// in-memory store (local development only).
	PostgresDSN string

	Redis           RedisConfig
	AccountCacheTTL time.Duration
}

// RedisConfig captures the optional account-cache connection. An empty URL
// disables caching entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr: envString("LEDGERGATE_ADDR", ":8080"),

		JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envString("JWT_ISSUER", "ledgergate"),
		JWTAudience:   envString("JWT_AUDIENCE", "ledgergate-clients"),

		AccessTokenTTL:  envDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		RegistryBaseURL: envString("REGISTRY_BASE_URL", "https://registry.example.com/api"),
		RegistryTimeout: envDuration("REGISTRY_TIMEOUT", 10*time.Second),

		PostgresDSN: os.Getenv("ACCOUNT_STORE_DSN"),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		AccountCacheTTL: envDuration("ACCOUNT_CACHE_TTL", 5*time.Minute),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
