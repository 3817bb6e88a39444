package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	App         AppConfig
	NATS        NATSConfig
	Platform    PlatformConfig
	Translation TranslationConfig
	Broadcast   BroadcastConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
	Version     string
}

type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

type PlatformConfig struct {
	// GatewayURL is the base URL of the platform gateway service that
	// fronts the chat platform (member rosters, DMs, channel messages).
	GatewayURL string
}

type TranslationConfig struct {
	// Premium tier (DeepL-compatible API, paid, highest quality)
	PremiumAPIURL string
	PremiumAPIKey string

	// Free tier (MyMemory-compatible API, daily request budget)
	FreeAPIURL       string
	FreeAPIKey       string
	FreeUserIdentity string
	FreeDailyBudget  int

	// Broad tier (unofficial web endpoint, widest language coverage)
	BroadAPIURL  string
	BroadEnabled bool

	// Per-provider HTTP timeout
	ProviderTimeout time.Duration

	// Cache settings
	CacheEnabled  bool
	CacheTTL      time.Duration
	CacheCapacity int

	// Rate limiting for the public API
	RateLimit       int
	RateLimitWindow time.Duration

	// Optional JSON file overriding the built-in language directory
	DirectoryPath string

	// Fallback target when a guild has no configured default
	DefaultGuildLang string
}

type BroadcastConfig struct {
	GroupConcurrency int
	DMConcurrency    int
	Timeout          time.Duration
	DMRatePerSecond  float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "polyglot_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Name:        getEnv("APP_NAME", "polyglot-service"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			MaxReconnects: getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Platform: PlatformConfig{
			GatewayURL: getEnv("PLATFORM_GATEWAY_URL", "http://platform-gateway:8080"),
		},
		Translation: TranslationConfig{
			PremiumAPIURL:    getEnv("PREMIUM_API_URL", "https://api-free.deepl.com"),
			PremiumAPIKey:    getEnv("PREMIUM_API_KEY", ""),
			FreeAPIURL:       getEnv("FREE_API_URL", "https://api.mymemory.translated.net"),
			FreeAPIKey:       getEnv("FREE_API_KEY", ""),
			FreeUserIdentity: getEnv("FREE_USER_IDENTITY", ""),
			FreeDailyBudget:  getEnvAsInt("FREE_DAILY_BUDGET", 1000),
			BroadAPIURL:      getEnv("BROAD_API_URL", "https://translate.googleapis.com"),
			BroadEnabled:     getEnvAsBool("BROAD_ENABLED", true),
			ProviderTimeout:  time.Duration(getEnvAsInt("PROVIDER_TIMEOUT_MS", 8000)) * time.Millisecond,
			CacheEnabled:     getEnvAsBool("CACHE_ENABLED", true),
			CacheTTL:         time.Duration(getEnvAsInt("TRANSLATION_CACHE_TTL_SECONDS", 21600)) * time.Second,
			CacheCapacity:    getEnvAsInt("TRANSLATION_CACHE_CAPACITY", 10000),
			RateLimit:        getEnvAsInt("RATE_LIMIT", 100),
			RateLimitWindow:  getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			DirectoryPath:    getEnv("LANGUAGE_DIRECTORY_PATH", ""),
			DefaultGuildLang: getEnv("GUILD_DEFAULT_LANG", ""),
		},
		Broadcast: BroadcastConfig{
			GroupConcurrency: getEnvAsInt("BROADCAST_GROUP_CONCURRENCY", 10),
			DMConcurrency:    getEnvAsInt("BROADCAST_DM_CONCURRENCY", 5),
			Timeout:          time.Duration(getEnvAsInt("BROADCAST_TIMEOUT_MS", 30000)) * time.Millisecond,
			DMRatePerSecond:  getEnvAsFloat("DM_RATE_PER_SECOND", 5),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
