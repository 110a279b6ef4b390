package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	ServerPort string
	RedisURL   string
	Env        string

	StatsTimezone string

	EntityCacheSize  int
	EntityCacheTTL   time.Duration
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
	RankingCacheSize int
	RankingCacheTTL  time.Duration
	GlobalCacheSize  int
	GlobalCacheTTL   time.Duration

	FullResync        bool
	NotifyMinInterval time.Duration
	EventDedupTTL     time.Duration
}

func LoadConfig() Config {
	return Config{
		DBHost:     getEnv("DB_HOST", "postgres"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPass:     getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "db_groupstats"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		RedisURL:   getEnv("REDIS_URL", "redis:6379"),
		Env:        getEnv("ENV", "dev"),

		StatsTimezone: getEnv("STATS_TIMEZONE", "UTC"),

		EntityCacheSize:  getEnvAsInt("ENTITY_CACHE_SIZE", 2048),
		EntityCacheTTL:   getEnvAsDuration("ENTITY_CACHE_TTL", 10*time.Minute),
		SummaryCacheSize: getEnvAsInt("SUMMARY_CACHE_SIZE", 512),
		SummaryCacheTTL:  getEnvAsDuration("SUMMARY_CACHE_TTL", time.Minute),
		RankingCacheSize: getEnvAsInt("RANKING_CACHE_SIZE", 256),
		RankingCacheTTL:  getEnvAsDuration("RANKING_CACHE_TTL", 30*time.Second),
		GlobalCacheSize:  getEnvAsInt("GLOBAL_CACHE_SIZE", 64),
		GlobalCacheTTL:   getEnvAsDuration("GLOBAL_CACHE_TTL", time.Minute),

		FullResync:        getEnvAsBool("STATS_FULL_RESYNC", false),
		NotifyMinInterval: getEnvAsDuration("NOTIFY_MIN_INTERVAL", 5*time.Second),
		EventDedupTTL:     getEnvAsDuration("EVENT_DEDUP_TTL", 10*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return fallback
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

// Location resolves the configured stats time zone, falling back to UTC on
// an unknown zone name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
