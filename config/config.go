package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// MongoDB configuration
	MongoURI     string
	DatabaseName string

	// Redis snapshot cache; empty RedisAddr disables caching
	RedisAddr        string
	RedisPassword    string
	SnapshotCacheTTL time.Duration

	// Server configuration
	Port string

	// Metric extraction windows
	LookbackWindowDays    int
	FrequencyIntervalDays int

	// Classification thresholds
	LostRecencyDays  int
	RiskRecencyDays  int
	FrequencyDropPct float64
	IdealFrequency   float64
	IdealMonetary    float64

	// Campaign impact
	FreshnessWindowDays int

	// Similarity detection
	SimilarityThreshold float64
}

func LoadConfig() *Config {
	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("MONGO_DB_NAME", "segment_engine"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		SnapshotCacheTTL: getEnvDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute),

		Port: getEnv("PORT", "8080"),

		LookbackWindowDays:    getEnvInt("LOOKBACK_WINDOW_DAYS", 180),
		FrequencyIntervalDays: getEnvInt("FREQUENCY_INTERVAL_DAYS", 180),

		LostRecencyDays:  getEnvInt("RECENCY_LOST_DAYS", 180),
		RiskRecencyDays:  getEnvInt("RECENCY_RISK_DAYS", 45),
		FrequencyDropPct: getEnvFloat("FREQUENCY_DROP_PCT", 0.5),
		IdealFrequency:   getEnvFloat("IDEAL_MIN_FREQUENCY", 1),
		IdealMonetary:    getEnvFloat("IDEAL_MIN_MONETARY", 80),

		FreshnessWindowDays: getEnvInt("FRESHNESS_WINDOW_DAYS", 90),

		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.85),
	}

	// Validate required configuration
	if cfg.MongoURI == "" {
		slog.Error("MONGO_URI not set")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("Invalid float in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
