package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	AllowedOrigins []string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	KafkaImportTopic    string
	KafkaPlanTopic      string
	KafkaSelectionTopic string

	// Scorecard
	ProtocolCatalogPath string
	PatientDataPath     string
	DVHDataPath         string
	PercentileCacheTTL  time.Duration
	SessionTTL          time.Duration
	RenderScale         float64
	ImportSources       []string
	ImportStatusTTL     time.Duration

	// Plan registry
	RegistryURL          string
	RegistryTokenURL     string
	RegistryClientID     string
	RegistryClientSecret string
	RegistryScopes       []string
	RegistryTimeout      time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 16*1024*1024)),
		AllowedOrigins: getStringSliceEnv("ALLOWED_ORIGINS", []string{"*"}),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "planscore"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "planscore"),
		PostgresDB:       getEnv("POSTGRES_DB", "planscore"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "planscore"),
		KafkaImportTopic:    getEnv("KAFKA_IMPORT_TOPIC", "plans.imported"),
		KafkaPlanTopic:      getEnv("KAFKA_PLAN_TOPIC", "plans.records"),
		KafkaSelectionTopic: getEnv("KAFKA_SELECTION_TOPIC", "scorecard.selection"),

		ProtocolCatalogPath: getEnv("PROTOCOL_CATALOG_PATH", ""),
		PatientDataPath:     getEnv("PATIENT_DATA_PATH", ""),
		DVHDataPath:         getEnv("DVH_DATA_PATH", ""),
		PercentileCacheTTL:  getDuration("PERCENTILE_CACHE_TTL", 10*time.Minute),
		SessionTTL:          getDuration("SESSION_TTL", 30*time.Minute),
		RenderScale:         getFloatEnv("RENDER_SCALE", 1),
		ImportSources:       getStringSliceEnv("IMPORT_SOURCES", []string{"upload", "file"}),
		ImportStatusTTL:     getDuration("IMPORT_STATUS_TTL", 7*24*time.Hour),

		RegistryURL:          getEnv("REGISTRY_URL", ""),
		RegistryTokenURL:     getEnv("REGISTRY_TOKEN_URL", ""),
		RegistryClientID:     getEnv("REGISTRY_CLIENT_ID", ""),
		RegistryClientSecret: getEnv("REGISTRY_CLIENT_SECRET", ""),
		RegistryScopes:       getStringSliceEnv("REGISTRY_SCOPES", nil),
		RegistryTimeout:      getDuration("REGISTRY_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getStringSliceEnv splits a comma-separated value.
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
