package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the risk engine. Scoring parameters live
// in the policy file; everything here is deployment wiring.
type Config struct {
	GRPCPort    string
	HTTPPort    string
	Environment string
	LogLevel    string
	LogFormat   string

	// PolicyPath points at the YAML scoring policy. The file is watched
	// and reloaded on change.
	PolicyPath string

	// Feedback persistence. DBHost selects the backend: empty means
	// feedback is appended to FeedbackFilePath instead of Postgres.
	DBHost           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	DBPort           int
	MigrationsPath   string
	FeedbackFilePath string

	// KafkaBroker is optional. When empty, domain events are logged
	// instead of published.
	KafkaBroker string
	KafkaTopic  string

	CachePath     string
	CacheInMemory bool

	ModelPath       string
	OnnxLibraryPath string

	BlocklistAPIKey    string
	BlocklistEndpoint  string
	ReputationAPIKey   string
	ReputationEndpoint string

	BreachCorpusPath string

	APIKey      string
	JWTSecret   string
	TLSCertFile string
	TLSKeyFile  string

	// RateLimitRPS caps REST requests per second per client address.
	RateLimitRPS int

	OTLPEndpoint string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		GRPCPort:    getEnv("GRPC_PORT", "8095"),
		HTTPPort:    getEnv("HTTP_PORT", "9095"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		PolicyPath: getEnv("POLICY_PATH", "configs/policy.yaml"),

		DBHost:           getEnv("DB_HOST", ""),
		DBUser:           getEnv("DB_USER", "phishield"),
		DBPassword:       getEnv("DB_PASSWORD", ""),
		DBName:           getEnv("DB_NAME", "phishield"),
		DBSSLMode:        getEnv("DB_SSLMODE", ""),
		DBPort:           getEnvInt("DB_PORT", 5432),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "file://migrations"),
		FeedbackFilePath: getEnv("FEEDBACK_FILE_PATH", "data/feedback.jsonl"),

		KafkaBroker: getEnv("KAFKA_BROKER", ""),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "phishield.events"),

		CachePath:     getEnv("CACHE_PATH", "data/cache"),
		CacheInMemory: getEnvBool("CACHE_IN_MEMORY", false),

		ModelPath:       getEnv("MODEL_PATH", "models/url_classifier.onnx"),
		OnnxLibraryPath: getEnv("ONNX_LIBRARY_PATH", ""),

		BlocklistAPIKey:    getEnv("BLOCKLIST_API_KEY", ""),
		BlocklistEndpoint:  getEnv("BLOCKLIST_ENDPOINT", "https://safebrowsing.googleapis.com/v4/threatMatches:find"),
		ReputationAPIKey:   getEnv("REPUTATION_API_KEY", ""),
		ReputationEndpoint: getEnv("REPUTATION_ENDPOINT", "https://www.virustotal.com/api/v3"),

		BreachCorpusPath: getEnv("BREACH_CORPUS_PATH", "data/breach_index.json"),

		APIKey:      getEnv("API_KEY", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 100),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

// PostgresEnabled reports whether feedback goes to Postgres rather than the
// append-only file.
func (c *Config) PostgresEnabled() bool {
	return c.DBHost != ""
}

// GRPCAddress returns the full gRPC listen address.
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf(":%s", c.GRPCPort)
}

// HTTPAddress returns the full HTTP listen address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
