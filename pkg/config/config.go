package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	OpenAI    OpenAIConfig
	OTEL      OTELConfig
	Log       LogConfig
	Reports   ReportsConfig
	Search    SearchConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// OpenAIConfig holds generative and embedding model configuration
type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int
	RateLimitRPM        int
	RateLimitBurst      int
	Timeout             time.Duration
	EmbeddingAttempts   int
	EmbeddingMaxDelay   time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string
	Env   string
}

// ReportsConfig tunes the insight report pipeline.
type ReportsConfig struct {
	// StaleAfter is how old a generating report may be before a new request replaces it.
	StaleAfter time.Duration
	// JanitorStaleAfter is the threshold used by the startup/manual cleanup.
	JanitorStaleAfter   time.Duration
	DefaultWindowDays   int
	TopBooks            int
	GenerationAttempts  int
	GenerationBaseDelay time.Duration
	GenerationMaxJitter time.Duration
	Workers             int
}

// SearchConfig tunes search classification and comparison retrieval.
type SearchConfig struct {
	ClassificationCacheTTL time.Duration
	CategoryCacheTTL       time.Duration
	ComparisonCommentLimit int
	DefaultResultLimit     int
}

// Load loads configuration from environment variables, reading a .env file first when present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "bookstore"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			BaseURL:             getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:               getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1024),
			RateLimitRPM:        getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst:      getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
			Timeout:             getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			EmbeddingAttempts:   getEnvAsInt("OPENAI_EMBEDDING_ATTEMPTS", 3),
			EmbeddingMaxDelay:   getEnvAsDuration("OPENAI_EMBEDDING_MAX_DELAY", 5*time.Second),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "bookstore-backend"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Env:   getEnv("APP_ENV", "development"),
		},
		Reports: ReportsConfig{
			StaleAfter:          getEnvAsDuration("REPORT_STALE_AFTER", 10*time.Minute),
			JanitorStaleAfter:   getEnvAsDuration("REPORT_JANITOR_STALE_AFTER", 5*time.Minute),
			DefaultWindowDays:   getEnvAsInt("REPORT_WINDOW_DAYS", 30),
			TopBooks:            getEnvAsInt("REPORT_TOP_BOOKS", 10),
			GenerationAttempts:  getEnvAsInt("REPORT_GENERATION_ATTEMPTS", 5),
			GenerationBaseDelay: getEnvAsDuration("REPORT_GENERATION_BASE_DELAY", 2*time.Second),
			GenerationMaxJitter: getEnvAsDuration("REPORT_GENERATION_MAX_JITTER", time.Second),
			Workers:             getEnvAsInt("BACKGROUND_WORKERS", 8),
		},
		Search: SearchConfig{
			ClassificationCacheTTL: getEnvAsDuration("SEARCH_CLASSIFICATION_CACHE_TTL", time.Hour),
			CategoryCacheTTL:       getEnvAsDuration("SEARCH_CATEGORY_CACHE_TTL", 10*time.Minute),
			ComparisonCommentLimit: getEnvAsInt("COMPARISON_COMMENT_LIMIT", 5),
			DefaultResultLimit:     getEnvAsInt("SEARCH_RESULT_LIMIT", 20),
		},
	}

	if cfg.Reports.DefaultWindowDays <= 0 {
		return nil, fmt.Errorf("REPORT_WINDOW_DAYS must be positive, got %d", cfg.Reports.DefaultWindowDays)
	}
	if cfg.OpenAI.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("OPENAI_EMBEDDING_DIMENSIONS must be positive, got %d", cfg.OpenAI.EmbeddingDimensions)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
