package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI     string
	DBName       string
	Port         string
	GinMode      string
	CORSOrigins  []string
	BcryptCost   int
	JWTExpiresIn string

	// JWT Token Secrets
	AccessSecret  string
	RefreshSecret string

	// Gemini API
	GeminiAPIKey     string
	GenerationModel  string
	EmbeddingModel   string
	ModelCallTimeout time.Duration

	// Enrichment pipeline thresholds
	ChunkSize        int
	ChunkOverlap     int
	MinContentLength int
	MaxWordCount     int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Background sweep
	SweepInterval time.Duration
	SweepBatch    int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/notevault"),
		DBName:       getEnv("DB_NAME", "notevault"),
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),
		JWTExpiresIn: getEnv("JWT_EXPIRES_IN", "24h"),

		AccessSecret:  getEnv("ACCESS_SECRET", ""),
		RefreshSecret: getEnv("REFRESH_SECRET", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GenerationModel:  getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		ModelCallTimeout: getEnvDuration("MODEL_CALL_TIMEOUT", 60*time.Second),

		// Overlap must stay below chunk size or the chunker never advances.
		ChunkSize:        getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 150),
		MinContentLength: getEnvInt("MIN_CONTENT_LENGTH", 10),
		MaxWordCount:     getEnvInt("MAX_WORD_COUNT", 5000),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
		SweepBatch:    getEnvInt("SWEEP_BATCH", 50),
	}

	// Validate required fields
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("ACCESS_SECRET is required - set it in .env file")
	}

	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("REFRESH_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}

	if cfg.MinContentLength < 1 {
		return nil, fmt.Errorf("MIN_CONTENT_LENGTH must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
