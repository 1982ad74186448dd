package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends for the persisted (index, metadata) pair.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)

// Search backends used at query time.
const (
	SearchBackendLocal  = "local"
	SearchBackendQdrant = "qdrant"
)

// Retrieval policies.
const (
	PolicyTopK      = "topk"
	PolicyThreshold = "threshold"
)

// Context budget units.
const (
	BudgetUnitChars  = "chars"
	BudgetUnitTokens = "tokens"
)

// Config holds all configuration for the application.
type Config struct {
	// Build inputs and persisted pair
	DataDir      string
	StoreBackend string
	IndexPath    string
	MetadataPath string
	DBPath       string

	// Optional Qdrant mirror
	QdrantURL        string
	QdrantCollection string
	SearchBackend    string

	// Embedding capability
	EmbeddingBaseURL     string
	EmbeddingModelName   string
	EmbeddingDim         int
	EmbeddingBatchSize   int
	EmbeddingConcurrency int
	EmbeddingRPS         float64
	EmbeddingMaxRetries  int

	// Generation capability
	LLMBaseURL    string
	LLMModelName  string
	LLMAPIKey     string
	LLMMaxTokens  int
	LLMMaxRetries int

	// Normalizer, retrieval and context assembly
	ChunkSize           int
	RetrievalPolicy     string
	TopK                int
	SimilarityThreshold float64
	MaxContextLength    int
	ContextBudgetUnit   string

	// Serving limits
	MaxInflight     int
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		DataDir:            getEnv("DATA_DIR", "./data/records"),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreBackendFile)),
		IndexPath:          getEnv("INDEX_PATH", "./data/index.bin"),
		MetadataPath:       getEnv("METADATA_PATH", "./data/metadata.json"),
		DBPath:             getEnv("DB_PATH", "./data/patriotpilot.db"),
		QdrantURL:          getEnv("QDRANT_URL", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "chunks"),
		SearchBackend:      strings.ToLower(getEnv("SEARCH_BACKEND", SearchBackendLocal)),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "e5-large-v2"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		RetrievalPolicy:    strings.ToLower(getEnv("RETRIEVAL_POLICY", PolicyTopK)),
		ContextBudgetUnit:  strings.ToLower(getEnv("CONTEXT_BUDGET_UNIT", BudgetUnitChars)),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	ints := []struct {
		key  string
		def  int
		min  int
		dest *int
	}{
		{"EMBEDDING_DIM", 1024, 1, &cfg.EmbeddingDim},
		{"EMBEDDING_BATCH_SIZE", 32, 1, &cfg.EmbeddingBatchSize},
		{"EMBEDDING_CONCURRENCY", 2, 1, &cfg.EmbeddingConcurrency},
		{"EMBEDDING_MAX_RETRIES", 2, 0, &cfg.EmbeddingMaxRetries},
		{"LLM_MAX_TOKENS", 100, 1, &cfg.LLMMaxTokens},
		{"LLM_MAX_RETRIES", 2, 0, &cfg.LLMMaxRetries},
		{"CHUNK_SIZE", 512, 1, &cfg.ChunkSize},
		{"TOP_K", 3, 1, &cfg.TopK},
		{"MAX_CONTEXT_LENGTH", 512, 0, &cfg.MaxContextLength},
		{"MAX_INFLIGHT", 4, 1, &cfg.MaxInflight},
	}
	for _, v := range ints {
		if *v.dest, err = getEnvInt(v.key, v.def, v.min); err != nil {
			return nil, err
		}
	}

	if cfg.EmbeddingRPS, err = getEnvFloat("EMBEDDING_RPS", 0); err != nil {
		return nil, err
	}
	if cfg.EmbeddingRPS < 0 {
		return nil, fmt.Errorf("EMBEDDING_RPS must not be negative")
	}
	if cfg.SimilarityThreshold, err = getEnvFloat("SIMILARITY_THRESHOLD", 0.7); err != nil {
		return nil, err
	}
	if cfg.SimilarityThreshold < -1 || cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be between -1 and 1")
	}
	if cfg.EmbedTimeout, err = getEnvDuration("EMBED_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.GenerateTimeout, err = getEnvDuration("GENERATE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create the directory that will hold the persisted pair
	for _, p := range cfg.storePaths() {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreBackendFile, StoreBackendSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendFile, StoreBackendSQLite, c.StoreBackend)
	}
	switch c.SearchBackend {
	case SearchBackendLocal:
	case SearchBackendQdrant:
		if c.QdrantURL == "" {
			return fmt.Errorf("QDRANT_URL is required when SEARCH_BACKEND is %q", SearchBackendQdrant)
		}
	default:
		return fmt.Errorf("SEARCH_BACKEND must be %q or %q, got %q", SearchBackendLocal, SearchBackendQdrant, c.SearchBackend)
	}
	switch c.RetrievalPolicy {
	case PolicyTopK, PolicyThreshold:
	default:
		return fmt.Errorf("RETRIEVAL_POLICY must be %q or %q, got %q", PolicyTopK, PolicyThreshold, c.RetrievalPolicy)
	}
	switch c.ContextBudgetUnit {
	case BudgetUnitChars, BudgetUnitTokens:
	default:
		return fmt.Errorf("CONTEXT_BUDGET_UNIT must be %q or %q, got %q", BudgetUnitChars, BudgetUnitTokens, c.ContextBudgetUnit)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c *Config) storePaths() []string {
	if c.StoreBackend == StoreBackendSQLite {
		return []string{c.DBPath}
	}
	return []string{c.IndexPath, c.MetadataPath}
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// loadDotEnv loads .env from the current directory, then from the nearest parent that has one.
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue, minValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v < minValue {
		return 0, fmt.Errorf("%s must be at least %d", key, minValue)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}
