package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort  string
	LogLevel string

	CorpusManifestPath   string
	CorpusEmbeddingsPath string
	TablesRoot           string
	RulesPath            string
	WarmCorpus           bool

	OllamaURL          string
	OllamaEmbedModel   string
	OllamaEmbedTimeout time.Duration

	APIRateLimitRPS      float64
	APIRateLimitBurst    int
	APIBackpressureMax   int
	APIBackpressureWait  time.Duration
	APIRequestValidation bool
	MCPEnabled           bool

	ResilienceRetryMaxAttempts    int
	ResilienceRetryInitialBackoff time.Duration
	ResilienceRetryMaxBackoff     time.Duration
	ResilienceBreakerEnabled      bool
	ResilienceBreakerMinRequests  int
	ResilienceBreakerFailureRatio float64
	ResilienceBreakerOpenTimeout  time.Duration
}

// LoadDotEnv reads variables from the given files, or from .env when none are
// named. Variables already set in the environment win. Missing files are not
// an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		CorpusManifestPath:   mustEnv("CORPUS_MANIFEST_PATH", "./data/corpus/chunks.jsonl"),
		CorpusEmbeddingsPath: mustEnv("CORPUS_EMBEDDINGS_PATH", "./data/corpus/embeddings.jsonl"),
		TablesRoot:           mustEnv("TABLES_ROOT", "./data/tables"),
		RulesPath:            mustEnv("RULES_PATH", ""),
		WarmCorpus:           mustEnvBool("CORPUS_WARM_ON_START", true),

		OllamaURL:          mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel:   mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaEmbedTimeout: mustEnvDuration("OLLAMA_EMBED_TIMEOUT", 30*time.Second),

		APIRateLimitRPS:      mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:    mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIBackpressureMax:   mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 32),
		APIBackpressureWait:  mustEnvDuration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),
		APIRequestValidation: mustEnvBool("API_REQUEST_VALIDATION", true),
		MCPEnabled:           mustEnvBool("MCP_ENABLED", true),

		ResilienceRetryMaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 2),
		ResilienceRetryInitialBackoff: mustEnvDuration("RESILIENCE_RETRY_INITIAL_BACKOFF", 100*time.Millisecond),
		ResilienceRetryMaxBackoff:     mustEnvDuration("RESILIENCE_RETRY_MAX_BACKOFF", 400*time.Millisecond),
		ResilienceBreakerEnabled:      mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerMinRequests:  mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10),
		ResilienceBreakerFailureRatio: mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
		ResilienceBreakerOpenTimeout:  mustEnvDuration("RESILIENCE_BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}
}

func mustEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
