package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CALIBRA_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CALIBRA_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// SemanticScholarAPIBase returns the Semantic Scholar API base URL.
// Empty means use the public endpoint.
func SemanticScholarAPIBase() string {
	return os.Getenv("SEMANTIC_SCHOLAR_API_BASE")
}

func SemanticScholarAPIKey() string {
	return os.Getenv("SEMANTIC_SCHOLAR_API_KEY")
}

// PubMedAPIBase returns the PubMed E-utilities base URL.
// Empty means use the public endpoint.
func PubMedAPIBase() string {
	return os.Getenv("PUBMED_API_BASE")
}

// SearchProviderTimeout returns the per-provider search deadline.
// Defaults to 8s if not set.
func SearchProviderTimeout() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("SEARCH_PROVIDER_TIMEOUT_MS"))
	if err != nil || ms <= 0 {
		return 8 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// SearchTopK returns how many ranked results a search keeps.
// Defaults to 10 if not set.
func SearchTopK() int {
	k, err := strconv.Atoi(os.Getenv("SEARCH_TOP_K"))
	if err != nil || k <= 0 {
		return 10
	}
	return k
}

// EvidenceCacheTTL returns how long aggregated search results stay cached.
// Defaults to 168h (one week) if not set.
func EvidenceCacheTTL() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("EVIDENCE_CACHE_TTL_HOURS"))
	if err != nil || hours <= 0 {
		return 168 * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
