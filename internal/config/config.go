package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the jobsearch service configuration.
type Config struct {
	HTTP            HTTPConfig            `yaml:"http"`
	Database        DatabaseConfig        `yaml:"database"`
	Embedding       EmbeddingConfig       `yaml:"embedding"`
	Search          SearchConfig          `yaml:"search"`
	Similar         SimilarConfig         `yaml:"similar"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
	Backfill        BackfillConfig        `yaml:"backfill"`
	Auth            AuthConfig            `yaml:"auth"`
	Index           IndexConfig           `yaml:"index"`
	Storage         StorageConfig         `yaml:"storage"`
	Logging         LoggingConfig         `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"` // label for metrics and budget keys
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	Retry      RetryConfig  `yaml:"retry"`
	Budget     BudgetConfig `yaml:"budget"`
}

// RetryConfig holds the embedding retry policy.
type RetryConfig struct {
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxAttempts int `yaml:"max_attempts"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	HybridThreshold   float64 `yaml:"hybrid_threshold"`
	DefaultLimit      int     `yaml:"default_limit"`
	MaxLimit          int     `yaml:"max_limit"`
}

// SimilarConfig holds similar-jobs defaults.
type SimilarConfig struct {
	Threshold float64 `yaml:"threshold"`
	Limit     int     `yaml:"limit"`
	MaxLimit  int     `yaml:"max_limit"`
}

// RecommendationsConfig holds personalized recommendation defaults.
type RecommendationsConfig struct {
	Limit int `yaml:"limit"`
}

// BackfillConfig holds embedding backfill settings.
type BackfillConfig struct {
	PageSize int `yaml:"page_size"`
	DelaySec int `yaml:"delay_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// An optional .env file is loaded into the process environment first; existing variables win.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Degraded searches may sit in embedding backoff for 15s.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "jobsearch:"
	}
	c.applyEmbeddingDefaults()
	c.applySearchDefaults()
	if c.Backfill.PageSize <= 0 {
		c.Backfill.PageSize = 10
	}
	if c.Backfill.DelaySec <= 0 {
		c.Backfill.DelaySec = 25
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.Model == "" {
		e.Model = "text-embedding-3-small"
	}
	if e.Dimensions <= 0 {
		e.Dimensions = 1536
	}
	if e.Retry.BaseDelayMs <= 0 {
		e.Retry.BaseDelayMs = 5000
	}
	if e.Retry.MaxAttempts <= 0 {
		e.Retry.MaxAttempts = 3
	}
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.SemanticThreshold == 0 {
		s.SemanticThreshold = 0.7
	}
	if s.HybridThreshold == 0 {
		s.HybridThreshold = 0.6
	}
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = 20
	}
	if s.MaxLimit <= 0 {
		s.MaxLimit = 100
	}
	if c.Similar.Threshold == 0 {
		c.Similar.Threshold = 0.8
	}
	if c.Similar.Limit <= 0 {
		c.Similar.Limit = 10
	}
	if c.Similar.MaxLimit <= 0 {
		c.Similar.MaxLimit = 50
	}
	if c.Recommendations.Limit <= 0 {
		c.Recommendations.Limit = 15
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	for name, v := range map[string]float64{
		"search.semantic_threshold": c.Search.SemanticThreshold,
		"search.hybrid_threshold":   c.Search.HybridThreshold,
		"similar.threshold":         c.Similar.Threshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", name, v)
		}
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Similar.Limit > c.Similar.MaxLimit {
		return fmt.Errorf("similar.limit (%d) exceeds similar.max_limit (%d)", c.Similar.Limit, c.Similar.MaxLimit)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
