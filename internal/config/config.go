package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the poisearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Privileged keys see every
// place status and may ingest; plain keys see published places only.
type AuthConfig struct {
	APIKeys        []string `yaml:"api_keys"`
	PrivilegedKeys []string `yaml:"privileged_keys"`
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
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider and model settings.
type EmbeddingConfig struct {
	Provider            string        `yaml:"provider"`
	APIKey              string        `yaml:"api_key"`
	BaseURL             string        `yaml:"base_url"`
	Model               string        `yaml:"model"`
	Dimensions          int           `yaml:"dimensions"`
	DocumentInstruction string        `yaml:"document_instruction"`
	QueryInstruction    string        `yaml:"query_instruction"`
	TimeoutMs           int           `yaml:"timeout_ms"`
	CacheTTLHours       int           `yaml:"cache_ttl_hours"` // 0 = no expiry
	Breaker             BreakerConfig `yaml:"breaker"`
}

// BreakerConfig controls the circuit breaker in front of the embedding provider.
type BreakerConfig struct {
	// FailureThreshold consecutive provider failures open the circuit; negative disables it.
	FailureThreshold int `yaml:"failure_threshold"`
	// OpenMs is how long the circuit stays open before a probe request.
	OpenMs int `yaml:"open_ms"`
}

// Enabled reports whether the breaker should wrap the provider.
func (b BreakerConfig) Enabled() bool { return b.FailureThreshold > 0 }

// OpenTimeout returns how long an open circuit rejects calls.
func (b BreakerConfig) OpenTimeout() time.Duration {
	return time.Duration(b.OpenMs) * time.Millisecond
}

// Timeout returns the per-request provider timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// CacheTTL returns the embedding cache entry lifetime.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLHours) * time.Hour
}

// IndexConfig holds key layout settings.
type IndexConfig struct {
	KeyPrefix  string `yaml:"key_prefix"`
	Collection string `yaml:"collection"`
}

// WeightsConfig holds the composite score blend.
type WeightsConfig struct {
	Lexical   float64 `yaml:"lexical"`
	Semantic  float64 `yaml:"semantic"`
	Proximity float64 `yaml:"proximity"`
}

// SearchConfig holds retrieval and ranking settings.
type SearchConfig struct {
	CandidateK        int           `yaml:"candidate_k"`
	LexicalTopK       int           `yaml:"lexical_top_k"`
	LexicalTimeoutMs  int           `yaml:"lexical_timeout_ms"`
	SemanticTimeoutMs int           `yaml:"semantic_timeout_ms"`
	Weights           WeightsConfig `yaml:"weights"`
	HintBoost         float64       `yaml:"hint_boost"`
	ProximityCurve    string        `yaml:"proximity_curve"` // linear, exponential
	Steepness         float64       `yaml:"steepness"`
}

// LexicalTimeout returns the lexical branch deadline.
func (s SearchConfig) LexicalTimeout() time.Duration {
	return time.Duration(s.LexicalTimeoutMs) * time.Millisecond
}

// SemanticTimeout returns the semantic branch deadline.
func (s SearchConfig) SemanticTimeout() time.Duration {
	return time.Duration(s.SemanticTimeoutMs) * time.Millisecond
}

// IngestConfig holds bulk ingestion limits.
type IngestConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
	Workers      int `yaml:"workers"`
}

// KafkaConfig holds the streamed ingestion consumer settings.
type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	GroupID      string   `yaml:"group_id"`
	BatchSize    int      `yaml:"batch_size"`
	FlushAfterMs int      `yaml:"flush_after_ms"`
}

// FlushAfter returns how long a partial micro-batch may wait.
func (k KafkaConfig) FlushAfter() time.Duration {
	return time.Duration(k.FlushAfterMs) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1024
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 1000
	}
	if c.Embedding.Breaker.FailureThreshold == 0 {
		c.Embedding.Breaker.FailureThreshold = 5
	}
	if c.Embedding.Breaker.OpenMs <= 0 {
		c.Embedding.Breaker.OpenMs = 10000
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "poi:"
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "places"
	}
	c.applySearchDefaults()
	if c.Ingest.MaxBatchSize <= 0 {
		c.Ingest.MaxBatchSize = 500
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "poisearch-ingest"
	}
	if c.Kafka.BatchSize <= 0 {
		c.Kafka.BatchSize = 100
	}
	if c.Kafka.FlushAfterMs <= 0 {
		c.Kafka.FlushAfterMs = 1000
	}
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.CandidateK <= 0 {
		s.CandidateK = 100
	}
	if s.LexicalTopK <= 0 {
		s.LexicalTopK = 100
	}
	if s.LexicalTimeoutMs <= 0 {
		s.LexicalTimeoutMs = 2000
	}
	if s.SemanticTimeoutMs <= 0 {
		s.SemanticTimeoutMs = 1500
	}
	if s.Weights == (WeightsConfig{}) {
		s.Weights = WeightsConfig{Lexical: 0.4, Semantic: 0.4, Proximity: 0.2}
	}
	if s.HintBoost == 0 {
		s.HintBoost = 0.05
	}
	if s.ProximityCurve == "" {
		s.ProximityCurve = "linear"
	}
	if s.Steepness <= 0 {
		s.Steepness = 3
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
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	w := c.Search.Weights
	if w.Lexical < 0 || w.Semantic < 0 || w.Proximity < 0 {
		return fmt.Errorf("search.weights must be non-negative, got %+v", w)
	}
	if w.Lexical+w.Semantic+w.Proximity <= 0 {
		return fmt.Errorf("search.weights must not all be zero")
	}
	if c.Search.HintBoost < 0 || c.Search.HintBoost > 1 {
		return fmt.Errorf("search.hint_boost must be within [0,1], got %g", c.Search.HintBoost)
	}
	switch c.Search.ProximityCurve {
	case "linear", "exponential":
	default:
		return fmt.Errorf("search.proximity_curve must be \"linear\" or \"exponential\", got %q", c.Search.ProximityCurve)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	for _, k := range c.Auth.PrivilegedKeys {
		if k == "" {
			return fmt.Errorf("auth.privileged_keys must not contain empty keys")
		}
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
