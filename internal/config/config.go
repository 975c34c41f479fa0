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

// Search strategies.
const (
	StrategyEmbedding = "embedding"
	StrategyPairwise  = "pairwise"
)

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// Config holds the pictag API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Search      SearchConfig      `yaml:"search"`
	Upload      UploadConfig      `yaml:"upload"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`

	// CORSOrigins allowed for browser clients; nil defaults to any origin, [] disables CORS.
	CORSOrigins   []string `yaml:"cors_allowed_origins"`
	CORSMaxAgeSec int      `yaml:"cors_max_age_sec"`
}

// DatabaseConfig holds metadata store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, badger (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // badger directory; empty = in-memory
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// HuggingFaceConfig holds Inference API settings for the vision and pairwise similarity models.
type HuggingFaceConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	CaptionModel    string `yaml:"caption_model"`
	DetectionModel  string `yaml:"detection_model"`
	SimilarityModel string `yaml:"similarity_model"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// SearchConfig holds search engine settings.
type SearchConfig struct {
	Strategy      string   `yaml:"strategy"`  // embedding, pairwise (default: embedding)
	Threshold     *float64 `yaml:"threshold"` // unset = 0.5; 0 accepts any positive score
	Workers       int      `yaml:"workers"`   // 1 = sequential
	CallTimeoutMS int      `yaml:"call_timeout_ms"`
	DefaultLimit  int      `yaml:"default_limit"` // 0 = unlimited
	MaxLimit      int      `yaml:"max_limit"`
}

// DefaultThreshold is used when search.threshold is not set.
const DefaultThreshold = 0.5

// MinScore returns the configured threshold or DefaultThreshold when unset.
func (s SearchConfig) MinScore() float64 {
	if s.Threshold == nil {
		return DefaultThreshold
	}
	return *s.Threshold
}

// UploadConfig holds multipart upload limits.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
	MaxFiles int   `yaml:"max_files"`
}

// CallTimeout returns the per remote call timeout.
func (s SearchConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutMS) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, expanding ${VAR} references, then applies defaults and validates.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.CORSOrigins == nil {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.HTTP.CORSMaxAgeSec <= 0 {
		c.HTTP.CORSMaxAgeSec = 300
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "pictag:"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.HuggingFace.BaseURL == "" {
		c.HuggingFace.BaseURL = "https://api-inference.huggingface.co/models"
	}
	if c.HuggingFace.CaptionModel == "" {
		c.HuggingFace.CaptionModel = "nlpconnect/vit-gpt2-image-captioning"
	}
	if c.HuggingFace.DetectionModel == "" {
		c.HuggingFace.DetectionModel = "facebook/detr-resnet-101"
	}
	if c.HuggingFace.SimilarityModel == "" {
		c.HuggingFace.SimilarityModel = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.HuggingFace.TimeoutSec <= 0 {
		c.HuggingFace.TimeoutSec = 30
	}
	if c.Search.Strategy == "" {
		c.Search.Strategy = StrategyEmbedding
	}
	if c.Search.Threshold == nil {
		th := DefaultThreshold
		c.Search.Threshold = &th
	}
	if c.Search.Workers <= 0 {
		c.Search.Workers = 8
	}
	if c.Search.CallTimeoutMS <= 0 {
		c.Search.CallTimeoutMS = 5000
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 1000
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 32 << 20
	}
	if c.Upload.MaxFiles <= 0 {
		c.Upload.MaxFiles = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverBadger:
		// path may be empty (in-memory)
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, badger, got %q", c.Database.Driver)
	}
	switch c.Search.Strategy {
	case StrategyEmbedding:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for search.strategy %q", StrategyEmbedding)
		}
	case StrategyPairwise:
		// served by huggingface.similarity_model
	default:
		return fmt.Errorf("search.strategy must be %q or %q, got %q",
			StrategyEmbedding, StrategyPairwise, c.Search.Strategy)
	}
	if th := c.Search.MinScore(); th < 0 || th >= 1 {
		return fmt.Errorf("search.threshold must be in [0, 1), got %g", th)
	}
	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("search.default_limit must be >= 0, got %d", c.Search.DefaultLimit)
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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
