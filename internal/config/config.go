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

// Config holds the receiptdex API configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	KV      KVConfig      `yaml:"kv"`
	LLM     LLMConfig     `yaml:"llm"`
	Search  SearchConfig  `yaml:"search"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
// Each API key maps to the user whose receipts it may read.
type AuthConfig struct {
	APIKeys map[string]string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds receipt table settings.
type StoreConfig struct {
	Driver           string `yaml:"driver"` // dynamodb, memory (default: dynamodb)
	Table            string `yaml:"table"`
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"` // DynamoDB Local, LocalStack
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	PageSize         int32  `yaml:"page_size"`
	CreateTable      bool   `yaml:"create_table"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// KVConfig holds the key-value store used for budgets and the response cache.
type KVConfig struct {
	Driver    string   `yaml:"driver"` // valkey, redis, none (default: none)
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	// KeyPrefix namespaces keys when several deployments share one server, e.g. "staging:".
	KeyPrefix string   `yaml:"key_prefix"`
}

// Enabled reports whether a KV store is configured.
func (k KVConfig) Enabled() bool { return k.Driver != "none" }

// LLMConfig holds language model settings.
type LLMConfig struct {
	Provider    string       `yaml:"provider"` // openai, gemini
	APIKey      string       `yaml:"api_key"`
	BaseURL     string       `yaml:"base_url"`
	Model       string       `yaml:"model"`
	Temperature float32      `yaml:"temperature"`
	MaxTokens   int          `yaml:"max_tokens"`
	CacheTTLSec int          `yaml:"cache_ttl_sec"` // 0 disables the response cache
	Budget      BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit      int64   `yaml:"daily_token_limit"`       // 0 = unlimited
	MonthlyTokenLimit    int64   `yaml:"monthly_token_limit"`     // 0 = unlimited
	CostPerMillionTokens float64 `yaml:"cost_per_million_tokens"` // для дашборда
	Action               string  `yaml:"action"`                  // "reject" | "warn" (default)
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	Timezone          string `yaml:"timezone"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	// DefaultTenant is used when auth is disabled. Empty means single-tenant scan mode.
	DefaultTenant string `yaml:"default_tenant"`
}

// Location resolves the configured time zone.
func (s SearchConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
	if c.Store.Driver == "" {
		c.Store.Driver = "dynamodb"
	}
	if c.Store.Table == "" {
		c.Store.Table = "receipts"
	}
	if c.Store.PageSize <= 0 {
		c.Store.PageSize = 100
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.KV.Driver == "" {
		c.KV.Driver = "none"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel(c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 512
	}
	if c.Search.Timezone == "" {
		c.Search.Timezone = "UTC"
	}
	if c.Search.RequestTimeoutSec <= 0 {
		c.Search.RequestTimeoutSec = 25
	}
}

func defaultModel(provider string) string {
	if provider == "gemini" {
		return "gemini-1.5-flash"
	}
	return "gpt-4o-mini"
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "dynamodb":
		if c.Store.Region == "" {
			return fmt.Errorf("store.region is required for dynamodb")
		}
	case "memory":
		// ok
	default:
		return fmt.Errorf("store.driver must be \"dynamodb\" or \"memory\", got %q", c.Store.Driver)
	}
	switch c.KV.Driver {
	case "valkey", "redis":
		if len(c.KV.Addrs) == 0 {
			return fmt.Errorf("kv.addrs is required for %s", c.KV.Driver)
		}
	case "none":
		// ok
	default:
		return fmt.Errorf("kv.driver must be \"valkey\", \"redis\" or \"none\", got %q", c.KV.Driver)
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			return fmt.Errorf("llm.api_key is required unless llm.base_url points to a compatible server")
		}
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for gemini")
		}
	default:
		return fmt.Errorf("llm.provider must be \"openai\" or \"gemini\", got %q", c.LLM.Provider)
	}
	switch c.LLM.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("llm.budget.action must be \"warn\" or \"reject\", got %q", c.LLM.Budget.Action)
	}
	if c.LLM.CacheTTLSec > 0 && !c.KV.Enabled() {
		return fmt.Errorf("llm.cache_ttl_sec requires a kv store")
	}
	for key, user := range c.Auth.APIKeys {
		if key == "" || user == "" {
			return fmt.Errorf("auth.api_keys entries need both a key and a user id")
		}
	}
	if _, err := c.Search.Location(); err != nil {
		return fmt.Errorf("search.timezone: %w", err)
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
