// Package config loads service and CLI configuration from the environment and an optional
// JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/types"
)

// Defaults
const (
	DefaultPort           = 8080
	DefaultMaxUploadBytes = 10 << 20
	DefaultRequestTimeout = 3 * time.Minute
)

// Duration is a time.Duration written as "90s" or "2m" in JSON
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config holds everything the server and CLI need. All fields are optional in the JSON
// file; missing values come from the environment or the defaults.
type Config struct {
	// Server
	Port           int      `json:"port,omitempty"`
	CORSOrigins    []string `json:"cors_origins,omitempty"`
	MaxUploadBytes int64    `json:"max_upload_bytes,omitempty"`
	RequestTimeout Duration `json:"request_timeout,omitempty"`

	// LLM
	LLMProvider   string `json:"llm_provider,omitempty"`
	ModelLite     string `json:"model_lite,omitempty"`
	ModelStandard string `json:"model_standard,omitempty"`
	ModelAdvanced string `json:"model_advanced,omitempty"`
	APIKey        string `json:"api_key,omitempty"` // server default; requests may bring their own

	// Tailoring
	DefaultStrictness types.Strictness `json:"default_strictness,omitempty"`

	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // runs are not persisted when empty
	RedisURL    string `json:"redis_url,omitempty"`    // fetched pages are not cached when empty

	// Job posting fetch
	UseBrowser bool `json:"use_browser,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:              DefaultPort,
		CORSOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
		MaxUploadBytes:    DefaultMaxUploadBytes,
		RequestTimeout:    Duration(DefaultRequestTimeout),
		LLMProvider:       string(llm.ProviderGemini),
		DefaultStrictness: types.StrictnessModerate,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load builds the effective configuration: environment variables win over the JSON file at
// path (when given), which wins over the defaults.
func Load(path string) (*Config, error) {
	cfg := FromEnv()
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = cfg.MergeWithDefaults(*file)
	}
	cfg = cfg.MergeWithDefaults(Default())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv reads the configuration from environment variables only
func FromEnv() Config {
	cfg := Config{
		Port:              getEnvInt("PORT", 0),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 0)),
		RequestTimeout:    Duration(getEnvDuration("REQUEST_TIMEOUT", 0)),
		LLMProvider:       os.Getenv("LLM_PROVIDER"),
		ModelLite:         os.Getenv("LLM_MODEL_LITE"),
		ModelStandard:     os.Getenv("LLM_MODEL_STANDARD"),
		ModelAdvanced:     os.Getenv("LLM_MODEL_ADVANCED"),
		APIKey:            os.Getenv("LLM_API_KEY"),
		DefaultStrictness: types.Strictness(os.Getenv("DEFAULT_STRICTNESS")),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		UseBrowser:        getEnvBool("USE_BROWSER", false),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		LogFormat:         os.Getenv("LOG_FORMAT"),
	}
	if cfg.APIKey == "" {
		cfg.APIKey = providerAPIKey(cfg.LLMProvider)
	}
	return cfg
}

// providerAPIKey falls back to the vendor's conventional variable
func providerAPIKey(provider string) string {
	p, err := llm.ParseProvider(provider)
	if err != nil {
		return ""
	}
	switch p {
	case llm.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case llm.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("GEMINI_API_KEY")
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("config error: 'max_upload_bytes' must be non-negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config error: 'request_timeout' must be non-negative")
	}
	if _, err := llm.ParseProvider(c.LLMProvider); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.DefaultStrictness != "" && !c.DefaultStrictness.IsValid() {
		return fmt.Errorf("config error: invalid 'default_strictness' %q", c.DefaultStrictness)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags and the environment.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.ModelLite == "" {
		result.ModelLite = defaults.ModelLite
	}
	if result.ModelStandard == "" {
		result.ModelStandard = defaults.ModelStandard
	}
	if result.ModelAdvanced == "" {
		result.ModelAdvanced = defaults.ModelAdvanced
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DefaultStrictness == "" {
		result.DefaultStrictness = defaults.DefaultStrictness
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = defaults.CORSOrigins
	}

	// Numeric fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if result.RequestTimeout == 0 {
		result.RequestTimeout = defaults.RequestTimeout
	}

	// Bool fields: false cannot be told apart from unset, so true wins
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser

	return result
}

// LLMConfig returns the provider configuration with any model overrides applied
func (c *Config) LLMConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(c.LLMProvider)
	if err != nil {
		return nil, err
	}
	cfg := llm.DefaultConfigFor(provider)
	for tier, model := range map[llm.ModelTier]string{
		llm.TierLite:     c.ModelLite,
		llm.TierStandard: c.ModelStandard,
		llm.TierAdvanced: c.ModelAdvanced,
	} {
		if model != "" {
			cfg = cfg.WithModel(tier, model)
		}
	}
	return cfg, nil
}

// Timeout returns RequestTimeout as a time.Duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout)
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
