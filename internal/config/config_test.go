package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "CORS_ORIGINS", "MAX_UPLOAD_BYTES", "REQUEST_TIMEOUT", "LLM_PROVIDER",
	"LLM_MODEL_LITE", "LLM_MODEL_STANDARD", "LLM_MODEL_ADVANCED", "LLM_API_KEY",
	"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEFAULT_STRICTNESS",
	"DATABASE_URL", "REDIS_URL", "USE_BROWSER", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every variable FromEnv reads; empty values count as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9090,
		"llm_provider": "openai",
		"default_strictness": "conservative",
		"request_timeout": "90s",
		"cors_origins": ["https://cv.example.com"]
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, types.StrictnessConservative, cfg.DefaultStrictness)
	assert.Equal(t, 90*time.Second, cfg.Timeout())
	assert.Equal(t, []string{"https://cv.example.com"}, cfg.CORSOrigins)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{`"2m"`, 2 * time.Minute, false},
		{`45`, 45 * time.Second, false},
		{`"soon"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port"},
		{"negative upload", func(c *Config) { c.MaxUploadBytes = -1 }, "max_upload_bytes"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "mystery" }, "unknown LLM provider"},
		{"bad strictness", func(c *Config) { c.DefaultStrictness = "reckless" }, "default_strictness"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		LLMProvider: "anthropic",
		Port:        9000,
	}

	merged := partial.MergeWithDefaults(Default())

	// Set values are preserved
	assert.Equal(t, "anthropic", merged.LLMProvider)
	assert.Equal(t, 9000, merged.Port)

	// Defaults fill in empty fields
	assert.Equal(t, types.StrictnessModerate, merged.DefaultStrictness)
	assert.Equal(t, int64(DefaultMaxUploadBytes), merged.MaxUploadBytes)
	assert.Equal(t, DefaultRequestTimeout, merged.Timeout())
	assert.Equal(t, "info", merged.LogLevel)
	assert.NotEmpty(t, merged.CORSOrigins)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{LLMProvider: "openai", UseBrowser: true}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "openai", merged.LLMProvider)
	assert.True(t, merged.UseBrowser)
	assert.Zero(t, merged.Port)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("DATABASE_URL", "postgres://localhost/cv")
	path := writeConfig(t, `{"port": 9090, "log_level": "debug", "database_url": "postgres://file/cv"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "postgres://localhost/cv", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_STRICTNESS", "reckless")

	_, err := Load("")
	require.Error(t, err)
}

func TestFromEnv_ProviderAPIKey(t *testing.T) {
	tests := []struct {
		provider string
		envKey   string
	}{
		{"", "GEMINI_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"claude", "ANTHROPIC_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LLM_PROVIDER", tt.provider)
			t.Setenv(tt.envKey, "secret")
			assert.Equal(t, "secret", FromEnv().APIKey)
		})
	}

	t.Run("explicit key wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_API_KEY", "explicit")
		t.Setenv("GEMINI_API_KEY", "vendor")
		assert.Equal(t, "explicit", FromEnv().APIKey)
	})
}

func TestLLMConfig(t *testing.T) {
	cfg := Default()
	cfg.LLMProvider = "openai"
	cfg.ModelAdvanced = "gpt-custom"

	llmCfg, err := cfg.LLMConfig()
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, llmCfg.Provider)
	assert.Equal(t, "gpt-custom", llmCfg.GetModel(llm.TierAdvanced))
	assert.Equal(t, llm.DefaultOpenAIConfig().GetModel(llm.TierLite), llmCfg.GetModel(llm.TierLite))
}
