package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigFileDefaults(t *testing.T) {
	path := writeConfigFile(t, "app:\n  logLevel: warn\n")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, DefaultModel, cfg.AI.Model)
	assert.Equal(t, 1200*time.Millisecond, cfg.Session.PhaseInterval)
	assert.Equal(t, 800*time.Millisecond, cfg.Payment.GatewayDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Payment.ProcessingDelay)
	assert.Equal(t, "$9.99", cfg.Payment.Price)
	assert.Equal(t, "file", cfg.Storage.Driver)

	analyze := cfg.GetAnalyzeConfig()
	require.NotNil(t, analyze.MaxRetries)
	assert.Equal(t, 0, *analyze.MaxRetries, "analysis must not retry automatically")
	assert.Equal(t, DefaultModel, analyze.Model)
	assert.True(t, analyze.CircuitBreaker.Enabled)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := writeConfigFile(t, `
ai:
  model: gemini-2.5-pro
  apiKey: global-key
  chat:
    model: gemini-2.5-flash
storage:
  driver: memory
session:
  phaseInterval: 50ms
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 50*time.Millisecond, cfg.Session.PhaseInterval)

	chat := cfg.GetChatConfig()
	assert.Equal(t, "gemini-2.5-flash", chat.Model)
	assert.Equal(t, "global-key", chat.APIKey)

	deck := cfg.GetPrepDeckConfig()
	assert.Equal(t, "gemini-2.5-pro", deck.Model)
}

func TestLoadConfigFilePromptFromFile(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "analyze-system.txt")
	require.NoError(t, os.WriteFile(promptPath, []byte("  You are a forensic recruiter.  \n"), 0600))

	path := writeConfigFile(t, "ai:\n  analyze:\n    prompts:\n      systemFile: "+promptPath+"\n")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "You are a forensic recruiter.", cfg.GetAnalyzeConfig().Prompts.System)
}

func TestLoadConfigFileMissingPromptFile(t *testing.T) {
	path := writeConfigFile(t, "ai:\n  chat:\n    prompts:\n      userFile: /nonexistent/prompt.txt\n")

	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt file not found")
}

func TestGetOperationConfig(t *testing.T) {
	cfg := &Config{AI: AIConfig{Model: "m", Timeout: time.Second}}

	for _, op := range []string{OperationAnalyze, OperationPrepDeck, OperationChat} {
		opCfg, ok := cfg.GetOperationConfig(op)
		assert.True(t, ok, op)
		assert.Equal(t, "m", opCfg.Model)
	}

	_, ok := cfg.GetOperationConfig("tailor")
	assert.False(t, ok)
}

func validConfig() *Config {
	return &Config{
		AI:      AIConfig{Timeout: time.Second},
		Server:  ServerConfig{Port: "8080"},
		App:     AppConfig{DefaultFormat: "text", SupportedFormats: []string{"text", "json"}, MaxFileSize: 1024},
		Storage: StorageConfig{Driver: "memory"},
		Session: SessionConfig{PhaseInterval: time.Second},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, wantErr: "AI timeout"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port"},
		{name: "unsupported default format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "invalid default format"},
		{name: "unknown storage driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }, wantErr: "invalid storage driver"},
		{name: "file driver without path", mutate: func(c *Config) { c.Storage.Driver = "file" }, wantErr: "storage path"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "storage dsn"},
		{name: "postgres with vault dsn", mutate: func(c *Config) {
			c.Storage.Driver = "postgres"
			c.Vault.Secrets.StorageDSN = "secret/data/db"
		}},
		{name: "negative payment delay", mutate: func(c *Config) { c.Payment.GatewayDelay = -time.Second }, wantErr: "payment delays"},
		{name: "tls server without files", mutate: func(c *Config) { c.Server.TLS.Mode = "server" }, wantErr: "TLS"},
		{name: "tls bad mode", mutate: func(c *Config) { c.Server.TLS.Mode = "mutual" }, wantErr: "invalid TLS mode"},
		{name: "tls bad version", mutate: func(c *Config) {
			c.Server.TLS = TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.1"}
		}, wantErr: "minVersion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
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

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitAndTrim(" a, b ,,c "))
	assert.Empty(t, splitAndTrim(""))
}
