package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"resumeforensics/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KVv2 paths secrets are read from. An empty path
// leaves the corresponding setting as configured.
type VaultSecrets struct {
	APIKeys         string `mapstructure:"apiKeys"`         // "keys": comma separated server API keys
	GeminiKey       string `mapstructure:"geminiKey"`       // "api_key"
	StorageDSN      string `mapstructure:"storageDSN"`      // "dsn"
	AdminPassphrase string `mapstructure:"adminPassphrase"` // "passphrase_hash": bcrypt hash
}

// VaultClient reads KVv2 secrets.
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health. It returns nil
// when the integration is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", apiCfg.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if health.Sealed {
		return nil, fmt.Errorf("vault at %s is sealed", apiCfg.Address)
	}
	logger.Info("Connected to Vault",
		"address", apiCfg.Address,
		"version", health.Version,
		"cluster_name", health.ClusterName)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file.
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret is the payload and version of a KVv2 secret.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// ReadSecret reads a KVv2 secret. path includes the mount's data/ segment.
func (vc *VaultClient) ReadSecret(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}
	raw, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return decodeKV(raw.Data, path)
}

// decodeKV unwraps the data and metadata envelopes of a KVv2 response.
func decodeKV(body map[string]any, path string) (*VaultSecret, error) {
	data, ok := body["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := body["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := kvVersion(metadata["version"])
	if err != nil {
		return nil, fmt.Errorf("secret at %s: %w", path, err)
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// kvVersion accepts the number shapes the JSON decoder and the api package produce.
func kvVersion(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("metadata is missing 'version'")
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case interface{ Int64() (int64, error) }:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse version %q: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected type for version: %T", raw)
	}
}

// StringSecret returns one string field of a secret.
func (vc *VaultClient) StringSecret(path, key string) (string, error) {
	secret, err := vc.ReadSecret(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	vc.logger.Debug("Secret read from Vault", "path", path, "key", key, "version", secret.Version, "masked_value", maskSecret(s))
	return s, nil
}

func maskSecret(s string) string {
	if len(s) > 8 {
		return s[:4] + "****" + s[len(s)-4:]
	}
	return "****"
}

// secretBinding maps one Vault field onto the config.
type secretBinding struct {
	name  string
	path  string
	key   string
	apply func(cfg *Config, value string)
}

func vaultBindings(secrets VaultSecrets) []secretBinding {
	return []secretBinding{
		{"API keys", secrets.APIKeys, "keys", func(cfg *Config, v string) { cfg.Server.APIKeys = splitAndTrim(v) }},
		{"Gemini API key", secrets.GeminiKey, "api_key", applyGeminiKeyToConfig},
		{"storage DSN", secrets.StorageDSN, "dsn", func(cfg *Config, v string) { cfg.Storage.DSN = v }},
		{"admin passphrase hash", secrets.AdminPassphrase, "passphrase_hash", func(cfg *Config, v string) { cfg.Admin.PassphraseHash = v }},
	}
}

// ApplyVaultSecrets overlays the configured Vault secrets onto cfg.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, cfg, logger)
}

func applySecrets(client *VaultClient, cfg *Config, logger *errors.Logger) error {
	for _, b := range vaultBindings(cfg.Vault.Secrets) {
		if b.path == "" {
			continue
		}
		value, err := client.StringSecret(b.path, b.key)
		if err != nil {
			logger.LogError(err, "Failed to load secret from Vault", "secret", b.name, "path", b.path)
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		if value == "" {
			logger.Warn("Empty secret in Vault", "secret", b.name, "path", b.path)
			continue
		}
		b.apply(cfg, value)
		logger.Info("Secret loaded from Vault", "secret", b.name)
	}
	return nil
}

// applyGeminiKeyToConfig sets the shared key and fills operations without their own.
func applyGeminiKeyToConfig(cfg *Config, key string) {
	cfg.AI.APIKey = key
	for _, op := range []*OperationAIConfig{&cfg.AI.Analyze, &cfg.AI.PrepDeck, &cfg.AI.Chat} {
		if op.APIKey == "" {
			op.APIKey = key
		}
	}
}
