package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVault serves sys/health and KVv2 reads for the given secrets, keyed by
// path under /v1/.
func fakeVault(t *testing.T, sealed bool, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/sys/health" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"initialized":  true,
				"sealed":       sealed,
				"standby":      false,
				"version":      "1.17.0",
				"cluster_name": "test-cluster",
			})
			return
		}
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		data, ok := secrets[strings.TrimPrefix(r.URL.Path, "/v1/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApplyVaultSecrets(t *testing.T) {
	srv := fakeVault(t, false, map[string]map[string]any{
		"secret/data/api":     {"keys": "key-one, key-two ,"},
		"secret/data/gemini":  {"api_key": "AIza-from-vault"},
		"secret/data/storage": {"dsn": "postgres://app@db/forensics"},
		"secret/data/admin":   {"passphrase_hash": "$2a$10$abcdefghijklmnopqrstuv"},
	})

	cfg := &Config{Vault: VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "test-token",
		Secrets: VaultSecrets{
			APIKeys:         "secret/data/api",
			GeminiKey:       "secret/data/gemini",
			StorageDSN:      "secret/data/storage",
			AdminPassphrase: "secret/data/admin",
		},
	}}
	cfg.AI.Chat.APIKey = "chat-specific"

	require.NoError(t, ApplyVaultSecrets(cfg, nil))

	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Server.APIKeys)
	assert.Equal(t, "AIza-from-vault", cfg.AI.APIKey)
	assert.Equal(t, "AIza-from-vault", cfg.AI.Analyze.APIKey)
	assert.Equal(t, "AIza-from-vault", cfg.AI.PrepDeck.APIKey)
	assert.Equal(t, "chat-specific", cfg.AI.Chat.APIKey)
	assert.Equal(t, "postgres://app@db/forensics", cfg.Storage.DSN)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", cfg.Admin.PassphraseHash)
}

func TestApplyVaultSecrets_Disabled(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.DSN = "unchanged"
	require.NoError(t, ApplyVaultSecrets(cfg, nil))
	assert.Equal(t, "unchanged", cfg.Storage.DSN)
}

func TestApplyVaultSecrets_Failures(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		srv := fakeVault(t, false, nil)
		cfg := &Config{Vault: VaultConfig{Enabled: true, Address: srv.URL, Token: "test-token",
			Secrets: VaultSecrets{StorageDSN: "secret/data/storage"}}}
		err := ApplyVaultSecrets(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage DSN")
	})

	t.Run("wrong key type", func(t *testing.T) {
		srv := fakeVault(t, false, map[string]map[string]any{"secret/data/admin": {"passphrase_hash": 42}})
		cfg := &Config{Vault: VaultConfig{Enabled: true, Address: srv.URL, Token: "test-token",
			Secrets: VaultSecrets{AdminPassphrase: "secret/data/admin"}}}
		err := ApplyVaultSecrets(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not a string")
	})

	t.Run("sealed", func(t *testing.T) {
		srv := fakeVault(t, true, nil)
		cfg := &Config{Vault: VaultConfig{Enabled: true, Address: srv.URL, Token: "test-token"}}
		err := ApplyVaultSecrets(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sealed")
	})

	t.Run("empty value keeps config", func(t *testing.T) {
		srv := fakeVault(t, false, map[string]map[string]any{"secret/data/storage": {"dsn": ""}})
		cfg := &Config{Vault: VaultConfig{Enabled: true, Address: srv.URL, Token: "test-token",
			Secrets: VaultSecrets{StorageDSN: "secret/data/storage"}}}
		cfg.Storage.DSN = "from-file"
		require.NoError(t, ApplyVaultSecrets(cfg, nil))
		assert.Equal(t, "from-file", cfg.Storage.DSN)
	})
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "vault-token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))
	blankFile := filepath.Join(dir, "blank")
	require.NoError(t, os.WriteFile(blankFile, []byte(" \n"), 0600))

	token, err := resolveVaultToken(VaultConfig{Token: "direct", TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "direct", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "failed to read vault token file")

	_, err = resolveVaultToken(VaultConfig{TokenFile: blankFile})
	assert.ErrorContains(t, err, "vault token is required")
}

func TestDecodeKV(t *testing.T) {
	secret, err := decodeKV(map[string]any{
		"data":     map[string]any{"dsn": "x"},
		"metadata": map[string]any{"version": json.Number("7")},
	}, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(7), secret.Version)
	assert.Equal(t, "x", secret.Data["dsn"])

	_, err = decodeKV(map[string]any{"dsn": "x"}, "p")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = decodeKV(map[string]any{"data": map[string]any{}}, "p")
	assert.ErrorContains(t, err, "missing 'metadata' field")
}

func TestKVVersion(t *testing.T) {
	for _, raw := range []any{int64(5), float64(5), "5", json.Number("5")} {
		v, err := kvVersion(raw)
		require.NoError(t, err, "%T", raw)
		assert.Equal(t, int64(5), v)
	}
	for _, raw := range []any{nil, "five", true} {
		_, err := kvVersion(raw)
		assert.Error(t, err, "%v", raw)
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "AIza****3456", maskSecret("AIzaSy123456"))
	assert.Equal(t, "****", maskSecret("short"))
}
