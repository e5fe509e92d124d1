package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points Load at an empty home and no .env files, and clears the
// variables these tests read.
func isolate(t *testing.T) []Option {
	t.Helper()
	for _, k := range []string{
		"SECOND_MIND_DB", "SECOND_MIND_LLM_PROVIDER", "SECOND_MIND_LLM_API_KEY",
		"SECOND_MIND_SERVER_PORT", "SECOND_MIND_GENERATION_TIMEOUT",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return []Option{WithHomeDir(t.TempDir()), WithEnvFiles()}
}

func TestLoad_Defaults(t *testing.T) {
	opts := isolate(t)
	home := t.TempDir()
	opts = append(opts, WithHomeDir(home))

	cfg, err := Load(opts...)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".second-mind", "memory.db"), cfg.DB)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Router.Model)
	assert.Equal(t, 256, cfg.Router.MaxTokens)
	assert.Equal(t, 10*time.Second, cfg.Router.Timeout)
	assert.Equal(t, "Gaurav.md", cfg.Router.CoreIdentityFile)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Generation.Model)
	assert.Equal(t, 2048, cfg.Generation.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "Second Mind", cfg.Assistant.Name)
	assert.Equal(t, "Gaurav", cfg.Assistant.Owner)
	assert.Equal(t, 10, cfg.History.MaxExchanges)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_ConfigFileAndEnv(t *testing.T) {
	opts := isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
llm:
  provider: openai
generation:
  timeout: 45s
assistant:
  owner: Ada
`), 0o644))

	t.Setenv("SECOND_MIND_SERVER_PORT", "7070")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(append(opts, WithConfigFile(path))...)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, 7070, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey, "provider key fallback")
	assert.Equal(t, 45*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "Ada", cfg.Assistant.Owner)
}

func TestLoad_ExplicitAPIKeyWins(t *testing.T) {
	opts := isolate(t)
	t.Setenv("SECOND_MIND_LLM_API_KEY", "explicit")
	t.Setenv("ANTHROPIC_API_KEY", "fallback")

	cfg, err := Load(opts...)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoad_DBFromEnv(t *testing.T) {
	opts := isolate(t)
	t.Setenv("SECOND_MIND_DB", "/tmp/custom.db")

	cfg, err := Load(opts...)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DB)
}

func TestLoad_EnvFile(t *testing.T) {
	opts := isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SECOND_MIND_LLM_PROVIDER=gemini\nGEMINI_API_KEY=g-key\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SECOND_MIND_LLM_PROVIDER")
		os.Unsetenv("GEMINI_API_KEY")
	})

	cfg, err := Load(append(opts, WithEnvFiles(envFile, filepath.Join(t.TempDir(), "missing.env")))...)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	opts := isolate(t)
	_, err := Load(append(opts, WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))...)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	opts := isolate(t)
	t.Setenv("SECOND_MIND_GENERATION_TIMEOUT", "0s")

	_, err := Load(opts...)
	assert.ErrorContains(t, err, "generation.timeout")
}
