package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
server:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "data/priorauth.db", cfg.Database.Path)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)

	assert.Equal(t, "configs/reference/providers.json", cfg.Reference.ProviderDirectoryPath)

	require.NoError(t, cfg.Review.Weights.Validate())
	assert.False(t, cfg.Review.Resolver.AllowDeny)

	assert.Equal(t, 30*time.Second, cfg.Worker.ResumeInterval)
	assert.Equal(t, 10, cfg.Worker.ResumeBatch)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	path := writeConfig(t, `
server:
  port: 8080
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.api_key is required")
}

func TestLoadRejectsBadWeights(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
review:
  weights:
    provider: 0.50
    codes: 0.15
    policy_match: 0.20
    clinical_criteria: 0.35
    documentation: 0.10
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights must sum to 1.0")
}

func TestLoadRejectsBadResolverConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
review:
  resolver:
    allow_deny: true
    deny_min_confidence: 40
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deny_min_confidence must be between 60 and 100")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
