package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "workersai"
account_id = "acct"

[extraction]
variant = "extended"
chunk_size = 4000

[buckets.RESEARCH_DOCS]
provider = "s3"
name = "research-docs"
endpoint = "https://example.r2.cloudflarestorage.com"

[workflow.retry]
max_attempts = 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "workersai", cfg.LLM.Provider)
	assert.Equal(t, DefaultWorkersAIModel, cfg.LLM.Model)
	assert.Equal(t, "extended", cfg.Extraction.Variant)
	assert.Equal(t, 4000, cfg.Extraction.ChunkSize)
	assert.Equal(t, 100, cfg.Extraction.MinChunkSize)
	assert.Equal(t, "research-docs", cfg.Buckets["RESEARCH_DOCS"].Name)
	assert.Equal(t, 5, cfg.Workflow.Retry.MaxAttempts)
	assert.Equal(t, "10s", cfg.Workflow.Retry.InitialDelay)
	assert.Equal(t, 2.0, cfg.Workflow.Retry.BackoffMultiplier)
	assert.Equal(t, 2000, cfg.Ledger.Limit)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "openai"
model = "gpt-4o-mini"
`)
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STORE_DRIVER", "postgres")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Queue.Brokers)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DSN)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, Duration("", 10*time.Second))
	assert.Equal(t, 90*time.Minute, Duration("1h30m", time.Second))
	assert.Equal(t, time.Second, Duration("soon", time.Second))
}
