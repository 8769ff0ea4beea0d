package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Outreach.BatchSize)
	assert.Equal(t, 18000, cfg.Scrape.ContentCharLimit)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1000, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROSPECT_STORE_DRIVER", "postgres")
	t.Setenv("PROSPECT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOnlyCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROSPECT_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("PROSPECT_CONTACTOUT_KEY", "co-test")
	t.Setenv("PROSPECT_RESEND_FROM", "outreach@example.com")
	t.Setenv("PROSPECT_NOTION_TOKEN", "secret-token")

	cfg, err := Load()
	require.NoError(t, err)

	// None of these keys have defaults; they must still load from env.
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, "co-test", cfg.ContactOut.Key)
	assert.Equal(t, "outreach@example.com", cfg.Resend.From)
	assert.Equal(t, "secret-token", cfg.Notion.Token)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
store:
  driver: postgres
  database_url: postgres://localhost/prospects
outreach:
  batch_size: 25
`), 0o644)
	require.NoError(t, err)
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/prospects", cfg.Store.DatabaseURL)
	assert.Equal(t, 25, cfg.Outreach.BatchSize)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "console"})
	assert.NoError(t, err)
}
