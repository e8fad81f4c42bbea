package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEADGEN_STORE_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Scraper.StableRounds)
	assert.Equal(t, 4*time.Second, cfg.WhatsApp.MinDelay)
	assert.Equal(t, "IN", cfg.WhatsApp.Region)
	assert.NotEmpty(t, cfg.Scraper.Keywords["STUDENT_COMMUNITIES"])
	assert.NotEmpty(t, cfg.Scraper.RelevanceKeywords)
	assert.NotEmpty(t, cfg.Scraper.Locations)
	assert.NotEmpty(t, cfg.WhatsApp.Messages)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leadgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
store:
  backend: postgres
postgres:
  dsn: postgres://leadgen@localhost/leadgen
scraper:
  stable_rounds: 3
  locations: ["Pune"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Scraper.StableRounds)
	assert.Equal(t, []string{"Pune"}, cfg.Scraper.Locations)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LEADGEN_STORE_BACKEND", "memory")
	t.Setenv("LEADGEN_SERVER_ADDR", ":7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestValidateSheetsNeedsSpreadsheet(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spreadsheet_id")
}

func TestValidateUnknownBackend(t *testing.T) {
	t.Setenv("LEADGEN_STORE_BACKEND", "dynamo")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestValidateDelayOrdering(t *testing.T) {
	cfg := Config{
		Store: StoreConfig{Backend: BackendMemory},
	}
	cfg.Scraper.MinDelay = 2 * time.Second
	cfg.Scraper.MaxDelay = time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_delay")
}
