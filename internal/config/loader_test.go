package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Query.DefaultPageSize)
	assert.Equal(t, 100, cfg.Query.MaxPageSize)
	assert.Equal(t, "header", cfg.Auth.Mode)
	assert.Equal(t, "X-Tenant-Id", cfg.Auth.TenantHeader)
	assert.Equal(t, int64(32<<20), cfg.Ingestion.MaxUploadBytes)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("store:\n  driver: postgres\nquery:\n  max_page_size: 50\ndatabase:\n  host: db.internal\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("BILLINGAPI_QUERY_MAX_PAGE_SIZE", "25")
	t.Setenv("BILLINGAPI_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 25, cfg.Query.MaxPageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "db.internal", cfg.Database.DB().Host)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("BILLINGAPI_STORE_DRIVER", "sqlite")
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Driver")
}

func TestLoad_JWTModeNeedsSecret(t *testing.T) {
	t.Setenv("BILLINGAPI_AUTH_MODE", "jwt")
	_, err := Load(t.TempDir())
	require.Error(t, err)

	t.Setenv("BILLINGAPI_AUTH_JWT_SECRET", "s3cret")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestValidate_DefaultPageWithinMax(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Query.DefaultPageSize = 200
	assert.Error(t, Validate(cfg))
}
