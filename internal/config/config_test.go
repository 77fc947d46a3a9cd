package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, StoreFile, cfg.Storage.StoreBackend)
	assert.Equal(t, ImagesDisk, cfg.Storage.ImageBackend)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxImageBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Auth.Enabled())
	assert.Zero(t, cfg.Sweeper.Interval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOMELIST_API_PORT", "9090")
	t.Setenv("HOMELIST_STORE_BACKEND", "Postgres")
	t.Setenv("HOMELIST_IMAGE_BACKEND", "minio")
	t.Setenv("HOMELIST_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("HOMELIST_JWT_SECRET", "s3cret")
	t.Setenv("HOMELIST_SWEEP_INTERVAL", "10m")
	t.Setenv("MINIO_USE_SSL", "yes")
	t.Setenv("POSTGRES_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Storage.StoreBackend)
	assert.Equal(t, ImagesMinIO, cfg.Storage.ImageBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Auth.Enabled())
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.Interval)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	t.Setenv("HOMELIST_STORE_BACKEND", "sqlite")
	t.Setenv("HOMELIST_IMAGE_BACKEND", "s3")
	t.Setenv("HOMELIST_MAX_IMAGE_BYTES", "0")
	t.Setenv("HOMELIST_API_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "sqlite"`)
	assert.Contains(t, err.Error(), `unknown backend "s3"`)
	assert.Contains(t, err.Error(), "HOMELIST_MAX_IMAGE_BYTES")
	assert.Contains(t, err.Error(), "70000")
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "homelist", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/homelist?sslmode=require", p.DSN())
}
