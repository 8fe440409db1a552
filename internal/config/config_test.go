package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.ServerPort)
	assert.Equal(t, "./manuscripts.db", cfg.DatabaseURL)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, BlobBackendLocal, cfg.BlobBackend)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.ManuscriptsRequireAuth)
	assert.Equal(t, "@every 1h", cfg.OrphanSweepSchedule)
	assert.Equal(t, 15*time.Minute, cfg.OrphanGracePeriod)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8081")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("MANUSCRIPTS_REQUIRE_AUTH", "false")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.ServerPort)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.ManuscriptsRequireAuth)
	assert.True(t, cfg.IsProduction())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad port", map[string]string{"PORT": "http"}},
		{"bad upload size", map[string]string{"MAX_UPLOAD_MB": "0"}},
		{"bad timeout", map[string]string{"REQUEST_TIMEOUT": "soon"}},
		{"unknown backend", map[string]string{"BLOB_BACKEND": "ftp"}},
		{"s3 without bucket", map[string]string{"BLOB_BACKEND": "s3"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
