package properties

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.Strict)
	assert.True(t, cfg.CacheEnabled)
	assert.Empty(t, cfg.ExcludedQualityCodes)
	assert.Equal(t, 5*time.Minute, cfg.HTTPTimeout)
	assert.Contains(t, cfg.LaadsBaseURL, "ladsweb.modaps.eosdis.nasa.gov")
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("ROOT_PATH", "/srv/ntl")
	t.Setenv("WORKERS", "0")
	t.Setenv("STRICT", "true")
	t.Setenv("EXCLUDED_QUALITY_CODES", "1,2")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.Strict)
	assert.Equal(t, []int{1, 2}, cfg.ExcludedQualityCodes)
	assert.Equal(t, filepath.Join("/srv/ntl", "data", "blackmarble"), cfg.DownloadPath())
	assert.Equal(t, filepath.Join("/srv/ntl", "data", "cache", "records"), cfg.RecordCachePath())
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BLACKMARBLE_BEARER_TOKEN=secret\n"), 0644))
	t.Setenv("BLACKMARBLE_BEARER_TOKEN", "")
	require.NoError(t, os.Unsetenv("BLACKMARBLE_BEARER_TOKEN"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.BearerToken)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("WORKERS", "many")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
