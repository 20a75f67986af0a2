package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string   `json:"name"`
	Ratio *float64 `json:"ratio"`
}

func TestFileCache_SetGet(t *testing.T) {
	fc := NewFileCache[entry](filepath.Join(t.TempDir(), "records"))
	ratio := 0.5
	key := fc.GenerateKey("region", "VNP46A3", "2023-01-01")

	_, ok := fc.Get(key)
	assert.False(t, ok)

	require.NoError(t, fc.Set(key, entry{Name: "a", Ratio: &ratio}))
	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
	require.NotNil(t, got.Ratio)
	assert.Equal(t, 0.5, *got.Ratio)

	require.NoError(t, fc.Delete(key))
	_, ok = fc.Get(key)
	assert.False(t, ok)
	assert.NoError(t, fc.Delete(key))
}

func TestFileCache_CorruptedEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache[entry](dir)
	key := fc.GenerateKey("x")
	require.NoError(t, fc.Set(key, entry{Name: "a"}))

	path := filepath.Join(dir, key+".json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":{"name":"b"},"checksum":"nope"}`), 0644))

	_, ok := fc.Get(key)
	assert.False(t, ok)
}

func TestFileCache_GenerateKeyIsStable(t *testing.T) {
	fc := NewFileCache[entry](t.TempDir())
	assert.Equal(t, fc.GenerateKey("a", 1, []int{2}), fc.GenerateKey("a", 1, []int{2}))
	assert.NotEqual(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 2))
}
