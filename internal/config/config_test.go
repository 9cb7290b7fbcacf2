package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.DefaultK)
	assert.Equal(t, 2, c.KMin)
	assert.Equal(t, 5, c.KMax)
	assert.Equal(t, uint64(42), c.Seed)
	assert.Equal(t, 10, c.Restarts)
	assert.Equal(t, 300, c.MaxIter)
	assert.Equal(t, 10, c.MaxUploadMB)
	assert.Equal(t, 60, c.SessionTTLMin)
	assert.Equal(t, "", c.RedisAddr)
	assert.Equal(t, "text", c.LogFormat)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_k: 4\nk_max: 8\nlog_format: json\n"), 0o644))
	t.Setenv("SEGMENTA_DEFAULT_K", "6")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, c.DefaultK)
	assert.Equal(t, 8, c.KMax)
	assert.Equal(t, "json", c.LogFormat)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "c.yaml")
	c, err := Load("")
	require.NoError(t, err)
	c.RedisAddr = "localhost:6379"
	c.KMax = 7
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", got.RedisAddr)
	assert.Equal(t, 7, got.KMax)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	bad := []func(*Global){
		func(c *Global) { c.DefaultK = 0 },
		func(c *Global) { c.KMin = 1 },
		func(c *Global) { c.KMin, c.KMax = 5, 4 },
		func(c *Global) { c.Restarts = 0 },
		func(c *Global) { c.LogFormat = "xml" },
	}
	for i, mutate := range bad {
		c := *base
		mutate(&c)
		assert.Error(t, c.Validate(), "case %d", i)
	}
	assert.NoError(t, base.Validate())
}
