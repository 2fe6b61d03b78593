package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()

	t.Run("overlays present keys", func(t *testing.T) {
		path := filepath.Join(dir, "cfg.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"api_endpoint": "http://xfer.example",
			"download_connections": 8,
			"stall_timeout": "90s",
			"pulse": 500000000,
			"max_restarts": 0,
			"state_name": "laptop"
		}`), 0o600))
		os.Args = []string{"xfer", "-c", path}

		var cfg Config
		cfg.LoadDefaults()
		parseJson(&cfg)

		assert.Equal(t, "http://xfer.example", cfg.APIEndpoint)
		assert.Equal(t, 3, cfg.UploadConnections)
		assert.Equal(t, 8, cfg.DownloadConnections)
		assert.Equal(t, 90*time.Second, cfg.StallTimeout)
		assert.Equal(t, 10*time.Minute, cfg.RateLimitBackoff)
		assert.Equal(t, 500*time.Millisecond, cfg.Pulse)
		assert.Equal(t, 0, cfg.MaxRestarts)
		assert.Equal(t, ".xfer", cfg.StateDir)
		assert.Equal(t, "laptop", cfg.StateName)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"xfer"}

		cfg := Config{APIEndpoint: "keep"}
		parseJson(&cfg)
		assert.Equal(t, "keep", cfg.APIEndpoint)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		os.Args = []string{"xfer", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("bad duration panics", func(t *testing.T) {
		bad := filepath.Join(dir, "dur.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"pulse": "soon"}`), 0o600))
		os.Args = []string{"xfer", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
