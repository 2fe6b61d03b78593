package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "http://xfer:9090", "-u", "2", "-d", "6", "-t", "30", "-b", "120", "-i", "250",
			"-r", "1", "-s", "/tmp/state", "-n", "work", "-v", "debug",
		}, expectPanic: false,
			expected: &Config{
				APIEndpoint:         "http://xfer:9090",
				UploadConnections:   2,
				DownloadConnections: 6,
				StallTimeout:        30 * time.Second,
				RateLimitBackoff:    2 * time.Minute,
				Pulse:               250 * time.Millisecond,
				MaxRestarts:         1,
				StateDir:            "/tmp/state",
				StateName:           "work",
				LogLevel:            "debug",
			}},
		{name: "incorrect stall timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
