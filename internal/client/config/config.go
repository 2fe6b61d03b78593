package config

import "time"

// Config holds runtime settings for the xfer CLI.
//
// Fields:
//   - APIEndpoint: base URL of the storage server's JSON API.
//   - UploadConnections / DownloadConnections: parallel chunk requests per transfer.
//   - StallTimeout: how long a transfer may go without data before it is restarted.
//   - RateLimitBackoff: hold after the server answers 509.
//   - Pulse: upper bound on the sleep between I/O passes.
//   - MaxRestarts: restarts after a stall before giving up.
//   - StateDir / StateName: location of the resume state cache.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	APIEndpoint         string
	UploadConnections   int
	DownloadConnections int
	StallTimeout        time.Duration
	RateLimitBackoff    time.Duration
	Pulse               time.Duration
	MaxRestarts         int
	StateDir            string
	StateName           string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIEndpoint = "http://127.0.0.1:8080"
	c.UploadConnections = 3
	c.DownloadConnections = 4
	c.StallTimeout = 60 * time.Second
	c.RateLimitBackoff = 10 * time.Minute
	c.Pulse = time.Second
	c.MaxRestarts = 5
	c.StateDir = ".xfer"
	c.StateName = "default"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
