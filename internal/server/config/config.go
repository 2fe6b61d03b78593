// Package config handles configuration for the development storage server,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Storage backends.
const (
	StorageMemory = "memory"
	StorageS3     = "s3"
)

// Config holds runtime settings for the storage server.
//
// Fields:
//   - ListenAddr: bind address for the HTTP endpoint.
//   - PublicURL: base URL embedded in issued tempurls.
//   - SecretKey: HMAC secret for signing tempurls (HS256). Do not use test defaults in prod.
//   - TempURLValidity: lifetime of an issued tempurl.
//   - Storage: "memory" or "s3".
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - RateLimit / RateBurst: chunk requests per second before answering 509. Zero disables.
type Config struct {
	ListenAddr      string
	PublicURL       string
	SecretKey       string
	TempURLValidity time.Duration
	Storage         string
	S3RootUser      string
	S3RootPassword  string
	S3Bucket        string
	S3Region        string
	S3BaseEndpoint  string
	RateLimit       float64
	RateBurst       int
	LogLevel        string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.PublicURL = "http://127.0.0.1:8080"
	c.SecretKey = "secretKey"
	c.TempURLValidity = 24 * time.Hour
	c.Storage = StorageMemory
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "xfer"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.RateLimit = 0
	c.RateBurst = 64
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
