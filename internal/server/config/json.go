package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophxfer/internal/flagx"
	"github.com/dmitrijs2005/gophxfer/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// use timex.Duration so both "24h" and integer nanoseconds are accepted.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	ListenAddr      string         `json:"listen_addr"`
	PublicURL       string         `json:"public_url"`
	SecretKey       string         `json:"secret_key"`
	TempURLValidity timex.Duration `json:"tempurl_validity"`
	Storage         string         `json:"storage"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	RateLimit       float64        `json:"rate_limit"`
	RateBurst       int            `json:"rate_burst"`
	LogLevel        string         `json:"log_level"`
}

func setIf[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// parseJson loads configuration values from the file named by -c / -config
// into config. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setIf(&config.ListenAddr, c.ListenAddr)
	setIf(&config.PublicURL, c.PublicURL)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.TempURLValidity, c.TempURLValidity.Duration)
	setIf(&config.Storage, c.Storage)
	setIf(&config.S3RootUser, c.S3RootUser)
	setIf(&config.S3RootPassword, c.S3RootPassword)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.RateLimit, c.RateLimit)
	setIf(&config.RateBurst, c.RateBurst)
	setIf(&config.LogLevel, c.LogLevel)
}
