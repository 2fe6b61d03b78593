package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophxfer/internal/flagx"
	"github.com/dmitrijs2005/gophxfer/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key from an explicit zero.
type JsonConfig struct {
	APIEndpoint         *string         `json:"api_endpoint"`
	UploadConnections   *int            `json:"upload_connections"`
	DownloadConnections *int            `json:"download_connections"`
	StallTimeout        *timex.Duration `json:"stall_timeout"`
	RateLimitBackoff    *timex.Duration `json:"rate_limit_backoff"`
	Pulse               *timex.Duration `json:"pulse"`
	MaxRestarts         *int            `json:"max_restarts"`
	StateDir            *string         `json:"state_dir"`
	StateName           *string         `json:"state_name"`
	LogLevel            *string         `json:"log_level"`
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// parseJson overlays cfg with values loaded from the file named by -c or
// -config. Without the flag nothing is loaded. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	set(&cfg.APIEndpoint, jc.APIEndpoint)
	set(&cfg.UploadConnections, jc.UploadConnections)
	set(&cfg.DownloadConnections, jc.DownloadConnections)
	if jc.StallTimeout != nil {
		cfg.StallTimeout = jc.StallTimeout.Duration
	}
	if jc.RateLimitBackoff != nil {
		cfg.RateLimitBackoff = jc.RateLimitBackoff.Duration
	}
	if jc.Pulse != nil {
		cfg.Pulse = jc.Pulse.Duration
	}
	set(&cfg.MaxRestarts, jc.MaxRestarts)
	set(&cfg.StateDir, jc.StateDir)
	set(&cfg.StateName, jc.StateName)
	set(&cfg.LogLevel, jc.LogLevel)
}
