// Package config loads runtime configuration for the xfer CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the storage server API
//	-u int      upload connections per transfer
//	-d int      download connections per transfer
//	-t int      stall timeout (seconds)
//	-b int      rate-limit backoff (seconds)
//	-i int      pulse interval (milliseconds)
//	-r int      restarts after a stall
//	-s string   state cache directory
//	-n string   state cache name
//	-v string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "60s" or integer nanoseconds:
//
//	{
//	  "api_endpoint": "http://127.0.0.1:8080",
//	  "upload_connections": 3,
//	  "download_connections": 4,
//	  "stall_timeout": "60s",
//	  "rate_limit_backoff": "10m",
//	  "pulse": "1s",
//	  "max_restarts": 5,
//	  "state_dir": ".xfer",
//	  "state_name": "default",
//	  "log_level": "info"
//	}
//
// Keys missing from the file keep their earlier value.
package config
