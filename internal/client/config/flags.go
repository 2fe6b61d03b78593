package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophxfer/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// See the package documentation for the list.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-d", "-t", "-b", "-i", "-r", "-s", "-n", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIEndpoint, "a", cfg.APIEndpoint, "storage server API URL")
	fs.IntVar(&cfg.UploadConnections, "u", cfg.UploadConnections, "upload connections")
	fs.IntVar(&cfg.DownloadConnections, "d", cfg.DownloadConnections, "download connections")
	stallTimeout := fs.Int("t", int(cfg.StallTimeout.Seconds()), "stall timeout (in seconds)")
	rateLimitBackoff := fs.Int("b", int(cfg.RateLimitBackoff.Seconds()), "rate limit backoff (in seconds)")
	pulse := fs.Int("i", int(cfg.Pulse.Milliseconds()), "pulse interval (in milliseconds)")
	fs.IntVar(&cfg.MaxRestarts, "r", cfg.MaxRestarts, "restarts after a stall")
	fs.StringVar(&cfg.StateDir, "s", cfg.StateDir, "state cache directory")
	fs.StringVar(&cfg.StateName, "n", cfg.StateName, "state cache name")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.StallTimeout = time.Duration(*stallTimeout) * time.Second
	cfg.RateLimitBackoff = time.Duration(*rateLimitBackoff) * time.Second
	cfg.Pulse = time.Duration(*pulse) * time.Millisecond
}
