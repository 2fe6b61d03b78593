package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophxfer/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-w string   public base URL for tempurls
//	-s string   tempurl HMAC secret key
//	-t int      tempurl validity, minutes
//	-m string   storage backend ("memory" or "s3")
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l float    chunk requests per second, 0 for unlimited
//	-n int      rate limiter burst
//	-v string   log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with the -c config flag.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-s", "-t", "-m", "-u", "-p", "-b", "-g", "-e", "-l", "-n", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.PublicURL, "w", config.PublicURL, "public base URL")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tempURLValidity := fs.Int("t", int(config.TempURLValidity.Minutes()), "tempurl validity (in minutes)")

	fs.StringVar(&config.Storage, "m", config.Storage, "storage backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.Float64Var(&config.RateLimit, "l", config.RateLimit, "chunk requests per second")
	fs.IntVar(&config.RateBurst, "n", config.RateBurst, "rate limiter burst")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TempURLValidity = time.Duration(*tempURLValidity) * time.Minute
}
