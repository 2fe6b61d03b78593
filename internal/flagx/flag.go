// Package flagx lets several components parse their own flags out of one
// command line without tripping over each other's.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// ConfigEnv names the variable consulted when no config flag is given.
const ConfigEnv = "XFER_CONFIG"

// FilterArgs keeps only the flags listed in allowed, in their original
// order. "-f=value" is kept whole; "-f value" keeps the value when the next
// token does not start with '-'. Everything else is dropped.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		known[f] = true
	}

	out := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if known[name] {
				out = append(out, arg)
			}
			continue
		}

		if !known[arg] {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, args[i])
		}
	}

	return out
}

// ConfigPath returns the value of -c / -config in args; the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}

// ConfigFile returns the JSON config file named on the command line, or by
// ConfigEnv, or "" when there is none.
func ConfigFile() string {
	if path := ConfigPath(os.Args[1:]); path != "" {
		return path
	}
	return os.Getenv(ConfigEnv)
}
