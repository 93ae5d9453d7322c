package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/flagx"
)

var ownFlags = []string{"-m", "-g", "-i", "-d", "-l", "-w"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-m string   master base URL
//	-g string   client gateway base URL
//	-i int      dashboard refresh interval (seconds)
//	-d string   session database path
//	-l string   log level (debug, info, warn, error)
//	-w string   live view listen address, empty disables it
//
// Only the flags above are picked out of os.Args (flagx.FilterArgs), so the
// config file flags and anything else are left alone. Fields whose flag is
// absent keep the value from earlier sources. A malformed value or a
// non-positive -i panics.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], ownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.MasterURL, "m", cfg.MasterURL, "master base URL")
	fs.StringVar(&cfg.GatewayURL, "g", cfg.GatewayURL, "client gateway base URL")
	refresh := fs.Int("i", int(cfg.RefreshInterval.Seconds()), "dashboard refresh interval (in seconds)")
	fs.StringVar(&cfg.SessionDBPath, "d", cfg.SessionDBPath, "session database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LiveViewAddr, "w", cfg.LiveViewAddr, "live view listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name != "i" {
			return
		}
		if *refresh <= 0 {
			panic(fmt.Sprintf("refresh interval must be positive, got -i %d", *refresh))
		}
		cfg.RefreshInterval = time.Duration(*refresh) * time.Second
	})
}
