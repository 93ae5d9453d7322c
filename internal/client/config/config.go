package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the gfsdash console.
//
// Durations are time.Duration values; RefreshInterval is exposed on the
// command line in whole seconds.
type Config struct {
	MasterURL  string
	GatewayURL string

	RefreshInterval        time.Duration
	UploadPacing           time.Duration
	PostUploadRefreshDelay time.Duration
	RequestTimeout         time.Duration

	SessionDBPath string

	LogLevel  string
	LogFormat string

	// LiveViewAddr is the listen address of the websocket live view and
	// /metrics. Empty disables it.
	LiveViewAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.MasterURL = "http://localhost:8000"
	c.GatewayURL = "http://localhost:8001"
	c.RefreshInterval = 3 * time.Second
	c.UploadPacing = time.Second
	c.PostUploadRefreshDelay = 2 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.SessionDBPath = "gfsdash.db"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.LiveViewAddr = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	cfg.validate()
	return cfg
}

// validate panics on settings the console cannot run with.
func (c *Config) validate() {
	if c.RefreshInterval <= 0 {
		panic(fmt.Sprintf("refresh interval must be positive, got %s", c.RefreshInterval))
	}
}
