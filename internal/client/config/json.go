package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gfsdash/internal/flagx"
	"github.com/dmitrijs2005/gfsdash/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration, so "3s" and integer nanoseconds are both accepted.
type JsonConfig struct {
	MasterURL              string         `json:"master_url"`
	GatewayURL             string         `json:"gateway_url"`
	RefreshInterval        timex.Duration `json:"refresh_interval"`
	UploadPacing           timex.Duration `json:"upload_pacing"`
	PostUploadRefreshDelay timex.Duration `json:"post_upload_refresh_delay"`
	RequestTimeout         timex.Duration `json:"request_timeout"`
	SessionDBPath          string         `json:"session_db_path"`
	LogLevel               string         `json:"log_level"`
	LogFormat              string         `json:"log_format"`
	LiveViewAddr           string         `json:"live_view_addr"`
}

// parseJson overlays Config with the values present in the JSON file named
// by -c/-config (or GFSDASH_CONFIG). Keys missing from the file keep their
// current value. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
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

	setString(&cfg.MasterURL, jc.MasterURL)
	setString(&cfg.GatewayURL, jc.GatewayURL)
	setString(&cfg.SessionDBPath, jc.SessionDBPath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LiveViewAddr, jc.LiveViewAddr)

	if jc.RefreshInterval.Duration > 0 {
		cfg.RefreshInterval = jc.RefreshInterval.Duration
	}
	if jc.UploadPacing.Duration > 0 {
		cfg.UploadPacing = jc.UploadPacing.Duration
	}
	if jc.PostUploadRefreshDelay.Duration > 0 {
		cfg.PostUploadRefreshDelay = jc.PostUploadRefreshDelay.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
