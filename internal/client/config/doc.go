// Package config loads runtime configuration for the gfsdash console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or GFSDASH_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-m string   master base URL (default http://localhost:8000)
//	-g string   client gateway base URL (default http://localhost:8001)
//	-i int      dashboard refresh interval in seconds (default 3)
//	-d string   session database path (default gfsdash.db)
//	-l string   log level (default info)
//	-w string   live view listen address (default disabled)
//
// # JSON schema
//
//	{
//	  "master_url": "http://localhost:8000",
//	  "gateway_url": "http://localhost:8001",
//	  "refresh_interval": "3s",
//	  "upload_pacing": "1s",
//	  "post_upload_refresh_delay": "2s",
//	  "request_timeout": "10s",
//	  "session_db_path": "gfsdash.db",
//	  "log_level": "info",
//	  "log_format": "json",
//	  "live_view_addr": "127.0.0.1:8080"
//	}
package config
