package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	ServerActive = "active"
	ServerFailed = "failed"
)

var ErrIncompleteStatus = errors.New("status response lacks servers or files")

// ClusterStatus is one /status snapshot. It is never mutated locally.
type ClusterStatus struct {
	Servers        map[string]ServerInfo `json:"servers"`
	Files          map[string]FileInfo   `json:"files"`
	Chunks         map[string]ChunkInfo  `json:"chunks,omitempty"`
	FaultTolerance float64               `json:"fault_tolerance"`
	Timestamp      string                `json:"timestamp,omitempty"`
}

// Validate rejects snapshots that omit the servers or files mappings.
// Empty mappings are fine.
func (s *ClusterStatus) Validate() error {
	if s.Servers == nil || s.Files == nil {
		return ErrIncompleteStatus
	}
	return nil
}

// ActiveServers counts servers in the active state.
func (s *ClusterStatus) ActiveServers() int {
	n := 0
	for _, srv := range s.Servers {
		if srv.Status == ServerActive {
			n++
		}
	}
	return n
}

type ServerInfo struct {
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	Status        string  `json:"status"`
	LastHeartbeat float64 `json:"last_heartbeat"`
}

// HeartbeatTime converts the epoch-seconds heartbeat, fractions included.
// A zero heartbeat (a server marked failed) yields the zero time.
func (s ServerInfo) HeartbeatTime() time.Time {
	if s.LastHeartbeat <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(s.LastHeartbeat)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

type FileInfo struct {
	UploadTime Timestamp `json:"upload_time"`
	Chunks     []string  `json:"chunks"`
}

type ChunkInfo struct {
	Servers  []string `json:"servers"`
	Filename string   `json:"filename,omitempty"`
}

// isoLayouts are tried in order for string timestamps. The master emits
// naive ISO-8601 timestamps without a zone.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp decodes either epoch milliseconds or an ISO-8601 string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			t.Time = time.UnixMilli(int64(ms))
			return nil
		}
		for _, layout := range isoLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("unrecognised timestamp %q", s)
	}

	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", b, err)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}

// MarshalJSON writes epoch milliseconds, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}
