// Package view defines what the dashboard hands to presentation code: the
// per-role View snapshot and the small interfaces renderers implement.
// Nothing here performs I/O.
package view

import (
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
)

// View is one fully-derived dashboard snapshot.
type View struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`

	Stats   Stats        `json:"stats"`
	Servers []ServerView `json:"servers"`
	Files   []FileView   `json:"files"`
	// Users is only filled for admins.
	Users []UserView `json:"users,omitempty"`

	Sequence  uint64    `json:"sequence"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Stats struct {
	ActiveServers  int     `json:"active_servers"`
	TotalServers   int     `json:"total_servers"`
	TotalFiles     int     `json:"total_files"`
	FaultTolerance float64 `json:"fault_tolerance"`
	TotalUsers     int     `json:"total_users,omitempty"`
}

type ServerView struct {
	ID                 string    `json:"id"`
	Host               string    `json:"host"`
	Port               int       `json:"port"`
	Status             string    `json:"status"`
	LastHeartbeat      time.Time `json:"last_heartbeat"`
	CanSimulateFailure bool      `json:"can_simulate_failure"`
}

type FileView struct {
	Name       string      `json:"name"`
	UploadedAt time.Time   `json:"uploaded_at"`
	Chunks     []ChunkView `json:"chunks"`
}

type ChunkView struct {
	ID      string   `json:"id"`
	Servers []string `json:"servers,omitempty"`
}

type UserView struct {
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
	CreatedBy  string      `json:"created_by"`
	CanPromote bool        `json:"can_promote"`
}

// Server looks a server up by id.
func (v View) Server(id string) (ServerView, bool) {
	for _, s := range v.Servers {
		if s.ID == id {
			return s, true
		}
	}
	return ServerView{}, false
}

// User looks a user up by name. Only admin views carry users.
func (v View) User(name string) (UserView, bool) {
	for _, u := range v.Users {
		if u.Username == name {
			return u, true
		}
	}
	return UserView{}, false
}
