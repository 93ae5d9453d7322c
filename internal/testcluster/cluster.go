// Package testcluster runs an in-memory master and client gateway behind
// httptest servers. It speaks the same JSON contracts as the real services
// and records every request, so tests can drive the console end to end.
package testcluster

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type user struct {
	password  string
	role      models.Role
	createdBy string
}

// Request is one recorded call.
type Request struct {
	Service string
	Method  string
	Path    string
	Auth    string
}

func (r Request) String() string { return r.Method + " " + r.Path }

// Cluster is the shared state behind both fake services.
type Cluster struct {
	Master  *httptest.Server
	Gateway *httptest.Server

	mu       sync.Mutex
	users    map[string]*user
	sessions map[string]string
	servers  map[string]models.ServerInfo
	files    map[string]models.FileInfo
	requests []Request
	uploads  []models.UploadRequest

	inFlight    int
	maxInFlight int

	// UploadDelay is how long the gateway holds each upload.
	UploadDelay time.Duration
}

// New starts both services with one admin (admin/admin123) and three
// active chunkservers. They are shut down when t ends.
func New(t testing.TB) *Cluster {
	t.Helper()

	c := &Cluster{
		users:    map[string]*user{"admin": {password: "admin123", role: models.RoleAdmin, createdBy: "system"}},
		sessions: map[string]string{},
		servers:  map[string]models.ServerInfo{},
		files:    map[string]models.FileInfo{},
	}
	for i := 1; i <= 3; i++ {
		c.AddServer(fmt.Sprintf("chunkserver%d", i), "localhost", 9000+i)
	}

	c.Master = httptest.NewServer(c.masterRouter())
	c.Gateway = httptest.NewServer(c.gatewayRouter())
	t.Cleanup(func() {
		c.Master.Close()
		c.Gateway.Close()
	})
	return c
}

func (c *Cluster) AddServer(id, host string, port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers[id] = models.ServerInfo{
		Host:          host,
		Port:          port,
		Status:        models.ServerActive,
		LastHeartbeat: float64(time.Now().UnixMilli()) / 1000,
	}
}

func (c *Cluster) AddUser(username, password string, role models.Role, createdBy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[username] = &user{password: password, role: role, createdBy: createdBy}
}

// Role returns the stored role of username.
func (c *Cluster) Role(username string) (models.Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[username]
	if !ok {
		return "", false
	}
	return u.role, true
}

// Requests returns every recorded call in arrival order.
func (c *Cluster) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.requests...)
}

// Uploads returns the decoded upload bodies in arrival order.
func (c *Cluster) Uploads() []models.UploadRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.UploadRequest(nil), c.uploads...)
}

// MaxInFlightUploads is the highest number of uploads the gateway held at once.
func (c *Cluster) MaxInFlightUploads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

// Sessions counts live master sessions.
func (c *Cluster) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Cluster) record(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.mu.Lock()
			c.requests = append(c.requests, Request{
				Service: service,
				Method:  r.Method,
				Path:    r.URL.Path,
				Auth:    r.Header.Get("Authorization"),
			})
			c.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]any{"success": false, "error": reason})
}

func ok(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

func (c *Cluster) masterRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(c.record("master"))

	r.Post("/login", c.handleLogin)
	r.Post("/logout", c.handleLogout)
	r.Post("/signup", c.handleSignup)
	r.Get("/status", c.handleStatus)
	r.Get("/users", c.handleUsers)
	r.Post("/create_user", c.handleCreateUser)
	r.Post("/promote_user", c.handlePromote)
	r.Post("/simulate_failure", c.handleSimulateFailure)
	r.Get("/logs", c.handleLogs)
	return r
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Cluster) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decode(w, r, &in) {
		return
	}
	if in.Username == "" || in.Password == "" {
		fail(w, http.StatusBadRequest, "Missing credentials")
		return
	}

	c.mu.Lock()
	u, found := c.users[in.Username]
	if !found || u.password != in.Password {
		c.mu.Unlock()
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token := uuid.NewString()
	c.sessions[token] = in.Username
	role := u.role
	c.mu.Unlock()

	ok(w, map[string]any{"role": role, "username": in.Username, "token": token})
}

func (c *Cluster) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &in) {
		return
	}
	c.mu.Lock()
	delete(c.sessions, in.Token)
	c.mu.Unlock()
	ok(w, nil)
}

func (c *Cluster) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decode(w, r, &in) {
		return
	}
	if in.Username == "" || in.Password == "" {
		fail(w, http.StatusBadRequest, "Missing credentials")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.users[in.Username]; exists {
		fail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	c.users[in.Username] = &user{password: in.Password, role: models.RoleUser, createdBy: "self"}
	ok(w, map[string]any{"message": "Account created successfully"})
}

func (c *Cluster) handleStatus(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := 0
	for _, s := range c.servers {
		if s.Status == models.ServerActive {
			active++
		}
	}
	ft := 0.0
	if len(c.servers) > 0 {
		ft = float64(int(float64(active)/float64(len(c.servers))*10000)) / 100
	}

	writeJSON(w, http.StatusOK, models.ClusterStatus{
		Servers:        c.servers,
		Files:          c.files,
		FaultTolerance: ft,
		Timestamp:      time.Now().Format(time.RFC3339),
	})
}

func (c *Cluster) handleUsers(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.users))
	for name := range c.users {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]models.UserRecord, 0, len(names))
	for _, name := range names {
		u := c.users[name]
		list = append(list, models.UserRecord{Username: name, Role: u.role, CreatedBy: u.createdBy})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list})
}

func (c *Cluster) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username  string      `json:"username"`
		Password  string      `json:"password"`
		Role      models.Role `json:"role"`
		CreatedBy string      `json:"created_by"`
	}
	if !decode(w, r, &in) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.users[in.Username]; exists {
		fail(w, http.StatusBadRequest, "User exists")
		return
	}
	c.users[in.Username] = &user{password: in.Password, role: in.Role, createdBy: in.CreatedBy}
	ok(w, nil)
}

func (c *Cluster) handlePromote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &in) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	u, found := c.users[in.Username]
	if !found {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	u.role = models.RoleManager
	ok(w, nil)
}

func (c *Cluster) handleSimulateFailure(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ServerID string `json:"server_id"`
	}
	if !decode(w, r, &in) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s, found := c.servers[in.ServerID]
	if !found {
		fail(w, http.StatusNotFound, "Server not found")
		return
	}
	s.Status = models.ServerFailed
	s.LastHeartbeat = 0
	c.servers[in.ServerID] = s
	ok(w, nil)
}

func (c *Cluster) handleLogs(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.servers))
	for id := range c.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	logs := make([]models.LogEntry, 0, len(ids))
	for _, id := range ids {
		s := c.servers[id]
		logs = append(logs, models.LogEntry{
			Timestamp: s.HeartbeatTime().Format(time.RFC3339),
			Server:    id,
			Event:     "Status: " + s.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (c *Cluster) gatewayRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(c.record("gateway"))
	r.Post("/upload", c.handleUpload)
	return r
}

func (c *Cluster) handleUpload(w http.ResponseWriter, r *http.Request) {
	var in models.UploadRequest
	if !decode(w, r, &in) {
		return
	}

	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	c.uploads = append(c.uploads, in)
	delay := c.UploadDelay
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	var data []byte
	switch {
	case in.Content != nil:
		data = []byte(*in.Content)
	case in.ContentBase64 != nil:
		raw, err := base64.StdEncoding.DecodeString(*in.ContentBase64)
		if err != nil {
			fail(w, http.StatusBadRequest, "Invalid base64 content")
			return
		}
		data = raw
	default:
		fail(w, http.StatusBadRequest, "Missing content")
		return
	}

	c.mu.Lock()
	chunk := in.Filename + "_chunk_0"
	c.files[in.Filename] = models.FileInfo{
		UploadTime: models.Timestamp{Time: time.Now()},
		Chunks:     []string{chunk},
	}
	c.mu.Unlock()

	ok(w, map[string]any{"filename": in.Filename, "encrypted": in.Encrypt, "size": len(data)})
}
