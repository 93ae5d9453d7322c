package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

// Master is the master service contract used by the console.
type Master interface {
	Login(ctx context.Context, username, password string) (LoginResult, error)
	Signup(ctx context.Context, username, password string) error
	Logout(ctx context.Context, token string) error
	Status(ctx context.Context) (*models.ClusterStatus, error)
	Users(ctx context.Context) ([]models.UserRecord, error)
	CreateUser(ctx context.Context, req CreateUserRequest) error
	PromoteUser(ctx context.Context, username string) error
	SimulateFailure(ctx context.Context, serverID string) error
	Logs(ctx context.Context) ([]models.LogEntry, error)
}

type LoginResult struct {
	Role  models.Role
	Token string
}

type CreateUserRequest struct {
	Username  string      `json:"username"`
	Password  string      `json:"password"`
	Role      models.Role `json:"role"`
	CreatedBy string      `json:"created_by"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HTTPMaster talks to the master over JSON/HTTP.
type HTTPMaster struct {
	svc *jsonService
}

func NewHTTPMaster(baseURL string, timeout time.Duration, log logging.Logger) *HTTPMaster {
	return &HTTPMaster{svc: newJSONService("master", baseURL, timeout, log)}
}

// UseTokenSource makes every later request carry the bearer token ts
// returns.
func (m *HTTPMaster) UseTokenSource(ts TokenSource) {
	m.svc.transport.setTokenSource(ts)
}

func (m *HTTPMaster) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var resp struct {
		Role  string `json:"role"`
		Token string `json:"token"`
	}
	if err := m.svc.do(ctx, http.MethodPost, "/login", credentials{username, password}, &resp, true); err != nil {
		return LoginResult{}, err
	}

	role, ok := models.ParseRole(resp.Role)
	if !ok {
		return LoginResult{}, fmt.Errorf("%w: login: unknown role %q", ErrMalformedResponse, resp.Role)
	}
	if resp.Token == "" {
		return LoginResult{}, fmt.Errorf("%w: login: empty token", ErrMalformedResponse)
	}
	return LoginResult{Role: role, Token: resp.Token}, nil
}

func (m *HTTPMaster) Signup(ctx context.Context, username, password string) error {
	return m.svc.do(ctx, http.MethodPost, "/signup", credentials{username, password}, nil, true)
}

func (m *HTTPMaster) Logout(ctx context.Context, token string) error {
	body := struct {
		Token string `json:"token"`
	}{token}
	return m.svc.do(ctx, http.MethodPost, "/logout", body, nil, false)
}

func (m *HTTPMaster) Status(ctx context.Context) (*models.ClusterStatus, error) {
	var st models.ClusterStatus
	if err := m.svc.do(ctx, http.MethodGet, "/status", nil, &st, false); err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &st, nil
}

func (m *HTTPMaster) Users(ctx context.Context) ([]models.UserRecord, error) {
	var resp struct {
		Users *[]models.UserRecord `json:"users"`
	}
	if err := m.svc.do(ctx, http.MethodGet, "/users", nil, &resp, false); err != nil {
		return nil, err
	}
	if resp.Users == nil {
		return nil, fmt.Errorf("%w: users response lacks users", ErrMalformedResponse)
	}
	return *resp.Users, nil
}

func (m *HTTPMaster) CreateUser(ctx context.Context, req CreateUserRequest) error {
	return m.svc.do(ctx, http.MethodPost, "/create_user", req, nil, true)
}

func (m *HTTPMaster) PromoteUser(ctx context.Context, username string) error {
	body := struct {
		Username string `json:"username"`
	}{username}
	return m.svc.do(ctx, http.MethodPost, "/promote_user", body, nil, true)
}

func (m *HTTPMaster) SimulateFailure(ctx context.Context, serverID string) error {
	body := struct {
		ServerID string `json:"server_id"`
	}{serverID}
	return m.svc.do(ctx, http.MethodPost, "/simulate_failure", body, nil, true)
}

func (m *HTTPMaster) Logs(ctx context.Context) ([]models.LogEntry, error) {
	var resp struct {
		Logs []models.LogEntry `json:"logs"`
	}
	if err := m.svc.do(ctx, http.MethodGet, "/logs", nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}
