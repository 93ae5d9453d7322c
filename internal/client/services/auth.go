// Package services contains the application services of the console.
// This file holds the authentication state machine: login, signup, logout,
// session restore, and ownership of the refresh timer.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
	"github.com/dmitrijs2005/gfsdash/internal/client/dashboard"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

var (
	ErrPasswordMismatch   = client.NewValidationError("Passwords do not match")
	ErrMissingCredentials = client.NewValidationError("Username and password are required")
	ErrAuthInProgress     = errors.New("login already in progress")
	ErrLoginAbandoned     = errors.New("login abandoned by logout")
	ErrNotLoggedIn        = client.NewValidationError("Please log in first")
)

// State of the authentication state machine.
type State int

const (
	LoggedOut State = iota
	Authenticating
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Authenticating:
		return "authenticating"
	case LoggedIn:
		return "logged_in"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// AuthAPI is the subset of the master used for authentication.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (client.LoginResult, error)
	Signup(ctx context.Context, username, password string) error
	Logout(ctx context.Context, token string) error
}

// ViewRefresher runs refresh cycles for a session.
type ViewRefresher interface {
	Refresh(ctx context.Context, sess session.Session) error
	Reset()
}

// AuthService is the only writer of the current Session and of the refresh
// timer. The timer is armed exactly while a session is live.
type AuthService struct {
	api   AuthAPI
	store session.Store
	views ViewRefresher
	timer *dashboard.Scheduler
	log   logging.Logger

	mu             sync.RWMutex
	state          State
	sess           session.Session
	authenticating bool
	// gen changes on every logout. A login that started under an older
	// generation is discarded when it completes.
	gen uint64

	// live mirrors sess while LoggedIn. Ticks read it without taking mu,
	// since the timer is stopped while mu is held.
	live atomic.Pointer[session.Session]
}

func NewAuthService(api AuthAPI, store session.Store, views ViewRefresher, interval time.Duration, log logging.Logger) *AuthService {
	a := &AuthService{
		api:   api,
		store: store,
		views: views,
		log:   log.With("component", "auth"),
	}
	a.timer = dashboard.NewScheduler(interval, a.tick, log)
	return a
}

func (a *AuthService) tick(ctx context.Context) {
	sess := a.live.Load()
	if sess == nil {
		return
	}
	_ = a.views.Refresh(ctx, *sess)
}

// setLiveLocked records sess as the live session. Callers hold mu.
func (a *AuthService) setLiveLocked(sess session.Session) {
	a.sess = sess
	a.state = LoggedIn
	a.live.Store(&sess)
}

// Restore adopts a persisted session without contacting the master and
// arms the timer. A partial or missing record leaves the service logged out.
func (a *AuthService) Restore(ctx context.Context) bool {
	sess, ok, err := a.store.Load(ctx)
	if err != nil {
		a.log.Warn(ctx, "session restore failed", "error", err)
		return false
	}
	if !ok {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.setLiveLocked(sess)
	a.timer.Start(context.WithoutCancel(ctx))

	a.log.Info(ctx, "session restored", "username", sess.Username, "role", sess.Role)
	return true
}

// Login authenticates against the master. On success the session is
// persisted, the timer re-armed and a refresh triggered. On failure the
// service returns to where it was before the attempt.
func (a *AuthService) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	a.mu.Lock()
	if a.authenticating {
		a.mu.Unlock()
		return ErrAuthInProgress
	}
	a.authenticating = true
	if a.state == LoggedOut {
		a.state = Authenticating
	}
	gen := a.gen
	a.mu.Unlock()

	res, err := a.api.Login(ctx, username, password)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gen != gen {
		a.log.Info(ctx, "login finished after logout, discarding", "username", username)
		if err == nil && res.Token != "" {
			go a.dropToken(context.WithoutCancel(ctx), res.Token)
		}
		return ErrLoginAbandoned
	}
	a.authenticating = false

	if err != nil {
		if a.state == Authenticating {
			a.state = LoggedOut
		}
		a.log.Info(ctx, "login failed", "username", username, "error", err)
		return fmt.Errorf("login: %w", err)
	}

	sess := session.Session{Username: username, Role: res.Role, Token: res.Token}
	if err := a.store.Save(ctx, sess); err != nil {
		a.log.Warn(ctx, "session not persisted", "error", err)
	}

	a.setLiveLocked(sess)
	a.views.Reset()
	a.timer.Start(context.WithoutCancel(ctx))
	a.timer.Trigger()

	a.log.Info(ctx, "logged in", "username", username, "role", res.Role)
	return nil
}

// Signup creates a basic account. It never logs the caller in.
func (a *AuthService) Signup(ctx context.Context, username, password, confirm string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	if err := a.api.Signup(ctx, username, password); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	a.log.Info(ctx, "account created", "username", username)
	return nil
}

// Logout always succeeds locally. The master is told to drop the token on a
// best-effort basis. A login still waiting for the master is abandoned.
func (a *AuthService) Logout(ctx context.Context) {
	a.mu.Lock()
	token := a.sess.Token
	wasLoggedIn := a.state == LoggedIn
	a.gen++
	a.authenticating = false
	a.live.Store(nil)
	a.timer.Stop()
	a.sess = session.Session{}
	a.state = LoggedOut
	a.views.Reset()
	a.mu.Unlock()

	if token != "" {
		a.dropToken(ctx, token)
	}
	if err := a.store.Clear(ctx); err != nil {
		a.log.Warn(ctx, "session not cleared", "error", err)
	}

	if wasLoggedIn {
		a.log.Info(ctx, "logged out")
	}
}

// dropToken tells the master to forget token. Failures are only logged.
func (a *AuthService) dropToken(ctx context.Context, token string) {
	if err := a.api.Logout(ctx, token); err != nil {
		a.log.Warn(ctx, "logout notification failed", "error", err)
	}
}

// Refresh runs one refresh cycle now, outside the timer.
func (a *AuthService) Refresh(ctx context.Context) error {
	sess, ok := a.Current()
	if !ok {
		return ErrNotLoggedIn
	}
	return a.views.Refresh(ctx, sess)
}

// Close disarms the timer but keeps the persisted session for the next run.
func (a *AuthService) Close() {
	a.timer.Stop()
}

func (a *AuthService) Current() (session.Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sess, a.state == LoggedIn
}

func (a *AuthService) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Token is the bearer token of the live session, "" when logged out.
func (a *AuthService) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state != LoggedIn {
		return ""
	}
	return a.sess.Token
}

// ActiveTimers reports how many refresh timers are armed (0 or 1).
func (a *AuthService) ActiveTimers() int {
	return a.timer.ActiveTimers()
}
