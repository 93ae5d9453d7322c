package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
	"github.com/dmitrijs2005/gfsdash/internal/client/metrics"
	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

var (
	ErrAdminOnly       = client.NewValidationError("Only admins can manage users")
	ErrCannotFail      = client.NewValidationError("Only admins and managers can simulate failures")
	ErrMissingUserData = client.NewValidationError("Username, password and role are required")
	ErrInvalidRole     = client.NewValidationError("Role must be admin, manager or user")
)

// AdminAPI is the subset of the master used by admin actions.
type AdminAPI interface {
	CreateUser(ctx context.Context, req client.CreateUserRequest) error
	PromoteUser(ctx context.Context, username string) error
	SimulateFailure(ctx context.Context, serverID string) error
	Logs(ctx context.Context) ([]models.LogEntry, error)
}

// SessionRefresher exposes the current session and an out-of-band refresh.
type SessionRefresher interface {
	Current() (session.Session, bool)
	Refresh(ctx context.Context) error
}

// LastViewer gives the most recently applied dashboard view.
type LastViewer interface {
	LastView() (view.View, bool)
}

// AdminService wraps the mutating master calls. Every outcome is reported
// through the Notifier; the returned error is for callers that need it.
type AdminService struct {
	api       AdminAPI
	auth      SessionRefresher
	views     LastViewer
	notifier  view.Notifier
	confirmer view.Confirmer
	log       logging.Logger
}

func NewAdminService(api AdminAPI, auth SessionRefresher, views LastViewer,
	notifier view.Notifier, confirmer view.Confirmer, log logging.Logger) *AdminService {
	return &AdminService{
		api:       api,
		auth:      auth,
		views:     views,
		notifier:  notifier,
		confirmer: confirmer,
		log:       log.With("component", "admin"),
	}
}

func (s *AdminService) requireRole(ok func(models.Role) bool, denied error) error {
	sess, live := s.auth.Current()
	if !live {
		return ErrNotLoggedIn
	}
	if !ok(sess.Role) {
		return denied
	}
	return nil
}

func isAdmin(r models.Role) bool { return r == models.RoleAdmin }

// fail reports err and counts the action. fallback is shown for rejections
// that carry no reason.
func (s *AdminService) fail(ctx context.Context, action string, err error, fallback string) error {
	result := metrics.ResultError
	if errors.Is(err, client.ErrValidation) {
		result = metrics.ResultRefused
	}
	metrics.AdminAction(action, result)

	s.log.Warn(ctx, "admin action failed", "action", action, "error", err)
	s.notifier.Notify(client.Message(err, fallback))
	return err
}

func (s *AdminService) succeed(ctx context.Context, action, notice string) {
	metrics.AdminAction(action, metrics.ResultOK)
	s.log.Info(ctx, "admin action done", "action", action)
	if err := s.auth.Refresh(ctx); err != nil {
		s.log.Debug(ctx, "refresh after admin action failed", "action", action, "error", err)
	}
	s.notifier.Notify(notice)
}

// CreateUser registers a user on behalf of createdBy.
func (s *AdminService) CreateUser(ctx context.Context, username, password string, role models.Role, createdBy string) error {
	const action = "create_user"

	if err := s.requireRole(isAdmin, ErrAdminOnly); err != nil {
		return s.fail(ctx, action, err, "")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" || role == "" {
		return s.fail(ctx, action, ErrMissingUserData, "")
	}
	if !role.Valid() {
		return s.fail(ctx, action, ErrInvalidRole, "")
	}

	err := s.api.CreateUser(ctx, client.CreateUserRequest{
		Username:  username,
		Password:  password,
		Role:      role,
		CreatedBy: createdBy,
	})
	if err != nil {
		return s.fail(ctx, action, fmt.Errorf("create user %s: %w", username, err), "Failed to create user")
	}

	s.succeed(ctx, action, fmt.Sprintf("User %s created successfully", username))
	return nil
}

// PromoteUser lifts a user to manager. Users the last view shows in another
// role are refused locally.
func (s *AdminService) PromoteUser(ctx context.Context, username string) error {
	const action = "promote_user"

	if err := s.requireRole(isAdmin, ErrAdminOnly); err != nil {
		return s.fail(ctx, action, err, "")
	}
	if v, ok := s.views.LastView(); ok {
		if u, found := v.User(username); found && u.Role != models.RoleUser {
			err := client.NewValidationError(fmt.Sprintf("User %s is already %s", username, u.Role))
			return s.fail(ctx, action, err, "")
		}
	}

	if err := s.api.PromoteUser(ctx, username); err != nil {
		return s.fail(ctx, action, fmt.Errorf("promote %s: %w", username, err), "Failed to promote user")
	}

	s.succeed(ctx, action, fmt.Sprintf("User %s promoted to Manager", username))
	return nil
}

// SimulateFailure marks a chunkserver failed after the operator confirms.
// Servers already failed in the last view are refused without a request.
func (s *AdminService) SimulateFailure(ctx context.Context, serverID string) error {
	const action = "simulate_failure"

	if err := s.requireRole(models.Role.CanSimulateFailure, ErrCannotFail); err != nil {
		return s.fail(ctx, action, err, "")
	}
	if v, ok := s.views.LastView(); ok {
		if srv, found := v.Server(serverID); found && srv.Status == models.ServerFailed {
			err := client.NewValidationError(fmt.Sprintf("Server %s has already failed", serverID))
			return s.fail(ctx, action, err, "")
		}
	}

	if !s.confirmer.Confirm(fmt.Sprintf("Are you sure you want to simulate failure of %s?", serverID)) {
		metrics.AdminAction(action, metrics.ResultCanceled)
		return ErrCanceled
	}

	if err := s.api.SimulateFailure(ctx, serverID); err != nil {
		return s.fail(ctx, action, fmt.Errorf("simulate failure %s: %w", serverID, err), "Failed to simulate failure")
	}

	s.succeed(ctx, action, fmt.Sprintf("Server %s marked as failed. Re-replication in progress...", serverID))
	return nil
}

// Logs fetches the master's recent server events.
func (s *AdminService) Logs(ctx context.Context) ([]models.LogEntry, error) {
	if _, live := s.auth.Current(); !live {
		return nil, ErrNotLoggedIn
	}
	logs, err := s.api.Logs(ctx)
	if err != nil {
		return nil, fmt.Errorf("logs: %w", err)
	}
	return logs, nil
}
