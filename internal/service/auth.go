package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Skotchmaster/survey_builder/internal/models"
	"github.com/Skotchmaster/survey_builder/internal/repo"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
)

const (
	TopicUserEvents = "user_events"
	defaultRole     = "user"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type AuthService struct {
	Users    UserStore
	Sessions SessionStore
	Hasher   PasswordHasher
	Tokens   TokenCodec
	Events   EventPublisher
	Metrics  OperationRecorder

	pending sync.WaitGroup
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *AuthService) Register(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validate.Var(email, "required,email"); err != nil || password == "" {
		h.record("register", "validation")
		return nil, ErrValidation
	}

	if _, err := h.Users.FindUserByEmail(ctx, email); err == nil {
		l.Warn("register_error", "status", 400, "reason", "email already registered")
		h.record("register", "duplicate")
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repo.ErrUserNotFound) {
		l.Error("register_error", "status", 500, "reason", "cannot look up user", "error", err)
		h.record("register", "error")
		return nil, err
	}

	pwHash, err := h.Hasher.Hash(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		h.record("register", "error")
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: pwHash,
		IsActive:     true,
		Role:         defaultRole,
		TokenVersion: 0,
	}
	refresh, jti, err := h.Tokens.IssueRefresh(user.ID.String())
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue refresh token", "error", err)
		h.record("register", "error")
		return nil, err
	}
	access, err := h.Tokens.IssueAccess(user.ID.String(), user.Role, user.TokenVersion)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue access token", "error", err)
		h.record("register", "error")
		return nil, err
	}
	if err := h.Sessions.RegisterUser(ctx, user, jti); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 400, "reason", "concurrent registration")
			h.record("register", "duplicate")
			return nil, ErrDuplicateEmail
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		h.record("register", "error")
		return nil, err
	}
	res := &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}

	h.publish(ctx, user.ID, "user_registered", user.Email)
	h.record("register", "success")
	l.Info("register_successful", "user_id", user.ID)
	return res, nil
}

func (h *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		h.record("login", "validation")
		return nil, ErrValidation
	}

	user, err := h.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
			h.record("login", "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		h.record("login", "error")
		return nil, err
	}
	if !h.Hasher.Verify(password, user.PasswordHash) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		h.record("login", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	res, err := h.issueSession(ctx, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue session", "error", err)
		h.record("login", "error")
		return nil, err
	}

	h.publish(ctx, user.ID, "user_logged_in", user.Email)
	h.record("login", "success")
	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself stays valid until logout.
func (h *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		h.record("refresh", "missing")
		return "", ErrMissingCredential
	}

	claims, err := h.Tokens.Decode(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "cannot decode token", "error", err)
		h.record("refresh", "invalid")
		return "", ErrInvalidCredential
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		l.Warn("refresh_failed", "status", 401, "reason", "bad payload")
		h.record("refresh", "invalid")
		return "", ErrInvalidCredential
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "bad jti")
		h.record("refresh", "invalid")
		return "", ErrInvalidCredential
	}

	if _, err := h.Sessions.FindActiveRefresh(ctx, claims.ID); err != nil {
		if errors.Is(err, repo.ErrRefreshNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "revoked or unknown")
			h.record("refresh", "revoked")
			return "", ErrRevokedOrUnknown
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		h.record("refresh", "error")
		return "", err
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			h.record("refresh", "inactive")
			return "", ErrInactiveUser
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		h.record("refresh", "error")
		return "", err
	}
	if !user.IsActive {
		l.Warn("refresh_failed", "status", 401, "reason", "user inactive", "user_id", user.ID)
		h.record("refresh", "inactive")
		return "", ErrInactiveUser
	}

	access, err := h.Tokens.IssueAccess(user.ID.String(), user.Role, user.TokenVersion)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		h.record("refresh", "error")
		return "", err
	}

	h.record("refresh", "success")
	return access, nil
}

// Logout revokes all refresh tokens of user and invalidates outstanding
// access tokens by bumping token_version.
func (h *AuthService) Logout(ctx context.Context, user *models.User) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "user_id", user.ID)

	if err := h.Sessions.LogoutUser(ctx, user.ID); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		h.record("logout", "error")
		return err
	}

	h.publish(ctx, user.ID, "user_logged_out", user.Email)
	h.record("logout", "success")
	l.Info("successful_logout")
	return nil
}

func (h *AuthService) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	refresh, jti, err := h.Tokens.IssueRefresh(user.ID.String())
	if err != nil {
		return nil, err
	}
	if err := h.Sessions.CreateRefresh(ctx, user.ID, jti); err != nil {
		return nil, err
	}
	access, err := h.Tokens.IssueAccess(user.ID.String(), user.Role, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (h *AuthService) publish(ctx context.Context, userID uuid.UUID, eventType, email string) {
	if h.Events == nil {
		return
	}
	event := map[string]any{
		"type":    eventType,
		"user_id": userID.String(),
		"email":   email,
		"at":      time.Now().UTC(),
	}

	l := logging.FromContext(ctx)
	events := h.Events
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		defer cancel()
		if err := events.PublishEvent(pubCtx, TopicUserEvents, userID.String(), event); err != nil {
			l.Warn("publish_event_failed", "type", eventType, "error", err)
		}
	}()
}

// Wait blocks until in-flight event publishes have finished.
func (h *AuthService) Wait() {
	h.pending.Wait()
}

func (h *AuthService) record(operation, outcome string) {
	if h.Metrics != nil {
		h.Metrics.AuthOperation(operation, outcome)
	}
}
