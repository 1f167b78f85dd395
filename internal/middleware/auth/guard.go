package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/survey_builder/internal/models"
	"github.com/Skotchmaster/survey_builder/internal/repo"
	jwthelp "github.com/Skotchmaster/survey_builder/pkg/jwt"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
	"github.com/Skotchmaster/survey_builder/pkg/tokens"
)

const (
	ReasonMissingToken = "Authorization token required"
	ReasonInvalidToken = "Invalid token"
	ReasonBadPayload   = "Invalid token payload"
	ReasonUnknownUser  = "User not found or inactive"
	ReasonTokenRevoked = "Token has been invalidated"

	userContextKey = "current_user"
)

var ErrUnauthorized = errors.New("unauthorized")

// UnauthorizedError carries the reason shown to the client. It matches
// ErrUnauthorized with errors.Is.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string { return "unauthorized: " + e.Reason }
func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

type TokenDecoder interface {
	Decode(raw string) (*tokens.Claims, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Guard struct {
	Tokens TokenDecoder
	Users  UserLookup
}

func NewGuard(t TokenDecoder, u UserLookup) *Guard {
	return &Guard{Tokens: t, Users: u}
}

func unauthorized(reason string) error {
	return &UnauthorizedError{Reason: reason}
}

// Authenticate resolves an access token to an active user whose
// token_version still matches the one embedded in the token.
func (g *Guard) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, unauthorized(ReasonMissingToken)
	}

	claims, err := g.Tokens.Decode(accessToken)
	if err != nil {
		return nil, unauthorized(ReasonInvalidToken)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.TokenVersion == nil {
		return nil, unauthorized(ReasonBadPayload)
	}

	user, err := g.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, unauthorized(ReasonUnknownUser)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, unauthorized(ReasonUnknownUser)
	}
	if *claims.TokenVersion != user.TokenVersion {
		return nil, unauthorized(ReasonTokenRevoked)
	}
	return user, nil
}

func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_auth")

		token := jwthelp.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		user, err := g.Authenticate(ctx, token)
		if err != nil {
			var ue *UnauthorizedError
			if errors.As(err, &ue) {
				l.Warn("auth_rejected", "status", 401, "reason", ue.Reason)
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return echo.NewHTTPError(http.StatusUnauthorized, ue.Reason)
			}
			l.Error("auth_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
		}

		c.Set(userContextKey, user)
		ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", user.ID.String()))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userContextKey).(*models.User)
	return u, ok && u != nil
}
