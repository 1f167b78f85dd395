package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/survey_builder/internal/middleware/auth"
	"github.com/Skotchmaster/survey_builder/internal/service"
	"github.com/Skotchmaster/survey_builder/internal/transport"
	jwthelp "github.com/Skotchmaster/survey_builder/pkg/jwt"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
)

type AuthHTTP struct {
	Svc        *service.AuthService
	Cookie     jwthelp.CookieConfig
	RefreshTTL time.Duration
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req.Email, req.Password)
	if err != nil {
		he := toHTTPError(err)
		l.Warn("register_failed", "status", he.Code, "error", err)
		return he
	}

	c.SetCookie(jwthelp.CreateCookie(h.Cookie, res.RefreshToken, h.RefreshTTL))
	return c.JSON(http.StatusOK, transport.TokenResponse{AccessToken: res.AccessToken})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		he := toHTTPError(err)
		l.Warn("login_failed", "status", he.Code, "error", err)
		return he
	}

	c.SetCookie(jwthelp.CreateCookie(h.Cookie, res.RefreshToken, h.RefreshTTL))
	l.Info("login_successful")
	return c.JSON(http.StatusOK, transport.TokenResponse{AccessToken: res.AccessToken})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var raw string
	if ck, err := c.Cookie(h.Cookie.Name); err == nil {
		raw = ck.Value
	}

	access, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		he := toHTTPError(err)
		l.Warn("refresh_failed", "status", he.Code, "error", err)
		return he
	}
	return c.JSON(http.StatusOK, transport.TokenResponse{AccessToken: access})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.ReasonMissingToken)
	}

	if err := h.Svc.Logout(ctx, user); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke sessions", "error", err)
		return toHTTPError(err)
	}

	c.SetCookie(jwthelp.DeleteCookie(h.Cookie))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Successfully logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.ReasonMissingToken)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}
