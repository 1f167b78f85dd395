package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/survey_builder/internal/service"
)

var errStatus = []struct {
	err     error
	code    int
	message string
}{
	{service.ErrValidation, http.StatusBadRequest, "invalid email or password"},
	{service.ErrDuplicateEmail, http.StatusBadRequest, "Email already registered"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrMissingCredential, http.StatusUnauthorized, "Missing refresh cookie"},
	{service.ErrInvalidCredential, http.StatusUnauthorized, "Invalid refresh"},
	{service.ErrRevokedOrUnknown, http.StatusUnauthorized, "Refresh revoked or not found"},
	{service.ErrInactiveUser, http.StatusUnauthorized, "User inactive"},
	{service.ErrInvalidSurvey, http.StatusBadRequest, "Invalid survey"},
	{service.ErrSurveyNotFound, http.StatusNotFound, "Survey not found"},
	{service.ErrSearchDisabled, http.StatusServiceUnavailable, "Search is not available"},
}

// toHTTPError maps service errors to client responses. Anything unknown is a
// 500 with the cause kept as internal.
func toHTTPError(err error) *echo.HTTPError {
	for _, e := range errStatus {
		if errors.Is(err, e.err) {
			return echo.NewHTTPError(e.code, e.message)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
