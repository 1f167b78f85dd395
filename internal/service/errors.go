package service

import "errors"

var (
	ErrValidation         = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredential  = errors.New("missing refresh token")
	ErrInvalidCredential  = errors.New("invalid refresh token")
	ErrRevokedOrUnknown   = errors.New("refresh token revoked or not found")
	ErrInactiveUser       = errors.New("user inactive")

	ErrInvalidSurvey  = errors.New("invalid survey")
	ErrSurveyNotFound = errors.New("survey not found")
	ErrSearchDisabled = errors.New("search is not configured")
)
