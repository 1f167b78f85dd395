package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/survey_builder/internal/models"
	"github.com/Skotchmaster/survey_builder/pkg/tokens"
)

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type SessionStore interface {
	// RegisterUser persists a new user together with its first refresh row.
	RegisterUser(ctx context.Context, u *models.User, jti string) error
	CreateRefresh(ctx context.Context, userID uuid.UUID, jti string) error
	FindActiveRefresh(ctx context.Context, jti string) (*models.RefreshToken, error)
	LogoutUser(ctx context.Context, userID uuid.UUID) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

type TokenCodec interface {
	IssueAccess(userID, role string, tokenVersion int) (string, error)
	IssueRefresh(userID string) (string, string, error)
	Decode(raw string) (*tokens.Claims, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type OperationRecorder interface {
	AuthOperation(operation, outcome string)
}
