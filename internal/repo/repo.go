package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/survey_builder/internal/models"
)

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrUserNotFound     = errors.New("user not found")
	ErrRefreshNotFound  = errors.New("refresh token not found")
	ErrSurveyNotFound   = errors.New("survey not found")
)

const uniqueViolation = "23505"

type GormRepo struct {
	DB *gorm.DB
}

// Migrate creates the tables and the case-insensitive email index.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Survey{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email_lower ON users (lower(email))").Error; err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pq.ErrorCode(uniqueViolation)
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
