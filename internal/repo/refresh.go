package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/survey_builder/internal/models"
)

func (r *GormRepo) CreateRefresh(ctx context.Context, userID uuid.UUID, jti string) error {
	return createRefresh(r.DB.WithContext(ctx), userID, jti)
}

func createRefresh(db *gorm.DB, userID uuid.UUID, jti string) error {
	row := models.RefreshToken{
		UserID:  userID,
		TokenID: jti,
	}
	return db.Create(&row).Error
}

// FindActiveRefresh returns ErrRefreshNotFound for both unknown and revoked jti.
func (r *GormRepo) FindActiveRefresh(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("token_id = ? AND revoked = ?", jti, false).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *GormRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return revokeAll(r.DB.WithContext(ctx), userID)
}

// LogoutUser revokes every refresh row of the user and bumps token_version
// in one transaction.
func (r *GormRepo) LogoutUser(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := revokeAll(tx, userID); err != nil {
			return err
		}
		return bumpTokenVersion(tx, userID)
	})
}

func revokeAll(db *gorm.DB, userID uuid.UUID) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func bumpTokenVersion(db *gorm.DB, userID uuid.UUID) error {
	res := db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
