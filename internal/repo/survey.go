package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/survey_builder/internal/models"
)

func (r *GormRepo) CreateSurvey(ctx context.Context, s *models.Survey) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

// GetVisibleSurvey returns the survey if it belongs to viewer or is public.
func (r *GormRepo) GetVisibleSurvey(ctx context.Context, id, viewer uuid.UUID) (*models.Survey, error) {
	var s models.Survey
	err := r.DB.WithContext(ctx).
		Where("id = ? AND (created_by_id = ? OR is_public = ?)", id, viewer, true).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) ListSurveysByOwner(ctx context.Context, owner uuid.UUID, offset, limit int) ([]models.Survey, int64, error) {
	owned := func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&models.Survey{}).Where("created_by_id = ?", owner)
	}

	var total int64
	if err := owned().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]models.Survey, 0, limit)
	if err := owned().Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateSurvey replaces title, visibility and questions of an owned survey.
func (r *GormRepo) UpdateSurvey(ctx context.Context, s *models.Survey) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Survey
		if err := tx.Where("id = ? AND created_by_id = ?", s.ID, s.CreatedByID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSurveyNotFound
			}
			return err
		}
		err := tx.Model(&current).
			Select("title", "is_public", "questions", "updated_at").
			Updates(models.Survey{Title: s.Title, IsPublic: s.IsPublic, Questions: s.Questions}).Error
		if err != nil {
			return err
		}
		current.Title = s.Title
		current.IsPublic = s.IsPublic
		current.Questions = s.Questions
		*s = current
		return nil
	})
}

func (r *GormRepo) DeleteSurvey(ctx context.Context, id, owner uuid.UUID) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND created_by_id = ?", id, owner).
		Delete(&models.Survey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSurveyNotFound
	}
	return nil
}
