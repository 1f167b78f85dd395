package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/survey_builder/internal/models"
	"github.com/Skotchmaster/survey_builder/internal/repo"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
)

const TopicSurveyEvents = "survey_events"

type SurveyStore interface {
	CreateSurvey(ctx context.Context, s *models.Survey) error
	GetVisibleSurvey(ctx context.Context, id, viewer uuid.UUID) (*models.Survey, error)
	ListSurveysByOwner(ctx context.Context, owner uuid.UUID, offset, limit int) ([]models.Survey, int64, error)
	UpdateSurvey(ctx context.Context, s *models.Survey) error
	DeleteSurvey(ctx context.Context, id, owner uuid.UUID) error
}

type SurveySearcher interface {
	IndexSurvey(ctx context.Context, s *models.Survey) error
	DeleteSurvey(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, viewer uuid.UUID, query string, from, size int) (int64, []models.Survey, error)
}

type SurveyInput struct {
	Title     string            `json:"title"`
	IsPublic  bool              `json:"is_public"`
	Questions []models.Question `json:"questions" validate:"required,min=1,dive"`
}

type SurveyPage struct {
	Total int64           `json:"total"`
	Items []models.Survey `json:"items"`
}

type SurveyService struct {
	Store  SurveyStore
	Search SurveySearcher
	Events EventPublisher
}

func (in *SurveyInput) check() error {
	for i := range in.Questions {
		in.Questions[i].ID = strings.TrimSpace(in.Questions[i].ID)
		in.Questions[i].Component = strings.TrimSpace(in.Questions[i].Component)
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSurvey, err)
	}
	return nil
}

func (s *SurveyService) Create(ctx context.Context, owner uuid.UUID, in SurveyInput) (*models.Survey, error) {
	l := logging.FromContext(ctx).With("svc", "survey.create", "user_id", owner)
	if err := in.check(); err != nil {
		return nil, err
	}

	survey := &models.Survey{
		Title:       strings.TrimSpace(in.Title),
		IsPublic:    in.IsPublic,
		CreatedByID: owner,
		Questions:   in.Questions,
	}
	if err := s.Store.CreateSurvey(ctx, survey); err != nil {
		l.Error("create_survey_failed", "status", 500, "error", err)
		return nil, err
	}

	s.afterChange(ctx, "survey_created", survey)
	return survey, nil
}

func (s *SurveyService) Get(ctx context.Context, viewer, id uuid.UUID) (*models.Survey, error) {
	survey, err := s.Store.GetVisibleSurvey(ctx, id, viewer)
	if err != nil {
		if errors.Is(err, repo.ErrSurveyNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}
	return survey, nil
}

func (s *SurveyService) List(ctx context.Context, owner uuid.UUID, offset, limit int) (*SurveyPage, error) {
	items, total, err := s.Store.ListSurveysByOwner(ctx, owner, offset, limit)
	if err != nil {
		return nil, err
	}
	return &SurveyPage{Total: total, Items: items}, nil
}

func (s *SurveyService) Update(ctx context.Context, owner, id uuid.UUID, in SurveyInput) (*models.Survey, error) {
	l := logging.FromContext(ctx).With("svc", "survey.update", "user_id", owner, "survey_id", id)
	if err := in.check(); err != nil {
		return nil, err
	}

	survey := &models.Survey{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		IsPublic:    in.IsPublic,
		CreatedByID: owner,
		Questions:   in.Questions,
	}
	if err := s.Store.UpdateSurvey(ctx, survey); err != nil {
		if errors.Is(err, repo.ErrSurveyNotFound) {
			return nil, ErrSurveyNotFound
		}
		l.Error("update_survey_failed", "status", 500, "error", err)
		return nil, err
	}

	s.afterChange(ctx, "survey_updated", survey)
	return survey, nil
}

func (s *SurveyService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "survey.delete", "user_id", owner, "survey_id", id)
	if err := s.Store.DeleteSurvey(ctx, id, owner); err != nil {
		if errors.Is(err, repo.ErrSurveyNotFound) {
			return ErrSurveyNotFound
		}
		l.Error("delete_survey_failed", "status", 500, "error", err)
		return err
	}

	s.afterChange(ctx, "survey_deleted", &models.Survey{ID: id, CreatedByID: owner})
	return nil
}

func (s *SurveyService) SearchSurveys(ctx context.Context, viewer uuid.UUID, query string, from, size int) (*SurveyPage, error) {
	if s.Search == nil {
		return nil, ErrSearchDisabled
	}
	total, items, err := s.Search.Search(ctx, viewer, query, from, size)
	if err != nil {
		return nil, err
	}
	return &SurveyPage{Total: total, Items: items}, nil
}

// afterChange publishes the change and syncs the search index. Failures are
// logged only.
func (s *SurveyService) afterChange(ctx context.Context, eventType string, survey *models.Survey) {
	l := logging.FromContext(ctx)
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.Search != nil {
		var err error
		if eventType == "survey_deleted" {
			err = s.Search.DeleteSurvey(bgCtx, survey.ID)
		} else {
			err = s.Search.IndexSurvey(bgCtx, survey)
		}
		if err != nil {
			l.Warn("search_sync_failed", "type", eventType, "survey_id", survey.ID, "error", err)
		}
	}

	if s.Events != nil {
		event := map[string]any{
			"type":          eventType,
			"survey_id":     survey.ID.String(),
			"created_by_id": survey.CreatedByID.String(),
			"is_public":     survey.IsPublic,
			"at":            time.Now().UTC(),
		}
		if err := s.Events.PublishEvent(bgCtx, TopicSurveyEvents, survey.ID.String(), event); err != nil {
			l.Warn("publish_event_failed", "type", eventType, "error", err)
		}
	}
}
