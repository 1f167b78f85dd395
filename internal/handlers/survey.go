package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/survey_builder/internal/middleware/auth"
	"github.com/Skotchmaster/survey_builder/internal/models"
	"github.com/Skotchmaster/survey_builder/internal/service"
	"github.com/Skotchmaster/survey_builder/internal/transport"
	"github.com/Skotchmaster/survey_builder/internal/util"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
)

type SurveyHTTP struct {
	Svc *service.SurveyService
}

func currentUser(c echo.Context) (*models.User, error) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, auth.ReasonMissingToken)
	}
	return u, nil
}

func surveyID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid survey id")
	}
	return id, nil
}

func pageParams(c echo.Context) (page, from, size int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	size, _ = strconv.Atoi(c.QueryParam("size"))
	from, size = util.Calculate(page, size)
	return from/size + 1, from, size
}

func (h *SurveyHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "survey_create")
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var in service.SurveyInput
	if err := c.Bind(&in); err != nil {
		l.Warn("create_survey_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	survey, err := h.Svc.Create(ctx, user.ID, in)
	if err != nil {
		he := toHTTPError(err)
		l.Warn("create_survey_failed", "status", he.Code, "error", err)
		return he
	}
	return c.JSON(http.StatusCreated, transport.CreatedResponse{ID: survey.ID.String()})
}

func (h *SurveyHTTP) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, from, size := pageParams(c)

	res, err := h.Svc.List(c.Request().Context(), user.ID, from, size)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.SurveyListResponse{Total: res.Total, Page: page, Size: size, Items: res.Items})
}

func (h *SurveyHTTP) Get(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := surveyID(c)
	if err != nil {
		return err
	}

	survey, err := h.Svc.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, survey)
}

func (h *SurveyHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "survey_update")
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := surveyID(c)
	if err != nil {
		return err
	}

	var in service.SurveyInput
	if err := c.Bind(&in); err != nil {
		l.Warn("update_survey_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	survey, err := h.Svc.Update(ctx, user.ID, id, in)
	if err != nil {
		he := toHTTPError(err)
		l.Warn("update_survey_failed", "status", he.Code, "error", err)
		return he
	}
	return c.JSON(http.StatusOK, survey)
}

func (h *SurveyHTTP) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := surveyID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(c.Request().Context(), user.ID, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SurveyHTTP) Search(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query error")
	}
	page, from, size := pageParams(c)

	res, err := h.Svc.SearchSurveys(c.Request().Context(), user.ID, q, from, size)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.SurveyListResponse{Total: res.Total, Page: page, Size: size, Items: res.Items})
}
