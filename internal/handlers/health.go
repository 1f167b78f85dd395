package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/survey_builder/pkg/db"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
)

type HealthHTTP struct {
	DB *gorm.DB
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *HealthHTTP) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := db.Ping(ctx, h.DB); err != nil {
		logging.FromContext(ctx).Error("readiness_failed", "status", 503, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}
	return c.NoContent(http.StatusOK)
}
