package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/survey_builder/internal/handlers"
	"github.com/Skotchmaster/survey_builder/internal/metrics"
	"github.com/Skotchmaster/survey_builder/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/survey_builder/pkg/middleware/logging"
)

type Deps struct {
	AuthHandler   *handlers.AuthHTTP
	SurveyHandler *handlers.SurveyHTTP
	Health        *handlers.HealthHTTP
	Guard         *auth.Guard
	Metrics       *metrics.Metrics
}

// NewEcho builds the server with the shared middleware stack.
func NewEcho(logger *slog.Logger, m *metrics.Metrics, allowedOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(loggingmw.RequestLogger(logger))
	if m != nil {
		e.Use(m.Middleware())
	}
	if len(allowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", d.Health.Live)
	e.GET("/health/ready", d.Health.Ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	authGroup := e.Group("/auth")
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/refresh", d.AuthHandler.Refresh)
	authGroup.POST("/logout", d.AuthHandler.LogOut, d.Guard.RequireAuth)
	authGroup.GET("/me", d.AuthHandler.Me, d.Guard.RequireAuth)

	surveys := e.Group("/surveys", d.Guard.RequireAuth)
	surveys.POST("", d.SurveyHandler.Create)
	surveys.GET("", d.SurveyHandler.List)
	surveys.GET("/search", d.SurveyHandler.Search)
	surveys.GET("/:id", d.SurveyHandler.Get)
	surveys.PUT("/:id", d.SurveyHandler.Update)
	surveys.DELETE("/:id", d.SurveyHandler.Delete)
}
