package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/survey_builder/internal/config"
	"github.com/Skotchmaster/survey_builder/internal/es"
	"github.com/Skotchmaster/survey_builder/internal/handlers"
	"github.com/Skotchmaster/survey_builder/internal/metrics"
	"github.com/Skotchmaster/survey_builder/internal/middleware/auth"
	"github.com/Skotchmaster/survey_builder/internal/mykafka"
	"github.com/Skotchmaster/survey_builder/internal/repo"
	"github.com/Skotchmaster/survey_builder/internal/service"
	"github.com/Skotchmaster/survey_builder/internal/service/search"
	httpserver "github.com/Skotchmaster/survey_builder/internal/transport/http"
	pkgconfig "github.com/Skotchmaster/survey_builder/pkg/config"
	pkgdb "github.com/Skotchmaster/survey_builder/pkg/db"
	"github.com/Skotchmaster/survey_builder/pkg/hash"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
	"github.com/Skotchmaster/survey_builder/pkg/tokens"
)

type publisher interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg := config.Load()
	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	baseCtx := logging.IntoContext(context.Background(), logger)

	codec, err := tokens.NewCodec(cfg.Tokens())
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	initCtx, cancel := context.WithTimeout(baseCtx, 10*time.Second)
	db, err := pkgdb.Open(initCtx, cfg.DatabaseURL)
	if err == nil {
		err = repo.Migrate(initCtx, db)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var events publisher = mykafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := mykafka.NewProducer(cfg.KafkaBrokers, []string{service.TopicUserEvents, service.TopicSurveyEvents})
		if err != nil {
			logger.Warn("kafka_disabled", "error", err)
		} else {
			events = p
		}
	}

	var searcher service.SurveySearcher
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(baseCtx, 10*time.Second)
		client, err := es.NewClient(esCtx, cfg)
		if err == nil {
			idx := search.NewSurveyIndex(client, cfg.ESSurveyIndex)
			if err = idx.EnsureIndex(esCtx); err == nil {
				searcher = idx
			}
		}
		esCancel()
		if err != nil {
			logger.Warn("search_disabled", "error", err)
		}
	}

	m := metrics.New()
	gormRepo := &repo.GormRepo{DB: db}

	authSvc := &service.AuthService{
		Users:    gormRepo,
		Sessions: gormRepo,
		Hasher:   hash.New(cfg.BcryptCost),
		Tokens:   codec,
		Events:   events,
		Metrics:  m,
	}
	surveySvc := &service.SurveyService{
		Store:  gormRepo,
		Search: searcher,
		Events: events,
	}

	e := httpserver.NewEcho(logger, m, cfg.AllowedOrigins)
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &handlers.AuthHTTP{
			Svc:        authSvc,
			Cookie:     cfg.RefreshCookie(),
			RefreshTTL: codec.RefreshTTL(),
		},
		SurveyHandler: &handlers.SurveyHTTP{Svc: surveySvc},
		Health:        &handlers.HealthHTTP{DB: db},
		Guard:         auth.NewGuard(codec, gormRepo),
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_failed", "error", err)
	}
	authSvc.Wait()
	if err := events.Close(); err != nil {
		logger.Warn("kafka_close_failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("server_stopped")
}
