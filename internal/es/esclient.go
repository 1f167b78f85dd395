package es

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/survey_builder/internal/config"
	"github.com/Skotchmaster/survey_builder/pkg/logging"
)

var ErrNotConfigured = errors.New("elasticsearch url is not configured")

// NewClient connects to Elasticsearch and checks the cluster answers.
func NewClient(ctx context.Context, cfg *config.Config) (*elasticsearch.Client, error) {
	l := logging.FromContext(ctx).With("component", "elasticsearch")
	if cfg.ESURL == "" {
		return nil, ErrNotConfigured
	}
	l.Info("es_connecting", "url", cfg.ESURL, "user", cfg.ESUser)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ESURL},
		Username:  cfg.ESUser,
		Password:  cfg.ESPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}

	l.Info("es_connected")
	return client, nil
}
