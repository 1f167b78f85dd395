package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/survey_builder/internal/models"
)

const surveyMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "title":         {"type": "text"},
      "is_public":     {"type": "boolean"},
      "created_by_id": {"type": "keyword"},
      "questions": {
        "properties": {
          "id":           {"type": "keyword"},
          "questionText": {"type": "text"},
          "component":    {"type": "keyword"},
          "option":       {"type": "object", "enabled": false}
        }
      },
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

// SurveyIndex keeps survey documents in one Elasticsearch index.
type SurveyIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewSurveyIndex(es *elasticsearch.Client, index string) *SurveyIndex {
	return &SurveyIndex{ES: es, Index: index}
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (s *SurveyIndex) EnsureIndex(ctx context.Context) error {
	res, err := s.ES.Indices.Exists([]string{s.Index}, s.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.ES.Indices.Create(s.Index,
		s.ES.Indices.Create.WithContext(ctx),
		s.ES.Indices.Create.WithBody(strings.NewReader(surveyMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}
	return nil
}

func (s *SurveyIndex) IndexSurvey(ctx context.Context, survey *models.Survey) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(survey); err != nil {
		return fmt.Errorf("encode survey: %w", err)
	}

	res, err := s.ES.Index(s.Index, &buf,
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(survey.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index survey: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index survey", res.Status(), res.Body)
	}
	return nil
}

func (s *SurveyIndex) DeleteSurvey(ctx context.Context, id uuid.UUID) error {
	res, err := s.ES.Delete(s.Index, id.String(), s.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete survey", res.Status(), res.Body)
	}
	return nil
}

// Search runs a full-text query over public surveys and those owned by viewer.
func (s *SurveyIndex) Search(ctx context.Context, viewer uuid.UUID, query string, from, size int) (int64, []models.Survey, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"title^2", "questions.questionText"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{
					"bool": map[string]any{
						"should": []any{
							map[string]any{"term": map[string]any{"is_public": true}},
							map[string]any{"term": map[string]any{"created_by_id": viewer.String()}},
						},
						"minimum_should_match": 1,
					},
				},
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source models.Survey `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	surveys := make([]models.Survey, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		surveys[i] = hit.Source
	}
	return r.Hits.Total.Value, surveys, nil
}

func responseError(op, status string, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("%s: elasticsearch %s: %s", op, status, bytes.TrimSpace(msg))
}
