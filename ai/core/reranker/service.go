// Package reranker reorders retrieval candidates by cross-encoder relevance
// via an OpenAI-compatible rerank endpoint.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Result places one candidate document in the reranked order.
type Result struct {
	Index int     // position in the input slice
	Score float32 // relevance score, higher is better
}

// Service reorders candidate documents by relevance to a query.
type Service interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error)
	IsEnabled() bool
}

// Config represents reranker service configuration.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	Enabled bool
}

type service struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
	enabled bool
}

// NewService creates a reranker Service. A disabled service passes candidates
// through in their original order.
func NewService(cfg *Config) Service {
	return &service{
		enabled: cfg.Enabled,
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (s *service) IsEnabled() bool {
	return s.enabled
}

func (s *service) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	if !s.enabled {
		results := make([]Result, len(documents))
		for i := range documents {
			results[i] = Result{Index: i, Score: 1.0 - float32(i)*0.01}
		}
		if topN > 0 && topN < len(results) {
			return results[:topN], nil
		}
		return results, nil
	}

	body, err := json.Marshal(map[string]any{
		"model":     s.model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode rerank request")
	}

	endpoint := strings.TrimRight(s.baseURL, "/")
	if strings.HasSuffix(endpoint, "/v1") {
		endpoint += "/rerank"
	} else {
		endpoint += "/v1/rerank"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rerank request")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "rerank request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, errors.Errorf("rerank API error: HTTP %d", resp.StatusCode)
		}
		return nil, errors.Errorf("rerank API error: %s", string(msg))
	}

	var payload struct {
		Results []struct {
			Index int     `json:"index"`
			Score float32 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode rerank response")
	}

	results := make([]Result, len(payload.Results))
	for i, r := range payload.Results {
		results[i] = Result{Index: r.Index, Score: r.Score}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}
