// -----------------------------------------------------------------------
// Cohere Reranker - optional relevance re-scoring for curated documents
// -----------------------------------------------------------------------

package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const defaultModel = "rerank-v3.5"

// CohereService implements RerankService against the Cohere v2 rerank API.
type CohereService struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	logger     arbor.ILogger
}

var _ interfaces.RerankService = (*CohereService)(nil)

// NewCohereService creates a reranker from configuration. Returns nil (not an
// error) when no API key is configured; reranking is an optional refinement.
func NewCohereService(cfg *common.CohereConfig, logger arbor.ILogger) *CohereService {
	if cfg.APIKey == "" {
		logger.Debug().Msg("Cohere API key not set, reranking disabled")
		return nil
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.com"
	}

	return &CohereService{
		httpClient: &http.Client{},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		timeout:    common.Duration(cfg.Timeout, 30*time.Second),
		logger:     logger,
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores documents against the query, highest relevance first.
func (s *CohereService) Rerank(ctx context.Context, query string, documents []string, topN int) ([]interfaces.RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(rerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, models.NewError(models.ErrInternal, "cohere: marshal request", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.baseURL+"/v2/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewError(models.ErrInternal, "cohere: build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, models.NewError(models.ErrExternalTimeout, "cohere: rerank", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, models.NewError(models.ErrCancelled, "cohere: rerank", err)
		}
		return nil, models.NewError(models.ErrExternalUnavailable, "cohere: rerank", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, models.Errorf(models.ErrExternalRateLimited, "cohere: rerank returned 429")
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, models.Errorf(models.ErrExternalUnavailable, "cohere: rerank returned %d: %s", resp.StatusCode, string(data))
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, models.NewError(models.ErrExternalUnavailable, "cohere: decode response", err)
	}

	results := make([]interfaces.RerankResult, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, interfaces.RerankResult{Index: r.Index, Score: r.RelevanceScore})
	}

	s.logger.Debug().
		Str("query", query).
		Int("documents", len(documents)).
		Int("results", len(results)).
		Msg("Cohere rerank completed")

	return results, nil
}
