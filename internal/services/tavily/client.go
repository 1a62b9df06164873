// -----------------------------------------------------------------------
// Tavily Client - external web search and raw-content extraction
// -----------------------------------------------------------------------

package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://api.tavily.com"
	retryBaseDelay     = 500 * time.Millisecond
	retryMaxDelay      = 8 * time.Second
	defaultMaxAttempts = 3
)

// Client implements SearchService and ExtractService against the Tavily API.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	limiter        *rate.Limiter
	logger         arbor.ILogger
	searchTimeout  time.Duration
	extractTimeout time.Duration
	maxAttempts    int
}

var (
	_ interfaces.SearchService  = (*Client)(nil)
	_ interfaces.ExtractService = (*Client)(nil)
)

// NewClient creates a Tavily client from configuration.
func NewClient(cfg *common.TavilyConfig, logger arbor.ILogger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Tavily API key is required (set via TAVILY_API_KEY or tavily.api_key in config)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	spacing := common.Duration(cfg.RateLimit, 100*time.Millisecond)

	client := &Client{
		httpClient:     &http.Client{},
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		limiter:        rate.NewLimiter(rate.Every(spacing), 1),
		logger:         logger,
		searchTimeout:  common.Duration(cfg.SearchTimeout, 30*time.Second),
		extractTimeout: common.Duration(cfg.ExtractTimeout, 60*time.Second),
		maxAttempts:    maxAttempts,
	}

	logger.Debug().
		Str("base_url", baseURL).
		Dur("search_timeout", client.searchTimeout).
		Dur("extract_timeout", client.extractTimeout).
		Int("max_attempts", maxAttempts).
		Msg("Tavily client initialized")

	return client, nil
}

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search runs one query against the Tavily search endpoint.
func (c *Client) Search(ctx context.Context, query string, opts interfaces.SearchOptions) ([]interfaces.SearchResult, error) {
	depth := opts.Depth
	if depth == "" {
		depth = "basic"
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 15
	}

	req := searchRequest{Query: query, SearchDepth: depth, MaxResults: maxResults}

	var resp searchResponse
	if err := c.postJSON(ctx, "/search", c.searchTimeout, req, &resp); err != nil {
		return nil, err
	}

	results := make([]interfaces.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, interfaces.SearchResult{
			URL:     r.URL,
			Title:   r.Title,
			Content: r.Content,
			Score:   r.Score,
		})
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Tavily search completed")

	return results, nil
}

type extractRequest struct {
	URLs         []string `json:"urls"`
	ExtractDepth string   `json:"extract_depth"`
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Extract fetches raw text for URLs via the Tavily extract endpoint.
func (c *Client) Extract(ctx context.Context, urls []string, depth string) ([]interfaces.ExtractResult, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if depth == "" {
		depth = "basic"
	}

	req := extractRequest{URLs: urls, ExtractDepth: depth}

	var resp extractResponse
	if err := c.postJSON(ctx, "/extract", c.extractTimeout, req, &resp); err != nil {
		return nil, err
	}

	results := make([]interfaces.ExtractResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, interfaces.ExtractResult{URL: r.URL, RawContent: r.RawContent})
	}

	return results, nil
}

// postJSON performs one API call with per-call timeout, rate limiting, and
// bounded retries with exponential backoff. Timeouts and 429s are retried;
// after the retry budget is exhausted they surface as external_unavailable.
func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.NewError(models.ErrInternal, "tavily: marshal request", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.NewError(models.ErrCancelled, "tavily: rate limit wait", err)
		}

		lastErr = c.doOnce(ctx, path, timeout, payload, out)
		if lastErr == nil {
			return nil
		}
		if models.IsCancelled(lastErr) || !models.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := backoffDelay(attempt)
		c.logger.Warn().
			Err(lastErr).
			Str("path", path).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Tavily call failed, retrying")

		select {
		case <-ctx.Done():
			return models.NewError(models.ErrCancelled, "tavily: backoff wait", ctx.Err())
		case <-time.After(delay):
		}
	}

	// Retry budget exhausted: retryable kinds degrade to unavailable.
	return models.NewError(models.ErrExternalUnavailable, "tavily: "+path, lastErr)
}

func (c *Client) doOnce(ctx context.Context, path string, timeout time.Duration, payload []byte, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return models.NewError(models.ErrInternal, "tavily: build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return models.NewError(models.ErrExternalTimeout, "tavily: "+path, err)
		}
		if errors.Is(err, context.Canceled) {
			return models.NewError(models.ErrCancelled, "tavily: "+path, err)
		}
		return models.NewError(models.ErrExternalUnavailable, "tavily: "+path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return models.Errorf(models.ErrExternalRateLimited, "tavily: %s returned 429", path)
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return models.Errorf(models.ErrExternalUnavailable, "tavily: %s returned %d", path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Errorf(models.ErrExternalUnavailable, "tavily: %s returned %d: %s", path, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewError(models.ErrExternalUnavailable, "tavily: decode response", err)
	}
	return nil
}

func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	// Full jitter keeps concurrent retries from synchronizing.
	return time.Duration(rand.Float64() * float64(delay))
}
