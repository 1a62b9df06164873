package interfaces

import "context"

// SearchResult is a single hit from the external search service.
type SearchResult struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchOptions tune a search call.
type SearchOptions struct {
	Depth      string // "basic" or "advanced"
	MaxResults int
}

// SearchService queries the external web search vendor.
type SearchService interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}

// ExtractResult is the raw text extracted from one URL.
type ExtractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// ExtractService fetches full raw text for URLs.
type ExtractService interface {
	Extract(ctx context.Context, urls []string, depth string) ([]ExtractResult, error)
}

// RerankResult scores one input document by relevance to a query.
type RerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"relevance_score"`
}

// RerankService re-scores documents against a query. Optional; when absent
// the curator uses upstream search scores.
type RerankService interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
}
