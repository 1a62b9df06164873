package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/semaphore"
)

const (
	minQueryWords = 3
	searchBatch   = 4
)

// ResearcherStage runs one research track: generate queries with a streamed
// model call, search each query, and assemble the category's document map.
type ResearcherStage struct {
	category models.ResearchCategory
	llm      interfaces.LLMService
	search   interfaces.SearchService
	cfg      *common.ResearchConfig
	logger   arbor.ILogger
}

func NewResearcherStage(
	category models.ResearchCategory,
	llm interfaces.LLMService,
	search interfaces.SearchService,
	cfg *common.ResearchConfig,
	logger arbor.ILogger,
) *ResearcherStage {
	return &ResearcherStage{
		category: category,
		llm:      llm,
		search:   search,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *ResearcherStage) Name() string { return string(s.category) + "_researcher" }

func (s *ResearcherStage) Category() models.ResearchCategory { return s.category }

func (s *ResearcherStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	analyst := s.category.Analyst()
	data := models.DocumentMap{}
	messages := []string{fmt.Sprintf("%s researching %s", analyst, state.Company)}

	queries, err := s.generateQueries(ctx, state, reporter)
	if err != nil {
		if models.IsCancelled(err) {
			return nil, err
		}
		// Query generation failure empties this track but does not fail the
		// pipeline.
		s.logger.Warn().
			Err(err).
			Str("analyst", analyst).
			Msg("Query generation failed")
		reporter.Event(models.NewErrorEvent(s.Name(), err))
		messages = append(messages, fmt.Sprintf("%s query generation failed: %v", analyst, err))
		return &models.StateDelta{
			Messages:     messages,
			CategoryData: map[models.ResearchCategory]models.DocumentMap{s.category: data},
		}, nil
	}

	perQuery, err := s.searchQueries(ctx, queries, reporter)
	if err != nil {
		return nil, err
	}

	// Merge in query order so the first query to produce a URL wins.
	for i, query := range queries {
		for _, result := range perQuery[i] {
			if result.Content == "" || result.URL == "" {
				continue
			}
			url := common.CanonicalURL(result.URL)
			if _, exists := data[url]; exists {
				continue
			}
			data[url] = &models.Document{
				URL:     url,
				Title:   result.Title,
				Content: result.Content,
				Query:   query,
				Source:  models.SourceWebSearch,
				Score:   result.Score,
			}
		}
	}

	if state.SiteScrape != nil {
		seed := state.SiteScrape.Clone()
		seed.Query = seedQuery(state.Company, s.category)
		data[seed.URL] = seed
	}

	messages = append(messages, fmt.Sprintf("%s found %d documents across %d queries", analyst, len(data), len(queries)))

	s.logger.Info().
		Str("analyst", analyst).
		Int("queries", len(queries)).
		Int("documents", len(data)).
		Msg("Researcher completed")

	return &models.StateDelta{
		Messages:     messages,
		CategoryData: map[models.ResearchCategory]models.DocumentMap{s.category: data},
	}, nil
}

// generateQueries streams the model response, recognizing complete queries at
// newline boundaries. At most MaxQueries are accepted; a trailing partial
// without a newline is discarded.
func (s *ResearcherStage) generateQueries(ctx context.Context, state *models.ResearchState, reporter Reporter) ([]string, error) {
	analyst := s.category.Analyst()
	maxQueries := s.cfg.MaxQueries
	if maxQueries <= 0 {
		maxQueries = 4
	}

	prompt := queryGenerationPrompt(state, s.category, time.Now())

	var (
		queries []string
		partial strings.Builder
	)
	onDelta := func(text string) {
		partial.WriteString(text)
		reporter.Event(models.NewEvent(models.EventQueryGenerating, map[string]interface{}{
			"analyst_type": analyst,
			"category":     string(s.category),
			"query":        partial.String(),
		}))

		buffered := partial.String()
		if !strings.Contains(buffered, "\n") {
			return
		}

		lines := strings.Split(buffered, "\n")
		// The final element is an incomplete line; keep it buffered.
		partial.Reset()
		partial.WriteString(lines[len(lines)-1])

		for _, line := range lines[:len(lines)-1] {
			query := strings.TrimSpace(line)
			if query == "" || len(strings.Fields(query)) < minQueryWords {
				continue
			}
			if len(queries) >= maxQueries {
				continue
			}
			queries = append(queries, query)
			reporter.Event(models.NewEvent(models.EventQueryGenerated, map[string]interface{}{
				"analyst_type": analyst,
				"category":     string(s.category),
				"query":        query,
			}))
		}
	}

	if _, err := s.llm.ChatStream(ctx, []interfaces.Message{{Role: "user", Content: prompt}}, onDelta); err != nil {
		return nil, err
	}

	if len(queries) == 0 {
		// The model answered but produced nothing usable; fall back to
		// templated queries rather than emptying the track.
		queries = defaultQueries(state.Company, s.category, time.Now())
		if len(queries) > maxQueries {
			queries = queries[:maxQueries]
		}
		s.logger.Warn().
			Str("analyst", analyst).
			Msg("No valid queries parsed from model response, using defaults")
		for _, query := range queries {
			reporter.Event(models.NewEvent(models.EventQueryGenerated, map[string]interface{}{
				"analyst_type": analyst,
				"category":     string(s.category),
				"query":        query,
			}))
		}
	}

	return queries, nil
}

// searchQueries runs searches in sequential batches, parallel within a batch
// under a semaphore. Individual query failures contribute no documents.
func (s *ResearcherStage) searchQueries(ctx context.Context, queries []string, reporter Reporter) ([][]interfaces.SearchResult, error) {
	concurrency := s.cfg.SearchConcurrency
	if concurrency <= 0 {
		concurrency = searchBatch
	}
	maxResults := s.cfg.MaxSearchResults
	if maxResults <= 0 {
		maxResults = 15
	}

	analyst := s.category.Analyst()
	results := make([][]interfaces.SearchResult, len(queries))
	sem := semaphore.NewWeighted(int64(concurrency))

	for start := 0; start < len(queries); start += searchBatch {
		if err := ctx.Err(); err != nil {
			return nil, models.NewError(models.ErrCancelled, s.Name(), err)
		}

		end := start + searchBatch
		if end > len(queries) {
			end = len(queries)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return nil, models.NewError(models.ErrCancelled, s.Name(), err)
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				query := queries[i]
				reporter.Event(models.NewEvent(models.EventQuerySearching, map[string]interface{}{
					"analyst_type": analyst,
					"category":     string(s.category),
					"query":        query,
				}))

				found, err := s.search.Search(ctx, query, interfaces.SearchOptions{
					Depth:      "basic",
					MaxResults: maxResults,
				})
				if err != nil {
					s.logger.Warn().
						Err(err).
						Str("analyst", analyst).
						Str("query", query).
						Msg("Search failed for query")
				} else {
					results[i] = found
				}

				reporter.Event(models.NewEvent(models.EventQuerySearched, map[string]interface{}{
					"analyst_type": analyst,
					"category":     string(s.category),
					"query":        query,
					"result_count": len(results[i]),
				}))
			}()
		}
		wg.Wait()
	}

	return results, nil
}
