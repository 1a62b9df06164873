package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// EnricherStage fetches full raw text for curated documents that lack it.
// Enrichment is best-effort: an extraction failure leaves the document's
// summary content in place.
type EnricherStage struct {
	extract interfaces.ExtractService
	cfg     *common.ResearchConfig
	logger  arbor.ILogger
}

func NewEnricherStage(extract interfaces.ExtractService, cfg *common.ResearchConfig, logger arbor.ILogger) *EnricherStage {
	return &EnricherStage{extract: extract, cfg: cfg, logger: logger}
}

func (s *EnricherStage) Name() string { return "enricher" }

func (s *EnricherStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	curated := make(map[models.ResearchCategory]models.DocumentMap, len(models.Categories))
	var mu sync.Mutex
	enrichedTotal := 0

	group, groupCtx := errgroup.WithContext(ctx)
	for _, category := range models.Categories {
		group.Go(func() error {
			data, enriched, err := s.enrichCategory(groupCtx, category, state.CuratedData(category), reporter)
			if err != nil {
				return err
			}
			mu.Lock()
			curated[category] = data
			enrichedTotal += enriched
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return &models.StateDelta{
		Messages:    []string{fmt.Sprintf("Enriched %d curated documents with full content", enrichedTotal)},
		CuratedData: curated,
	}, nil
}

// enrichCategory fetches raw text for up to EnrichPerCategory documents,
// highest scores first, with per-URL extraction calls under a semaphore.
func (s *EnricherStage) enrichCategory(ctx context.Context, category models.ResearchCategory, data models.DocumentMap, reporter Reporter) (models.DocumentMap, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, models.NewError(models.ErrCancelled, s.Name(), err)
	}

	result := data.Clone()
	if result == nil {
		result = models.DocumentMap{}
	}

	candidates := make([]*models.Document, 0, len(result))
	for _, doc := range result {
		if doc.RawContent == "" {
			candidates = append(candidates, doc)
		}
	}
	if len(candidates) == 0 {
		reporter.Event(models.NewEvent(models.EventCategoryComplete, map[string]interface{}{
			"category": string(category),
			"enriched": 0,
		}))
		return result, 0, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	limit := s.cfg.EnrichPerCategory
	if limit <= 0 {
		limit = 20
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	reporter.Event(models.NewEvent(models.EventBatchStart, map[string]interface{}{
		"category": string(category),
		"count":    len(candidates),
	}))

	sem := semaphore.NewWeighted(int64(limit))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		enriched int
	)

	for _, doc := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, 0, models.NewError(models.ErrCancelled, s.Name(), err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			reporter.Event(models.NewEvent(models.EventExtracting, map[string]interface{}{
				"category": string(category),
				"url":      doc.URL,
			}))

			extracted, err := s.extract.Extract(ctx, []string{doc.URL}, "basic")
			ok := false
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("category", string(category)).
					Str("url", doc.URL).
					Msg("Extraction failed for document")
			} else {
				for _, item := range extracted {
					if item.RawContent != "" {
						doc.RawContent = item.RawContent
						ok = true
						break
					}
				}
			}
			if ok {
				mu.Lock()
				enriched++
				mu.Unlock()
			}

			reporter.Event(models.NewEvent(models.EventExtracted, map[string]interface{}{
				"category": string(category),
				"url":      doc.URL,
				"success":  ok,
			}))
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, models.NewError(models.ErrCancelled, s.Name(), err)
	}

	reporter.Event(models.NewEvent(models.EventCategoryComplete, map[string]interface{}{
		"category": string(category),
		"enriched": enriched,
	}))

	s.logger.Info().
		Str("category", string(category)).
		Int("candidates", len(candidates)).
		Int("enriched", enriched).
		Msg("Category enrichment completed")

	return result, enriched, nil
}
