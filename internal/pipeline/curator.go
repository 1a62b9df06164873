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
)

// CuratorStage filters and scores each category's documents, then selects the
// top references across categories. When a reranker is configured, its
// relevance scores replace the upstream search scores before thresholding.
type CuratorStage struct {
	rerank interfaces.RerankService
	cfg    *common.ResearchConfig
	logger arbor.ILogger
}

func NewCuratorStage(rerank interfaces.RerankService, cfg *common.ResearchConfig, logger arbor.ILogger) *CuratorStage {
	return &CuratorStage{rerank: rerank, cfg: cfg, logger: logger}
}

func (s *CuratorStage) Name() string { return "curator" }

func (s *CuratorStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	curated := make(map[models.ResearchCategory]models.DocumentMap, len(models.Categories))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for _, category := range models.Categories {
		group.Go(func() error {
			kept, err := s.curateCategory(groupCtx, state, category, reporter)
			if err != nil {
				return err
			}
			mu.Lock()
			curated[category] = kept
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// The cross-category reference merge is serial.
	references, referenceInfo := s.selectReferences(curated)

	messages := []string{fmt.Sprintf("Curated research data for %s: kept %s; selected %d references",
		state.Company, curationSummary(state, curated), len(references))}

	return &models.StateDelta{
		Messages:      messages,
		CuratedData:   curated,
		References:    references,
		ReferenceInfo: referenceInfo,
	}, nil
}

// curateCategory normalizes, scores, filters, and caps one category.
func (s *CuratorStage) curateCategory(ctx context.Context, state *models.ResearchState, category models.ResearchCategory, reporter Reporter) (models.DocumentMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewError(models.ErrCancelled, s.Name(), err)
	}

	data := state.CategoryData(category)
	kept := models.DocumentMap{}
	if len(data) == 0 {
		return kept, nil
	}

	// Re-canonicalize and dedupe, keeping the higher-scored duplicate.
	docs := make([]*models.Document, 0, len(data))
	seen := make(map[string]int, len(data))
	for _, doc := range data {
		clone := doc.Clone()
		clone.URL = common.CanonicalURL(clone.URL)
		if idx, dup := seen[clone.URL]; dup {
			if clone.Score > docs[idx].Score {
				docs[idx] = clone
			}
			continue
		}
		seen[clone.URL] = len(docs)
		docs = append(docs, clone)
	}

	s.applyRerank(ctx, state, category, docs)

	minScore := s.cfg.MinScore
	survivors := docs[:0]
	for _, doc := range docs {
		if doc.Score < minScore {
			continue
		}
		doc.Evaluation = &models.Evaluation{
			OverallScore: doc.Score,
			Query:        doc.Query,
		}
		survivors = append(survivors, doc)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Score > survivors[j].Score
	})

	limit := s.cfg.CuratedPerCategory
	if limit <= 0 {
		limit = 30
	}
	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	for _, doc := range survivors {
		kept[doc.URL] = doc
		reporter.Event(models.NewEvent(models.EventDocumentKept, map[string]interface{}{
			"category": string(category),
			"url":      doc.URL,
			"title":    doc.Title,
			"score":    doc.Score,
		}))
	}

	s.logger.Info().
		Str("category", string(category)).
		Int("input", len(data)).
		Int("kept", len(kept)).
		Msg("Category curated")

	return kept, nil
}

// applyRerank replaces document scores with reranker relevance scores. A
// rerank failure leaves the upstream scores untouched.
func (s *CuratorStage) applyRerank(ctx context.Context, state *models.ResearchState, category models.ResearchCategory, docs []*models.Document) {
	if s.rerank == nil || len(docs) == 0 {
		return
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		content := doc.RawContent
		if content == "" {
			content = doc.Content
		}
		texts[i] = doc.Title + "\n" + content
	}

	results, err := s.rerank.Rerank(ctx, rerankQuery(state, category), texts, len(docs))
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("category", string(category)).
			Msg("Rerank failed, keeping upstream scores")
		return
	}

	for _, result := range results {
		if result.Index >= 0 && result.Index < len(docs) {
			docs[result.Index].Score = result.Score
		}
	}
}

// selectReferences merges curated documents across categories and keeps the
// highest-scored unique URLs as the report's references.
func (s *CuratorStage) selectReferences(curated map[models.ResearchCategory]models.DocumentMap) ([]string, map[string]models.ReferenceInfo) {
	best := make(map[string]*models.Document)
	for _, data := range curated {
		for url, doc := range data {
			if current, ok := best[url]; !ok || doc.Score > current.Score {
				best[url] = doc
			}
		}
	}

	ranked := make([]*models.Document, 0, len(best))
	for _, doc := range best {
		ranked = append(ranked, doc)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].URL < ranked[j].URL
	})

	limit := s.cfg.MaxReferences
	if limit <= 0 {
		limit = 10
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	references := make([]string, 0, len(ranked))
	info := make(map[string]models.ReferenceInfo, len(ranked))
	for _, doc := range ranked {
		references = append(references, doc.URL)
		info[doc.URL] = models.ReferenceInfo{
			Title:  doc.Title,
			Domain: common.Domain(doc.URL),
			URL:    doc.URL,
			Score:  doc.Score,
		}
	}
	return references, info
}

func curationSummary(state *models.ResearchState, curated map[models.ResearchCategory]models.DocumentMap) string {
	summary := ""
	for i, category := range models.Categories {
		if i > 0 {
			summary += ", "
		}
		summary += fmt.Sprintf("%d/%d %s", len(curated[category]), len(state.CategoryData(category)), category)
	}
	return summary
}
