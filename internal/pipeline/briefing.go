package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// Per-document and total character budgets keep the briefing prompt
	// inside the model's context window.
	briefingDocLimit   = 8000
	briefingTotalLimit = 120000
)

// BriefingStage synthesizes one briefing per category from the enriched
// curated documents. A failed category yields an empty briefing; the pipeline
// continues.
type BriefingStage struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

func NewBriefingStage(llm interfaces.LLMService, logger arbor.ILogger) *BriefingStage {
	return &BriefingStage{llm: llm, logger: logger}
}

func (s *BriefingStage) Name() string { return "briefing" }

func (s *BriefingStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	briefings := make(map[models.ResearchCategory]string, len(models.Categories))
	var (
		mu       sync.Mutex
		messages []string
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, category := range models.Categories {
		group.Go(func() error {
			text, err := s.briefCategory(groupCtx, state, category, reporter)
			if err != nil {
				if models.IsCancelled(err) {
					return err
				}
				s.logger.Warn().
					Err(err).
					Str("category", string(category)).
					Msg("Briefing generation failed")
				reporter.Event(models.NewErrorEvent(s.Name(), err))
				text = ""
			}

			mu.Lock()
			briefings[category] = text
			messages = append(messages, fmt.Sprintf("Completed %s briefing (%d characters)", category, len(text)))
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(messages)

	return &models.StateDelta{
		Messages:  messages,
		Briefings: briefings,
	}, nil
}

// briefCategory builds the document context and asks the model for one
// category briefing. An empty curated map yields an empty briefing without a
// model call.
func (s *BriefingStage) briefCategory(ctx context.Context, state *models.ResearchState, category models.ResearchCategory, reporter Reporter) (string, error) {
	data := state.CuratedData(category)
	if len(data) == 0 {
		return "", nil
	}

	reporter.Event(models.NewEvent(models.EventCategoryStart, map[string]interface{}{
		"category": string(category),
		"message":  fmt.Sprintf("Generating %s briefing", category),
	}))

	docs := make([]*models.Document, 0, len(data))
	for _, doc := range data {
		docs = append(docs, doc)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return evaluationScore(docs[i]) > evaluationScore(docs[j])
	})

	docTexts := make([]string, 0, len(docs))
	total := 0
	for _, doc := range docs {
		content := doc.RawContent
		if content == "" {
			content = doc.Content
		}
		if len(content) > briefingDocLimit {
			content = content[:briefingDocLimit] + "..."
		}
		text := fmt.Sprintf("Title: %s\n\nContent: %s", doc.Title, content)
		if total+len(text) > briefingTotalLimit {
			break
		}
		docTexts = append(docTexts, text)
		total += len(text)
	}
	if len(docTexts) == 0 {
		return "", nil
	}

	prompt := briefingPrompt(briefingInstruction(state.Company, state.Industry, category), docTexts)

	text, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}

	s.logger.Info().
		Str("category", string(category)).
		Int("documents", len(docTexts)).
		Int("briefing_length", len(text)).
		Msg("Briefing generated")

	return text, nil
}

func evaluationScore(doc *models.Document) float64 {
	if doc.Evaluation != nil {
		return doc.Evaluation.OverallScore
	}
	return doc.Score
}
