package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

func curatedDoc(url string, score float64, rawLen int) *models.Document {
	return &models.Document{
		URL:        url,
		Title:      "Title",
		Content:    "summary",
		RawContent: strings.Repeat("x", rawLen),
		Query:      "q acme info",
		Source:     models.SourceWebSearch,
		Score:      score,
		Evaluation: &models.Evaluation{OverallScore: score, Query: "q acme info"},
	}
}

func TestBriefing_GeneratesPerCategory(t *testing.T) {
	llm := &scriptedLLM{}
	stage := NewBriefingStage(llm, common.GetLogger())
	reporter := &recordingReporter{}

	state := &models.ResearchState{
		Company:              "Acme",
		Industry:             "Widgets",
		CuratedFinancialData: docMap(curatedDoc("https://example.com/f", 0.8, 100)),
		CuratedNewsData:      docMap(curatedDoc("https://example.com/n", 0.7, 100)),
	}

	delta, err := stage.Run(context.Background(), state, reporter)
	require.NoError(t, err)

	assert.NotEmpty(t, delta.Briefings[models.CategoryFinancial])
	assert.NotEmpty(t, delta.Briefings[models.CategoryNews])
	// Categories without curated documents yield empty briefings and no
	// model call.
	assert.Empty(t, delta.Briefings[models.CategoryIndustry])
	assert.Empty(t, delta.Briefings[models.CategoryCompany])
	assert.Len(t, llm.calls, 2)
}

func TestBriefing_TruncatesLongDocuments(t *testing.T) {
	captured := &promptCapturingLLM{}
	stage := NewBriefingStage(captured, common.GetLogger())
	reporter := &recordingReporter{}

	state := &models.ResearchState{
		Company:              "Acme",
		CuratedFinancialData: docMap(curatedDoc("https://example.com/long", 0.9, 20000)),
	}

	_, err := stage.Run(context.Background(), state, reporter)
	require.NoError(t, err)

	require.Len(t, captured.prompts, 1)
	prompt := captured.prompts[0]
	assert.Contains(t, prompt, strings.Repeat("x", briefingDocLimit)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", briefingDocLimit+1))
}

func TestBriefing_FailedCategoryYieldsEmptyBriefing(t *testing.T) {
	llm := &scriptedLLM{briefingErr: models.Errorf(models.ErrExternalUnavailable, "llm down")}
	stage := NewBriefingStage(llm, common.GetLogger())
	reporter := &recordingReporter{}

	state := &models.ResearchState{
		Company:              "Acme",
		CuratedFinancialData: docMap(curatedDoc("https://example.com/f", 0.8, 100)),
	}

	delta, err := stage.Run(context.Background(), state, reporter)
	require.NoError(t, err)
	assert.Empty(t, delta.Briefings[models.CategoryFinancial])
	assert.NotEmpty(t, reporter.eventsOfType(models.EventError))
}

func TestBriefing_PrefersHigherScoredDocuments(t *testing.T) {
	captured := &promptCapturingLLM{}
	stage := NewBriefingStage(captured, common.GetLogger())
	reporter := &recordingReporter{}

	low := curatedDoc("https://example.com/low", 0.5, 10)
	low.Title = "LowScore"
	high := curatedDoc("https://example.com/high", 0.95, 10)
	high.Title = "HighScore"

	state := &models.ResearchState{
		Company:         "Acme",
		CuratedNewsData: docMap(low, high),
	}

	_, err := stage.Run(context.Background(), state, reporter)
	require.NoError(t, err)

	require.Len(t, captured.prompts, 1)
	prompt := captured.prompts[0]
	assert.Less(t, strings.Index(prompt, "HighScore"), strings.Index(prompt, "LowScore"))
}

type promptCapturingLLM struct {
	prompts []string
}

func (p *promptCapturingLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	p.prompts = append(p.prompts, messages[len(messages)-1].Content)
	return "briefing text", nil
}

func (p *promptCapturingLLM) ChatStream(ctx context.Context, messages []interfaces.Message, onDelta func(string)) (string, error) {
	return p.Chat(ctx, messages)
}

func (p *promptCapturingLLM) HealthCheck(ctx context.Context) error { return nil }
func (p *promptCapturingLLM) Close() error                          { return nil }
