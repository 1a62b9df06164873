package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/models"
)

// CollectorStage verifies the researcher output before curation and records a
// per-category document inventory in the message log.
type CollectorStage struct {
	logger arbor.ILogger
}

func NewCollectorStage(logger arbor.ILogger) *CollectorStage {
	return &CollectorStage{logger: logger}
}

func (s *CollectorStage) Name() string { return "collector" }

func (s *CollectorStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewError(models.ErrCancelled, s.Name(), err)
	}

	lines := []string{fmt.Sprintf("Collecting research data for %s:", state.Company)}
	total := 0
	for _, category := range models.Categories {
		count := len(state.CategoryData(category))
		total += count
		if count > 0 {
			lines = append(lines, fmt.Sprintf("%s: %d documents collected", category.SectionTitle(), count))
		} else {
			lines = append(lines, fmt.Sprintf("%s: no data found", category.SectionTitle()))
		}
	}

	if total == 0 {
		s.logger.Warn().
			Str("company", state.Company).
			Msg("No research data collected from any track")
	} else {
		s.logger.Info().
			Str("company", state.Company).
			Int("documents", total).
			Msg("Research data collected")
	}

	return &models.StateDelta{Messages: []string{strings.Join(lines, "; ")}}, nil
}
