package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/models"
)

// OutputStage is the terminal stage: it validates the assembled state and
// records the final summary message. The job manager publishes the terminal
// status with the result once the engine returns.
type OutputStage struct {
	logger arbor.ILogger
}

func NewOutputStage(logger arbor.ILogger) *OutputStage {
	return &OutputStage{logger: logger}
}

func (s *OutputStage) Name() string { return "output" }

func (s *OutputStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewError(models.ErrCancelled, s.Name(), err)
	}

	if state.Report == "" {
		return nil, models.Errorf(models.ErrInternal, "output: report missing from state")
	}

	s.logger.Info().
		Str("company", state.Company).
		Int("report_length", len(state.Report)).
		Int("references", len(state.References)).
		Msg("Research output ready")

	return &models.StateDelta{
		Messages: []string{fmt.Sprintf("Research for %s complete: %d character report, %d references",
			state.Company, len(state.Report), len(state.References))},
	}, nil
}
