package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// GroundingStage fetches the company website's raw text before research
// begins. Extraction failure is a warning, never a pipeline failure.
type GroundingStage struct {
	extract interfaces.ExtractService
	logger  arbor.ILogger
}

func NewGroundingStage(extract interfaces.ExtractService, logger arbor.ILogger) *GroundingStage {
	return &GroundingStage{extract: extract, logger: logger}
}

func (s *GroundingStage) Name() string { return "grounding" }

func (s *GroundingStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	message := fmt.Sprintf("Initiating research for %s", state.Company)
	delta := &models.StateDelta{}

	if state.CompanyURL == "" {
		delta.Messages = []string{message + "; no company URL provided, proceeding directly to research"}
		return delta, nil
	}

	url := common.CanonicalURL(state.CompanyURL)

	s.logger.Info().
		Str("company", state.Company).
		Str("url", url).
		Msg("Analyzing company website")

	results, err := s.extract.Extract(ctx, []string{url}, "basic")
	if err != nil {
		if models.IsCancelled(err) {
			return nil, err
		}
		s.logger.Warn().
			Err(err).
			Str("url", url).
			Msg("Website extraction failed, continuing without site scrape")
		reporter.Event(models.NewErrorEvent(s.Name(), err))
		delta.Messages = []string{message + fmt.Sprintf("; website extraction failed: %v", err)}
		return delta, nil
	}

	var content strings.Builder
	for _, result := range results {
		if result.RawContent == "" {
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(result.RawContent)
	}

	if content.Len() == 0 {
		s.logger.Warn().
			Str("url", url).
			Msg("Website extraction returned no text")
		reporter.Event(models.NewErrorEvent(s.Name(), models.Errorf(models.ErrContentEmpty, "no text extracted from %s", url)))
		delta.Messages = []string{message + "; website extraction returned no text"}
		return delta, nil
	}

	delta.SiteScrape = &models.Document{
		URL:        url,
		Title:      state.Company,
		RawContent: content.String(),
		Source:     models.SourceCompanyWebsite,
	}
	delta.Messages = []string{message + fmt.Sprintf("; extracted %d characters from company website", content.Len())}

	return delta, nil
}
