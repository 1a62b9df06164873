// -----------------------------------------------------------------------
// Pipeline Engine - drives the research stage DAG for one job
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/errgroup"
)

// Progress milestones advanced at stage boundaries.
const (
	progressGrounding     = 5
	progressResearchStart = 10
	progressPerResearcher = 10
	progressResearchCap   = 60
	progressCurator       = 70
	progressEnricher      = 80
	progressBriefing      = 90
	progressEditor        = 95
	progressComplete      = 100
)

// Reporter receives progress updates and events from a running pipeline.
// Implementations must be safe for concurrent use.
type Reporter interface {
	// Progress advances the job's progress percentage with a status message.
	Progress(progress int, message string)
	// Event publishes a pipeline event to the job's subscribers.
	Event(ev models.Event)
}

// Stage is one named step of the pipeline. A stage receives the current state
// snapshot and returns a delta; it must not mutate its input and must return
// promptly on cancellation.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error)
}

// Engine owns the fixed stage DAG:
//
//	grounding -> {financial, news, industry, company} -> collector ->
//	curator -> enricher -> briefing -> editor -> output
//
// State merges happen only at stage boundaries; the four researchers write
// disjoint category keys so their parallel deltas never conflict.
type Engine struct {
	cfg    *common.Config
	logger arbor.ILogger

	grounding   Stage
	researchers []*ResearcherStage
	collector   Stage
	curator     Stage
	enricher    Stage
	briefing    Stage
	editor      Stage
	output      Stage
}

// NewEngine wires the stage DAG. rerankService may be nil; curation then uses
// upstream search scores.
func NewEngine(
	cfg *common.Config,
	llmService interfaces.LLMService,
	searchService interfaces.SearchService,
	extractService interfaces.ExtractService,
	rerankService interfaces.RerankService,
	logger arbor.ILogger,
) *Engine {
	researchers := make([]*ResearcherStage, 0, len(models.Categories))
	for _, category := range models.Categories {
		researchers = append(researchers, NewResearcherStage(category, llmService, searchService, &cfg.Research, logger))
	}

	return &Engine{
		cfg:         cfg,
		logger:      logger,
		grounding:   NewGroundingStage(extractService, logger),
		researchers: researchers,
		collector:   NewCollectorStage(logger),
		curator:     NewCuratorStage(rerankService, &cfg.Research, logger),
		enricher:    NewEnricherStage(extractService, &cfg.Research, logger),
		briefing:    NewBriefingStage(llmService, logger),
		editor:      NewEditorStage(llmService, logger),
		output:      NewOutputStage(logger),
	}
}

// Run executes the pipeline to completion, mutating state through merged stage
// deltas. On success state.Report holds the final report. The returned error
// is nil, a cancellation error, or the fatal stage error that stopped the run.
func (e *Engine) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) error {
	e.logger.Info().
		Str("company", state.Company).
		Msg("Starting research pipeline")

	reporter.Progress(progressGrounding, fmt.Sprintf("Analyzing %s website", state.Company))
	if err := e.runStage(ctx, e.grounding, state, reporter); err != nil {
		return err
	}

	if err := e.runResearchers(ctx, state, reporter); err != nil {
		return err
	}

	if err := e.runStage(ctx, e.collector, state, reporter); err != nil {
		return err
	}

	reporter.Progress(progressCurator, "Curating research data")
	if err := e.runStage(ctx, e.curator, state, reporter); err != nil {
		return err
	}

	reporter.Progress(progressEnricher, "Enriching curated documents")
	if err := e.runStage(ctx, e.enricher, state, reporter); err != nil {
		return err
	}

	reporter.Progress(progressBriefing, "Generating research briefings")
	if err := e.runStage(ctx, e.briefing, state, reporter); err != nil {
		return err
	}

	reporter.Progress(progressEditor, "Compiling final report")
	if err := e.runStage(ctx, e.editor, state, reporter); err != nil {
		return err
	}

	if err := e.runStage(ctx, e.output, state, reporter); err != nil {
		return err
	}
	reporter.Progress(progressComplete, "Research complete")

	e.logger.Info().
		Str("company", state.Company).
		Int("report_length", len(state.Report)).
		Msg("Research pipeline completed")

	return nil
}

// runStage executes one stage and merges its delta.
func (e *Engine) runStage(ctx context.Context, stage Stage, state *models.ResearchState, reporter Reporter) error {
	if err := ctx.Err(); err != nil {
		return models.NewError(models.ErrCancelled, stage.Name(), err)
	}

	delta, err := stage.Run(ctx, state.Clone(), reporter)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("stage", stage.Name()).
			Msg("Pipeline stage failed")
		return err
	}

	state.Merge(delta)
	return nil
}

// runResearchers fans out the four researchers, advancing progress as each
// completes. A researcher error cancels its siblings.
func (e *Engine) runResearchers(ctx context.Context, state *models.ResearchState, reporter Reporter) error {
	reporter.Progress(progressResearchStart, fmt.Sprintf("Researching %s", state.Company))

	var (
		mu       sync.Mutex
		progress = progressResearchStart
		deltas   = make([]*models.StateDelta, len(e.researchers))
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for i, researcher := range e.researchers {
		group.Go(func() error {
			delta, err := researcher.Run(groupCtx, state.Clone(), reporter)
			if err != nil {
				return err
			}

			mu.Lock()
			deltas[i] = delta
			progress += progressPerResearcher
			if progress > progressResearchCap {
				progress = progressResearchCap
			}
			current := progress
			mu.Unlock()

			reporter.Progress(current, fmt.Sprintf("%s completed", researcher.Category().Analyst()))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	// Each researcher owns a disjoint category key, so merge order does not
	// affect the category maps.
	for _, delta := range deltas {
		state.Merge(delta)
	}
	return nil
}
