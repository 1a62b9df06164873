// -----------------------------------------------------------------------
// Application Assembly - wires services, pipeline, jobs, and handlers
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/events"
	"github.com/ternarybob/indago/internal/handlers"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/jobs"
	"github.com/ternarybob/indago/internal/pipeline"
	"github.com/ternarybob/indago/internal/services/llm"
	"github.com/ternarybob/indago/internal/services/pdf"
	"github.com/ternarybob/indago/internal/services/rerank"
	"github.com/ternarybob/indago/internal/services/tavily"
	"github.com/ternarybob/indago/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// External services
	TavilyClient  *tavily.Client
	RerankService interfaces.RerankService
	LLMService    interfaces.LLMService
	PDFService    interfaces.PDFService

	// Pipeline and job control
	EventBus   *events.Bus
	Engine     *pipeline.Engine
	JobManager *jobs.Manager

	// HTTP handlers
	ResearchHandler *handlers.ResearchHandler
	WSHandler       *handlers.WebSocketHandler
	PDFHandler      *handlers.PDFHandler
	StatusHandler   *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Optional persistence
	if cfg.Storage.Enabled {
		storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		app.StorageManager = storageManager
	}

	// External services
	tavilyClient, err := tavily.NewClient(&cfg.Tavily, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search service: %w", err)
	}
	app.TavilyClient = tavilyClient

	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	app.LLMService = llmService

	// Reranking is optional; a nil service keeps upstream search scores.
	if cohere := rerank.NewCohereService(&cfg.Cohere, logger); cohere != nil {
		app.RerankService = cohere
	}

	app.PDFService = pdf.NewService(logger)

	// Pipeline and job control
	app.EventBus = events.NewBus(cfg.WebSocket.BufferSize, logger)
	app.Engine = pipeline.NewEngine(cfg, app.LLMService, app.TavilyClient, app.TavilyClient, app.RerankService, logger)
	app.JobManager = jobs.NewManager(cfg, app.Engine, app.EventBus, app.StorageManager, logger)
	app.JobManager.Start()

	// HTTP handlers
	app.ResearchHandler = handlers.NewResearchHandler(app.JobManager, logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.JobManager, logger)
	app.PDFHandler = handlers.NewPDFHandler(app.PDFService, &cfg.PDF, logger)
	app.StatusHandler = handlers.NewStatusHandler(cfg, logger)

	logger.Info().
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Bool("rerank_enabled", app.RerankService != nil).
		Bool("storage_enabled", cfg.Storage.Enabled).
		Msg("Application initialized")

	return app, nil
}

// Close shuts down background workers and releases resources.
func (a *App) Close() error {
	a.JobManager.Stop()

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	return nil
}
