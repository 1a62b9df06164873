package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// NewLLMService creates the configured LLM provider wrapped with the shared
// retry policy for transient failures.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Msg("Initializing LLM service")

	var (
		service interfaces.LLMService
		err     error
	)

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		service, err = NewClaudeService(&cfg.Claude, logger)
	case common.LLMProviderGemini:
		service, err = NewGeminiService(&cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("invalid llm.default_provider '%s': must be 'claude' or 'gemini'", cfg.LLM.DefaultProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s LLM service: %w", cfg.LLM.DefaultProvider, err)
	}

	return WithRetry(service, cfg.LLM.MaxAttempts, logger), nil
}
