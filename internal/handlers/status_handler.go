package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
)

type StatusHandler struct {
	config *common.Config
	logger arbor.ILogger
}

func NewStatusHandler(config *common.Config, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config: config,
		logger: logger,
	}
}

// HealthHandler reports service health and configured providers.
// GET /health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
		"providers": map[string]bool{
			"tavily": h.config.Tavily.APIKey != "",
			"cohere": h.config.Cohere.APIKey != "",
			"claude": h.config.Claude.APIKey != "",
			"gemini": h.config.Gemini.APIKey != "",
		},
		"storage_enabled": h.config.Storage.Enabled,
	})
}
