// -----------------------------------------------------------------------
// Research Handler - job submission and status retrieval
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/jobs"
	"github.com/ternarybob/indago/internal/models"
)

type ResearchHandler struct {
	manager *jobs.Manager
	logger  arbor.ILogger
}

func NewResearchHandler(manager *jobs.Manager, logger arbor.ILogger) *ResearchHandler {
	return &ResearchHandler{
		manager: manager,
		logger:  logger,
	}
}

// SubmitHandler accepts a research request and returns the job handle.
// POST /research
func (h *ResearchHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	job, err := h.manager.Submit(req)
	if err != nil {
		h.logger.Warn().Err(err).Str("company", req.Company).Msg("Research submission rejected")
		WriteKindError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":        "accepted",
		"job_id":        job.ID,
		"websocket_url": fmt.Sprintf("/research/ws/%s", job.ID),
	})
}

// StatusHandler returns the current job snapshot.
// GET /research/{id}
func (h *ResearchHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.manager.Status(r.PathValue("id"))
	if err != nil {
		WriteKindError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ReportHandler returns the final markdown report of a completed job.
// GET /research/{id}/report
func (h *ResearchHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	report, err := h.manager.Report(jobID)
	if err != nil {
		WriteKindError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"report": report,
	})
}

// CancelHandler cancels a running job.
// DELETE /research/{id}
func (h *ResearchHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Cancel(r.PathValue("id")); err != nil {
		WriteKindError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}
