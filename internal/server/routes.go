package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Research jobs
	mux.HandleFunc("POST /research", s.app.ResearchHandler.SubmitHandler)
	mux.HandleFunc("GET /research/{id}", s.app.ResearchHandler.StatusHandler)
	mux.HandleFunc("GET /research/{id}/report", s.app.ResearchHandler.ReportHandler)
	mux.HandleFunc("DELETE /research/{id}", s.app.ResearchHandler.CancelHandler)

	// Per-job progress stream
	mux.HandleFunc("GET /research/ws/{id}", s.app.WSHandler.HandleWebSocket)

	// Report rendering
	mux.HandleFunc("POST /generate-pdf", s.app.PDFHandler.GenerateHandler)

	// System
	mux.HandleFunc("GET /health", s.app.StatusHandler.HealthHandler)

	return mux
}
