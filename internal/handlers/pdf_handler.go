// -----------------------------------------------------------------------
// PDF Handler - on-demand markdown report to PDF conversion
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

type PDFHandler struct {
	service interfaces.PDFService
	config  *common.PDFConfig
	logger  arbor.ILogger
}

func NewPDFHandler(service interfaces.PDFService, config *common.PDFConfig, logger arbor.ILogger) *PDFHandler {
	return &PDFHandler{
		service: service,
		config:  config,
		logger:  logger,
	}
}

type generatePDFRequest struct {
	ReportContent string `json:"report_content"`
	CompanyName   string `json:"company_name"`
}

// GenerateHandler converts a markdown report to PDF and returns it as an
// attachment. A copy is kept under the configured output directory.
// POST /generate-pdf
func (h *PDFHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req generatePDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ReportContent) == "" {
		WriteError(w, http.StatusBadRequest, "report_content is required")
		return
	}

	title := req.CompanyName
	if title == "" {
		title = "Research Report"
	}

	data, err := h.service.ConvertMarkdownToPDF(req.ReportContent, title)
	if err != nil {
		h.logger.Warn().Err(err).Msg("PDF generation failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := pdfFilename(req.CompanyName)
	h.persistCopy(filename, data)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// persistCopy is best-effort: a failed disk write never fails the request.
func (h *PDFHandler) persistCopy(filename string, data []byte) {
	if h.config == nil || h.config.OutputDir == "" {
		return
	}
	if err := os.MkdirAll(h.config.OutputDir, 0755); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to create PDF output directory")
		return
	}
	path := filepath.Join(h.config.OutputDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		h.logger.Warn().Err(err).Str("path", path).Msg("Failed to store PDF copy")
		return
	}
	h.logger.Debug().Str("path", path).Int("size", len(data)).Msg("PDF stored")
}

func pdfFilename(company string) string {
	slug := strings.ToLower(strings.TrimSpace(company))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "report"
	}
	return fmt.Sprintf("%s-%s.pdf", slug, time.Now().Format("20060102-150405"))
}
